// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package access holds the per-request authorization object of the
// identity host: an immutable snapshot of the caller's effective grants,
// assembled by the permission-context builder from live circle state.
//
// A PermissionContext is built once per request and never mutated;
// toggling a circle's disabled flag affects only contexts built afterwards.
// Evaluation follows "any group satisfies" semantics: groups are unordered
// and the first group able to satisfy a check wins.
package access

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

// PermissionGroup bundles one grant source: a permission set, the drive
// grants it carries, and optionally the key-store key that unwraps those
// drive grants' storage keys plus an encrypted inter-connection-
// registration key.
type PermissionGroup struct {
	permissionSet   models.PermissionSet
	driveGrants     []models.DriveGrant
	keyStoreKey     crypto.SensitiveBytes
	encryptedIcrKey []byte
}

// NewPermissionGroup builds a group. keyStoreKey may be nil for grants
// that carry no key material (anonymous drive access); encryptedIcrKey may
// be nil for groups that do not carry the ICR key.
func NewPermissionGroup(set models.PermissionSet, driveGrants []models.DriveGrant, keyStoreKey crypto.SensitiveBytes, encryptedIcrKey []byte) PermissionGroup {
	return PermissionGroup{
		permissionSet:   set,
		driveGrants:     driveGrants,
		keyStoreKey:     keyStoreKey,
		encryptedIcrKey: encryptedIcrKey,
	}
}

// PermissionContext is the immutable, per-request authorization object.
// Safe for concurrent use: all state is read-only after construction.
type PermissionContext struct {
	groups       map[string]PermissionGroup
	sharedSecret crypto.SensitiveBytes

	// isSystem short-circuits every check to granted. Reserved for trusted
	// internal callers only.
	isSystem bool

	// ambiguousDrives lists drives granted by more than one group,
	// detected by an explicit validation pass at construction time.
	ambiguousDrives []uuid.UUID

	logger *logger.Logger
}

// NewPermissionContext assembles a context from named permission groups
// and the caller's shared secret. Group order is irrelevant. Drives
// granted by more than one group are detected here and logged as a
// configuration smell; ambiguity is not fatal.
func NewPermissionContext(groups map[string]PermissionGroup, sharedSecret crypto.SensitiveBytes, isSystem bool, log *logger.Logger) *PermissionContext {
	if log == nil {
		log = logger.Nop()
	}

	ctx := &PermissionContext{
		groups:       groups,
		sharedSecret: sharedSecret,
		isSystem:     isSystem,
		logger:       log,
	}

	ctx.ambiguousDrives = findAmbiguousDrives(groups)
	for _, driveID := range ctx.ambiguousDrives {
		log.Warn().
			Str("func", "access.NewPermissionContext").
			Str("drive_id", driveID.String()).
			Msg("drive granted by more than one permission group")
	}

	return ctx
}

// NewSystemContext returns a context whose checks always pass. Only for
// trusted internal callers.
func NewSystemContext(log *logger.Logger) *PermissionContext {
	return NewPermissionContext(nil, nil, true, log)
}

// SharedSecret returns the caller's shared-secret key.
func (p *PermissionContext) SharedSecret() crypto.SensitiveBytes {
	return p.sharedSecret
}

// AmbiguousDrives returns the drives granted by more than one group, as
// found by the construction-time validation pass.
func (p *PermissionContext) AmbiguousDrives() []uuid.UUID {
	return p.ambiguousDrives
}

// HasDrivePermission reports whether any group grants flag on the drive.
func (p *PermissionContext) HasDrivePermission(driveID uuid.UUID, flag models.DrivePermission) bool {
	if p.isSystem {
		return true
	}

	for _, group := range p.groups {
		for _, dg := range group.driveGrants {
			if dg.DriveID == driveID && dg.PermissionedDrive.Permission.Has(flag) {
				return true
			}
		}
	}
	return false
}

// AssertHasDrivePermission returns a security-kind error unless flag is
// granted on the drive.
func (p *PermissionContext) AssertHasDrivePermission(driveID uuid.UUID, flag models.DrivePermission) error {
	if !p.HasDrivePermission(driveID, flag) {
		return fmt.Errorf("%w: drive %s lacks permission %d", ErrSecurity, driveID, flag)
	}
	return nil
}

// AssertHasAtLeastOneDrivePermission returns a security-kind error unless
// at least one of the flags is granted on the drive.
func (p *PermissionContext) AssertHasAtLeastOneDrivePermission(driveID uuid.UUID, flags ...models.DrivePermission) error {
	for _, flag := range flags {
		if p.HasDrivePermission(driveID, flag) {
			return nil
		}
	}
	return fmt.Errorf("%w: drive %s lacks all requested permissions", ErrSecurity, driveID)
}

// HasPermission reports whether any group's permission set contains key.
func (p *PermissionContext) HasPermission(key int) bool {
	if p.isSystem {
		return true
	}

	for _, group := range p.groups {
		if group.permissionSet.HasKey(key) {
			return true
		}
	}
	return false
}

// AssertHasPermission returns a security-kind error unless key is granted.
func (p *PermissionContext) AssertHasPermission(key int) error {
	if !p.HasPermission(key) {
		return fmt.Errorf("%w: missing permission key %d", ErrSecurity, key)
	}
	return nil
}

// GetDriveID resolves the caller-facing (alias, type) drive reference to
// the internal drive id, scanning groups until one resolves it.
func (p *PermissionContext) GetDriveID(target models.TargetDrive) (uuid.UUID, error) {
	for _, group := range p.groups {
		for _, dg := range group.driveGrants {
			if dg.PermissionedDrive.Drive == target {
				return dg.DriveID, nil
			}
		}
	}
	return uuid.Nil, fmt.Errorf("%w: %w: %s", ErrSecurity, ErrDriveNotGranted, target)
}

// GetTargetDrive is the reverse of GetDriveID.
func (p *PermissionContext) GetTargetDrive(driveID uuid.UUID) (models.TargetDrive, error) {
	for _, group := range p.groups {
		for _, dg := range group.driveGrants {
			if dg.DriveID == driveID {
				return dg.PermissionedDrive.Drive, nil
			}
		}
	}
	return models.TargetDrive{}, fmt.Errorf("%w: %w: %s", ErrSecurity, ErrDriveNotGranted, driveID)
}

// GetDriveStorageKey recovers the drive's symmetric storage key by
// scanning every group and attempting to unwrap the drive grant's key with
// that group's key-store key. Groups without key material, and grants the
// key-store key cannot unwrap, are skipped rather than treated as fatal:
// the caller may still hold ACL-level anonymous read access without a
// recoverable key, in which case an empty key is returned with no error.
//
// The caller must wipe the returned key after use.
func (p *PermissionContext) GetDriveStorageKey(driveID uuid.UUID) (crypto.SensitiveBytes, error) {
	for name, group := range p.groups {
		if group.keyStoreKey.IsEmpty() {
			continue
		}

		var matches int
		var storageKey crypto.SensitiveBytes

		for _, dg := range group.driveGrants {
			if dg.DriveID != driveID || len(dg.KeyStoreKeyEncryptedStorageKey) == 0 {
				continue
			}

			matches++
			if storageKey != nil {
				continue
			}

			key, err := crypto.UnwrapKey(dg.KeyStoreKeyEncryptedStorageKey, group.keyStoreKey)
			if err != nil {
				p.logger.Warn().
					Str("func", "PermissionContext.GetDriveStorageKey").
					Str("group", name).
					Str("drive_id", driveID.String()).
					Msg("drive grant key could not be unwrapped; skipping group")
				continue
			}
			storageKey = key
		}

		if matches > 1 {
			p.logger.Warn().
				Str("func", "PermissionContext.GetDriveStorageKey").
				Str("group", name).
				Str("drive_id", driveID.String()).
				Int("grant_count", matches).
				Msg("duplicate drive grants within one permission group")
		}

		if storageKey != nil {
			return storageKey, nil
		}
	}

	// No recoverable key; not fatal (anonymous/ACL-level access may still
	// apply on the read path).
	return nil, nil
}

// GetIcrKey recovers the inter-connection-registration key from whichever
// group carries it. Fails with a security-kind error when none do.
//
// The caller must wipe the returned key after use.
func (p *PermissionContext) GetIcrKey() (crypto.SensitiveBytes, error) {
	for _, group := range p.groups {
		if len(group.encryptedIcrKey) == 0 || group.keyStoreKey.IsEmpty() {
			continue
		}

		key, err := crypto.UnwrapKey(group.encryptedIcrKey, group.keyStoreKey)
		if err != nil {
			continue
		}
		return key, nil
	}

	return nil, fmt.Errorf("%w: no group carries the icr key", ErrSecurity)
}

func findAmbiguousDrives(groups map[string]PermissionGroup) []uuid.UUID {
	seen := make(map[uuid.UUID]int)
	for _, group := range groups {
		counted := make(map[uuid.UUID]bool)
		for _, dg := range group.driveGrants {
			if !counted[dg.DriveID] {
				counted[dg.DriveID] = true
				seen[dg.DriveID]++
			}
		}
	}

	var ambiguous []uuid.UUID
	for driveID, count := range seen {
		if count > 1 {
			ambiguous = append(ambiguous, driveID)
		}
	}
	return ambiguous
}
