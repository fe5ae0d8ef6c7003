// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"

	"github.com/google/uuid"
)

// DrivePermission is a bit-flag set describing what a grant allows on a
// single drive.
type DrivePermission int

const (
	// DrivePermissionRead allows reading file headers and payloads.
	DrivePermissionRead DrivePermission = 1 << iota

	// DrivePermissionWrite allows creating and updating files.
	DrivePermissionWrite

	// DrivePermissionReact allows attaching reactions and read receipts.
	DrivePermissionReact
)

// DrivePermissionAll grants every drive permission.
const DrivePermissionAll = DrivePermissionRead | DrivePermissionWrite | DrivePermissionReact

// Has reports whether all bits of flag are present in p.
func (p DrivePermission) Has(flag DrivePermission) bool {
	return p&flag == flag
}

// TargetDrive is the caller-facing reference to a drive: a stable (alias,
// type) pair. The internal drive id is never shared with peers; peers
// address drives exclusively through this pair.
type TargetDrive struct {
	Alias uuid.UUID `json:"alias"`
	Type  uuid.UUID `json:"type"`
}

// FeedDrive is the built-in drive peers push feed content into. Every
// connected permission context carries a synthetic write-only grant for it,
// independent of circle membership.
var FeedDrive = TargetDrive{
	Alias: uuid.MustParse("11111111-2222-3333-4444-555566667777"),
	Type:  uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeffff0000"),
}

// IsValid reports whether both components are set.
func (t TargetDrive) IsValid() bool {
	return t.Alias != uuid.Nil && t.Type != uuid.Nil
}

func (t TargetDrive) String() string {
	return fmt.Sprintf("%s:%s", t.Alias, t.Type)
}

// PermissionedDrive pairs a target drive with the permission bits a grant
// bestows on it.
type PermissionedDrive struct {
	Drive      TargetDrive     `json:"drive"`
	Permission DrivePermission `json:"permission"`
}

// DriveGrantRequest is the template form of a drive grant as it appears in
// a circle definition or an app's circle-member template: which drive, with
// which permission. No key material is attached until the grant is
// instantiated for one connection.
type DriveGrantRequest struct {
	PermissionedDrive PermissionedDrive `json:"permissionedDrive"`
}

// DriveGrant is an instantiated drive grant inside an exchange grant. The
// drive's storage key is re-encrypted under the grant's key-store key, so
// recovering it requires the key-store key (which in turn requires either
// the owner's master key or the connection's access-registration token).
type DriveGrant struct {
	PermissionedDrive PermissionedDrive `json:"permissionedDrive"`

	// DriveID is the internal identifier of the granted drive.
	DriveID uuid.UUID `json:"driveId"`

	// KeyStoreKeyEncryptedStorageKey is the drive's symmetric storage key
	// wrapped with the grant's key-store key. Empty for grants that carry
	// no key material (e.g. anonymous-read grants).
	KeyStoreKeyEncryptedStorageKey []byte `json:"keyStoreKeyEncryptedStorageKey,omitempty"`
}

// Redacted returns a client-safe copy with the encrypted key material
// removed but the drive reference and permission shape intact.
func (g DriveGrant) Redacted() DriveGrant {
	return DriveGrant{
		PermissionedDrive: g.PermissionedDrive,
		DriveID:           g.DriveID,
	}
}

// StorageDrive is the durable definition of one drive hosted by this
// identity. The storage key is kept wrapped with the owner's master key;
// it is only ever unwrapped transiently while deriving grants.
type StorageDrive struct {
	ID          uuid.UUID   `json:"id"`
	TargetDrive TargetDrive `json:"targetDrive"`
	Name        string      `json:"name"`

	// AllowAnonymousReads mirrors this drive into the system circle: when
	// true every connected identity receives a read grant for it.
	AllowAnonymousReads bool `json:"allowAnonymousReads"`

	// MasterKeyEncryptedStorageKey is the drive's symmetric storage key
	// wrapped with the owner's master key.
	MasterKeyEncryptedStorageKey []byte `json:"masterKeyEncryptedStorageKey"`

	Created int64 `json:"created"`
}
