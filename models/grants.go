// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"github.com/google/uuid"
)

// AccessRegistration is the durable half of a connection credential. The
// remote party holds a ClientAuthToken (id + half key); this record holds
// the matching server half key, a verification hash of the combined token
// key, and the grant's key-store key and shared secret wrapped with the
// combined token key. Possessing a valid remote half key is therefore both
// proof of identity and the means to unlock the grant's key material.
type AccessRegistration struct {
	ID      uuid.UUID `json:"id"`
	Created int64     `json:"created"`

	// IsRevoked permanently invalidates this credential. A revoked
	// registration also invalidates the whole AccessExchangeGrant.
	IsRevoked bool `json:"isRevoked"`

	// ServerHalfKey is XOR-combined with the remote half key to rebuild the
	// token key.
	ServerHalfKey []byte `json:"serverHalfKey"`

	// TokenKeyHash is SHA-256 of the combined token key, used to verify a
	// presented remote half key before any decryption is attempted.
	TokenKeyHash []byte `json:"tokenKeyHash"`

	// TokenEncryptedKeyStoreKey is the grant's key-store key wrapped with
	// the combined token key.
	TokenEncryptedKeyStoreKey []byte `json:"tokenEncryptedKeyStoreKey"`

	// TokenEncryptedSharedSecret is the connection's shared secret wrapped
	// with the combined token key.
	TokenEncryptedSharedSecret []byte `json:"tokenEncryptedSharedSecret"`
}

// IsValid reports whether the registration can still authenticate callers.
func (a AccessRegistration) IsValid() bool {
	return !a.IsRevoked && a.ID != uuid.Nil
}

// ExchangeGrant is the generic capability bundle: a permission set plus a
// list of drive grants whose storage keys are wrapped with the grant's
// key-store key. The key-store key itself is wrapped with the owner's
// master key; it never exists in plaintext outside a scoped operation.
type ExchangeGrant struct {
	Created   int64 `json:"created"`
	Modified  int64 `json:"modified"`
	IsRevoked bool  `json:"isRevoked"`

	MasterKeyEncryptedKeyStoreKey   []byte        `json:"masterKeyEncryptedKeyStoreKey,omitempty"`
	KeyStoreKeyEncryptedDriveGrants []DriveGrant  `json:"keyStoreKeyEncryptedDriveGrants,omitempty"`
	PermissionSet                   PermissionSet `json:"permissionSet"`
}

// CircleGrant is the instantiation of a circle definition for one
// connection. Drive storage keys inside are wrapped with the connection's
// key-store key, never with the master key directly.
type CircleGrant struct {
	CircleID                        uuid.UUID     `json:"circleId"`
	PermissionSet                   PermissionSet `json:"permissionSet"`
	KeyStoreKeyEncryptedDriveGrants []DriveGrant  `json:"keyStoreKeyEncryptedDriveGrants,omitempty"`
}

// Redacted drops encrypted key material but keeps the permission and drive
// grant shape, making the value safe to return to clients.
func (c CircleGrant) Redacted() CircleGrant {
	redacted := CircleGrant{
		CircleID:      c.CircleID,
		PermissionSet: c.PermissionSet,
	}
	for _, dg := range c.KeyStoreKeyEncryptedDriveGrants {
		redacted.KeyStoreKeyEncryptedDriveGrants = append(redacted.KeyStoreKeyEncryptedDriveGrants, dg.Redacted())
	}
	return redacted
}

// AppCircleGrant is a circle grant additionally scoped to one registered
// application: the drives and permissions come from the app's circle-member
// template rather than from the circle definition itself.
type AppCircleGrant struct {
	AppID                           uuid.UUID     `json:"appId"`
	CircleID                        uuid.UUID     `json:"circleId"`
	PermissionSet                   PermissionSet `json:"permissionSet"`
	KeyStoreKeyEncryptedDriveGrants []DriveGrant  `json:"keyStoreKeyEncryptedDriveGrants,omitempty"`
}

// Redacted drops encrypted key material, keeping shape only.
func (a AppCircleGrant) Redacted() AppCircleGrant {
	redacted := AppCircleGrant{
		AppID:         a.AppID,
		CircleID:      a.CircleID,
		PermissionSet: a.PermissionSet,
	}
	for _, dg := range a.KeyStoreKeyEncryptedDriveGrants {
		redacted.KeyStoreKeyEncryptedDriveGrants = append(redacted.KeyStoreKeyEncryptedDriveGrants, dg.Redacted())
	}
	return redacted
}

// AccessExchangeGrant is the full per-connection capability bundle stored on
// an identity connection registration: the wrapped key-store key, circle
// grants keyed by circle id, app-circle grants keyed by app id then circle
// id, and the access registration that authenticates the remote party.
type AccessExchangeGrant struct {
	MasterKeyEncryptedKeyStoreKey []byte `json:"masterKeyEncryptedKeyStoreKey,omitempty"`
	IsRevoked                     bool   `json:"isRevoked"`

	// KeyStoreKeyEncryptedIcrKey is the inter-connection-registration key
	// wrapped with this grant's key-store key. Recovered per request via
	// PermissionContext.GetIcrKey.
	KeyStoreKeyEncryptedIcrKey []byte `json:"keyStoreKeyEncryptedIcrKey,omitempty"`

	CircleGrants map[string]CircleGrant               `json:"circleGrants,omitempty"`
	AppGrants    map[string]map[string]AppCircleGrant `json:"appGrants,omitempty"`

	AccessRegistration AccessRegistration `json:"accessRegistration"`
}

// IsValid reports whether the bundle can authorize anything: neither the
// bundle nor its credential has been revoked.
func (g *AccessExchangeGrant) IsValid() bool {
	return g != nil && !g.IsRevoked && g.AccessRegistration.IsValid()
}

// AddUpdateCircleGrant upserts grant into the circle map, creating the map
// when the bundle has no circle grants yet.
func (g *AccessExchangeGrant) AddUpdateCircleGrant(grant CircleGrant) {
	if g.CircleGrants == nil {
		g.CircleGrants = make(map[string]CircleGrant)
	}
	g.CircleGrants[grant.CircleID.String()] = grant
}

// AddUpdateAppCircleGrant upserts grant into the nested app → circle map,
// creating the inner map when the app has no grants yet.
func (g *AccessExchangeGrant) AddUpdateAppCircleGrant(grant AppCircleGrant) {
	if g.AppGrants == nil {
		g.AppGrants = make(map[string]map[string]AppCircleGrant)
	}

	appKey := grant.AppID.String()
	byCircle, ok := g.AppGrants[appKey]
	if !ok {
		byCircle = make(map[string]AppCircleGrant)
		g.AppGrants[appKey] = byCircle
	}

	byCircle[grant.CircleID.String()] = grant
}

// Redacted returns a client-safe projection of the bundle: every encrypted
// key is dropped, permission and drive-grant shape kept.
func (g *AccessExchangeGrant) Redacted() AccessExchangeGrant {
	redacted := AccessExchangeGrant{
		IsRevoked: g.IsRevoked,
		AccessRegistration: AccessRegistration{
			ID:        g.AccessRegistration.ID,
			Created:   g.AccessRegistration.Created,
			IsRevoked: g.AccessRegistration.IsRevoked,
		},
	}

	if len(g.CircleGrants) > 0 {
		redacted.CircleGrants = make(map[string]CircleGrant, len(g.CircleGrants))
		for key, cg := range g.CircleGrants {
			redacted.CircleGrants[key] = cg.Redacted()
		}
	}

	if len(g.AppGrants) > 0 {
		redacted.AppGrants = make(map[string]map[string]AppCircleGrant, len(g.AppGrants))
		for appKey, byCircle := range g.AppGrants {
			inner := make(map[string]AppCircleGrant, len(byCircle))
			for circleKey, acg := range byCircle {
				inner[circleKey] = acg.Redacted()
			}
			redacted.AppGrants[appKey] = inner
		}
	}

	return redacted
}
