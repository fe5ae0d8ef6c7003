// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ConnectionStatus is the lifecycle state of a bilateral connection.
type ConnectionStatus int

const (
	// ConnectionNone means no standing connection. Placeholder records
	// created on first lookup carry this status.
	ConnectionNone ConnectionStatus = iota

	// ConnectionConnected means the connection is live and grants apply.
	ConnectionConnected

	// ConnectionBlocked means the owner has blocked the peer. The grant
	// bundle is retained so unblocking restores the prior state.
	ConnectionBlocked
)

func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionNone:
		return "none"
	case ConnectionConnected:
		return "connected"
	case ConnectionBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ContactRequestData echoes the introduction payload a peer supplied when
// the connection was established.
type ContactRequestData struct {
	Name     string `json:"name,omitempty"`
	ImageID  string `json:"imageId,omitempty"`
	Message  string `json:"message,omitempty"`
	SenderID string `json:"senderId,omitempty"`
}

// IdentityConnectionRegistration is the durable record of a bilateral
// connection with one peer identity: connection status, the peer's
// capability grant bundle, and the locally-held credential this host uses
// when calling the peer back.
type IdentityConnectionRegistration struct {
	// Identity is the peer's stable federation identifier (domain name).
	Identity string `json:"identity"`

	Status ConnectionStatus `json:"status"`

	// Created is a unix-millisecond stamp assigned once; GetList pages
	// newest-first on it.
	Created     int64 `json:"created"`
	LastUpdated int64 `json:"lastUpdated"`

	// AccessGrant is what this host has granted the peer.
	AccessGrant *AccessExchangeGrant `json:"accessGrant,omitempty"`

	// ClientAccessToken* is the credential the peer issued to this host for
	// calling it back. The shared secret additionally encrypts key headers
	// shipped to the peer.
	ClientAccessTokenID           uuid.UUID `json:"clientAccessTokenId"`
	ClientAccessTokenHalfKey      []byte    `json:"clientAccessTokenHalfKey,omitempty"`
	ClientAccessTokenSharedSecret []byte    `json:"clientAccessTokenSharedSecret,omitempty"`

	OriginalContactData *ContactRequestData `json:"originalContactData,omitempty"`
}

// IsConnected reports whether the registration is in the Connected state.
func (icr *IdentityConnectionRegistration) IsConnected() bool {
	return icr != nil && icr.Status == ConnectionConnected
}

// SetStatus transitions the status and touches the last-updated stamp.
func (icr *IdentityConnectionRegistration) SetStatus(status ConnectionStatus, nowMillis int64) {
	icr.Status = status
	icr.LastUpdated = nowMillis
}

// ClientAccessTokenValue rebuilds the outbound credential from the stored
// parts. Returns an error when no credential is held.
func (icr *IdentityConnectionRegistration) ClientAccessTokenValue() (ClientAccessToken, error) {
	if icr.ClientAccessTokenID == uuid.Nil || len(icr.ClientAccessTokenHalfKey) == 0 {
		return ClientAccessToken{}, errors.New("connection holds no client access token")
	}
	return ClientAccessToken{
		ID:                 icr.ClientAccessTokenID,
		AccessTokenHalfKey: append([]byte(nil), icr.ClientAccessTokenHalfKey...),
		SharedSecret:       append([]byte(nil), icr.ClientAccessTokenSharedSecret...),
	}, nil
}

// ClientAccessToken is the full credential for calling a peer: token id,
// the half key that authenticates us, and the shared secret used for
// payload key-header encryption.
type ClientAccessToken struct {
	ID                 uuid.UUID `json:"id"`
	AccessTokenHalfKey []byte    `json:"accessTokenHalfKey"`
	SharedSecret       []byte    `json:"sharedSecret"`
}

// ToAuthToken strips the shared secret, leaving only the parts that travel
// in the authentication header.
func (t ClientAccessToken) ToAuthToken() ClientAuthToken {
	return ClientAuthToken{
		ID:                 t.ID,
		AccessTokenHalfKey: append([]byte(nil), t.AccessTokenHalfKey...),
	}
}

// ClientAuthToken is the on-the-wire authentication credential: token id
// plus the remote half key. The shared secret never travels.
type ClientAuthToken struct {
	ID                 uuid.UUID `json:"id"`
	AccessTokenHalfKey []byte    `json:"accessTokenHalfKey"`
}

const clientAuthTokenHalfKeyLen = 16

// ToPortableBytes serializes the token as id ‖ halfKey for storage or
// header transport.
func (t ClientAuthToken) ToPortableBytes() []byte {
	buf := make([]byte, 0, 16+len(t.AccessTokenHalfKey))
	id := t.ID
	buf = append(buf, id[:]...)
	buf = append(buf, t.AccessTokenHalfKey...)
	return buf
}

// ClientAuthTokenFromPortableBytes parses the id ‖ halfKey form produced by
// ToPortableBytes.
func ClientAuthTokenFromPortableBytes(data []byte) (ClientAuthToken, error) {
	if len(data) != 16+clientAuthTokenHalfKeyLen {
		return ClientAuthToken{}, fmt.Errorf("invalid portable token length %d", len(data))
	}

	var id uuid.UUID
	copy(id[:], data[:16])
	return ClientAuthToken{
		ID:                 id,
		AccessTokenHalfKey: append([]byte(nil), data[16:]...),
	}, nil
}
