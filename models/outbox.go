// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"github.com/google/uuid"
)

// OutboxItemType identifies the delivery operation an outbox item carries.
type OutboxItemType int

const (
	OutboxItemFile OutboxItemType = iota
	OutboxItemPayloadUpdate
	OutboxItemDeleteFile
	OutboxItemReadReceipt
	OutboxItemFeedItem
)

func (t OutboxItemType) String() string {
	switch t {
	case OutboxItemFile:
		return "file"
	case OutboxItemPayloadUpdate:
		return "payload_update"
	case OutboxItemDeleteFile:
		return "delete_file"
	case OutboxItemReadReceipt:
		return "read_receipt"
	case OutboxItemFeedItem:
		return "feed_item"
	default:
		return "unknown"
	}
}

// SendContents selects which content classes accompany a transfer.
type SendContents int

const (
	SendContentsHeaderOnly SendContents = 0
	SendContentsPayload    SendContents = 1 << 0
	SendContentsThumbnails SendContents = 1 << 1
	SendContentsAll                     = SendContentsPayload | SendContentsThumbnails
)

// Has reports whether all bits of flag are set.
func (s SendContents) Has(flag SendContents) bool {
	return s&flag == flag
}

// ScheduleOption controls whether a send is processed inline or left to the
// background outbox processor.
type ScheduleOption int

const (
	// ScheduleSendLater enqueues only; the background processor delivers.
	ScheduleSendLater ScheduleOption = iota

	// ScheduleSendNowAwaitResponse processes the new items synchronously
	// and reports the per-recipient outcome to the caller.
	ScheduleSendNowAwaitResponse
)

// SendOptions carries the caller's choices for one send operation.
type SendOptions struct {
	Recipients   []string
	Schedule     ScheduleOption
	SendContents SendContents

	// IsTransient marks the source file for hard deletion once every
	// recipient has received it.
	IsTransient bool

	// RemoteTargetDrive overrides the destination drive on the recipient
	// side; defaults to the source file's own target drive.
	RemoteTargetDrive *TargetDrive

	// OverrideGlobalTransitID replaces the file's global transit id in the
	// outbound metadata when set.
	OverrideGlobalTransitID *uuid.UUID

	// StripSender removes the sender identity from outbound metadata.
	StripSender bool
}

// TransferInstructionSet is the serialized instruction header accompanying
// every file transfer: where the file goes and the content key header
// re-wrapped with the recipient connection's shared secret.
type TransferInstructionSet struct {
	TargetDrive                    TargetDrive        `json:"targetDrive"`
	GlobalTransitID                uuid.UUID          `json:"globalTransitId"`
	SendContents                   SendContents       `json:"sendContents"`
	SharedSecretEncryptedKeyHeader EncryptedKeyHeader `json:"sharedSecretEncryptedKeyHeader"`
}

// OutboxFileItem is one unit of delivery work: one file for one recipient.
// The item is invisible to claim calls while Marker is set; MarkFailure
// clears the marker and re-arms the item at NextRun.
type OutboxFileItem struct {
	File      FileIdentifier `json:"file"`
	Recipient string         `json:"recipient"`
	Type      OutboxItemType `json:"type"`

	// Priority orders claims within a drive; lower runs first.
	Priority int `json:"priority"`

	// AttemptCount is bumped every time a claim is released back (failure
	// or dead-claim recovery). Items at the configured maximum are
	// rejected with a terminal too-many-attempts classification.
	AttemptCount int `json:"attemptCount"`

	// NextRun is the unix-millisecond time at which the item becomes
	// eligible for claiming.
	NextRun int64 `json:"nextRun"`

	// Marker is the claim lease assigned by GetBatchForProcessing;
	// uuid.Nil when unclaimed.
	Marker uuid.UUID `json:"marker"`

	// EncryptedClientAuthToken is the recipient-call credential sealed
	// with the host's outbox sealing key. Decrypted only inside a worker,
	// wiped immediately after the transmission is prepared.
	EncryptedClientAuthToken []byte `json:"encryptedClientAuthToken,omitempty"`

	// State is the serialized TransferInstructionSet plus any
	// type-specific instruction payload.
	State []byte `json:"state,omitempty"`

	IsTransient bool  `json:"isTransient"`
	Created     int64 `json:"created"`
}

// OutboxStatus summarizes one drive's outbox for introspection.
type OutboxStatus struct {
	TotalItems      int   `json:"totalItems"`
	CheckedOutItems int   `json:"checkedOutItems"`
	NextRun         int64 `json:"nextRun"`
}

// KeyEscrowItem parks a (file, recipient) pair whose transfer credential
// could not be resolved at enqueue time, so the send can be retried once a
// credential becomes available. Type and Options record the operation that
// was parked; the retry replays that operation, not a generic file send.
type KeyEscrowItem struct {
	ID            uuid.UUID      `json:"id"`
	File          FileIdentifier `json:"file"`
	Recipient     string         `json:"recipient"`
	Type          OutboxItemType `json:"type"`
	Options       SendOptions    `json:"options"`
	Attempts      int            `json:"attempts"`
	FirstAddedMs  int64          `json:"firstAddedMs"`
	LastAttemptMs int64          `json:"lastAttemptMs"`
}
