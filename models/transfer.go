// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"

	"github.com/google/uuid"
)

// PeerResponseCode is the application-level result a receiving host returns
// for one transfer operation. Values are wire identifiers; never renumber.
type PeerResponseCode int

const (
	PeerResponseUnknown PeerResponseCode = iota
	PeerResponseAcceptedIntoInbox
	PeerResponseAcceptedDirectWrite
	PeerResponseQuarantinedPayload
	PeerResponseQuarantinedSenderNotConnected
	PeerResponseRejected
	PeerResponseAccessDenied
)

func (c PeerResponseCode) String() string {
	switch c {
	case PeerResponseAcceptedIntoInbox:
		return "accepted_into_inbox"
	case PeerResponseAcceptedDirectWrite:
		return "accepted_direct_write"
	case PeerResponseQuarantinedPayload:
		return "quarantined_payload"
	case PeerResponseQuarantinedSenderNotConnected:
		return "quarantined_sender_not_connected"
	case PeerResponseRejected:
		return "rejected"
	case PeerResponseAccessDenied:
		return "access_denied"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// TransferResult classifies the outcome of one delivery attempt. The
// recoverable/unrecoverable split drives whether the outbox item is
// re-armed or removed.
type TransferResult int

const (
	TransferResultUnknownError TransferResult = iota
	TransferResultSuccess

	// Recoverable failures: the item stays in the outbox with a future
	// next-run time.
	TransferResultRecipientServerError
	TransferResultRecipientServerNotResponding
	TransferResultFileDoesNotAllowDistribution
	TransferResultProcessingCancelled

	// Unrecoverable failures: the item is removed and the terminal status
	// recorded in the transfer history.
	TransferResultRecipientServerRejected
	TransferResultRecipientReturnedAccessDenied
	TransferResultTooManyAttempts
	TransferResultNoCredential
)

// IsRecoverable reports whether the failure may resolve on its own and the
// item should be retried later. Success is not recoverable by definition.
func (r TransferResult) IsRecoverable() bool {
	switch r {
	case TransferResultRecipientServerError,
		TransferResultRecipientServerNotResponding,
		TransferResultFileDoesNotAllowDistribution,
		TransferResultProcessingCancelled:
		return true
	default:
		return false
	}
}

func (r TransferResult) String() string {
	switch r {
	case TransferResultSuccess:
		return "success"
	case TransferResultRecipientServerError:
		return "recipient_server_error"
	case TransferResultRecipientServerNotResponding:
		return "recipient_server_not_responding"
	case TransferResultFileDoesNotAllowDistribution:
		return "file_does_not_allow_distribution"
	case TransferResultProcessingCancelled:
		return "processing_cancelled"
	case TransferResultRecipientServerRejected:
		return "recipient_server_rejected"
	case TransferResultRecipientReturnedAccessDenied:
		return "recipient_returned_access_denied"
	case TransferResultTooManyAttempts:
		return "too_many_attempts"
	case TransferResultNoCredential:
		return "no_credential"
	default:
		return "unknown_error"
	}
}

// TransferStatus is the per-recipient status reported to the caller who
// initiated a send.
type TransferStatus int

const (
	TransferStatusNone TransferStatus = iota
	TransferStatusTransferKeyCreated
	TransferStatusAwaitingTransferKey
	TransferStatusDeliveredToInbox
	TransferStatusDeliveredToTargetDrive
	TransferStatusPendingRetry
	TransferStatusTotalRejection
	TransferStatusFileDoesNotAllowDistribution
	TransferStatusRecipientReturnedAccessDenied
)

// TransferHistoryUpdate is applied to the (file, recipient) history entry
// after every delivery attempt.
type TransferHistoryUpdate struct {
	Recipient            string
	IsInOutbox           bool
	LatestTransferStatus TransferResult

	// VersionTag is set only on successful delivery.
	VersionTag uuid.UUID
}
