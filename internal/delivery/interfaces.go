package delivery

//go:generate mockgen -source=interfaces.go -destination=../mock/delivery_mock.go -package=mock

import (
	"context"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/models"
)

// ConnectionResolver is the slice of the connection service the sender
// needs: registration lookup for credential resolution.
type ConnectionResolver interface {
	Get(ctx context.Context, identity string) (models.IdentityConnectionRegistration, error)
}

// Sender enqueues peer deliveries. Every send resolves each recipient's
// connection credential, seals a copy of it onto the outbox item, and
// records the (file, recipient) pair in the transfer history. Recipients
// whose credential cannot be resolved are parked in the key escrow queue
// and reported as awaiting a transfer key; they never fail the whole send.
//
// A send with ScheduleSendNowAwaitResponse additionally drains the file's
// drive queue synchronously and reports the per-recipient outcome.
type Sender interface {
	// SendFile enqueues delivery of a new or updated file. storageKey is
	// the drive storage key from the caller's permission context, used to
	// re-wrap the file's content key header for each recipient.
	SendFile(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error)

	// SendPayloadUpdate enqueues replacement of the file's payload parts on
	// each recipient.
	SendPayloadUpdate(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error)

	// SendDeleteLinkedFile asks each recipient to remove its copy.
	SendDeleteLinkedFile(ctx context.Context, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error)

	// SendReadReceipt delivers a read receipt to each recipient.
	SendReadReceipt(ctx context.Context, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error)

	// DistributeFeedItem enqueues header-only feed distribution of the file
	// to each recipient's feed drive.
	DistributeFeedItem(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error)
}

// EscrowReconciler retries deliveries parked in the key escrow queue.
// A parked (file, recipient) pair becomes deliverable once the recipient's
// connection is re-established and a credential can be resolved again.
type EscrowReconciler interface {
	// Reconcile re-enqueues every parked item whose recipient is connected
	// again, returning the number of items released from escrow.
	Reconcile(ctx context.Context) (int, error)
}

// Processor drains the outbox. Items are claimed in batches per drive and
// processed concurrently; every item resolves to a recorded recoverable or
// unrecoverable outcome, so one bad item never escapes its claim or starves
// the batch.
type Processor interface {
	// ProcessOutbox processes every drive currently holding due work and
	// returns the number of items processed.
	ProcessOutbox(ctx context.Context) (int, error)

	// ProcessDrive claims and processes one batch for the drive.
	ProcessDrive(ctx context.Context, driveID uuid.UUID) (int, error)

	// RecoverDeadClaims releases claims held longer than the configured
	// threshold, returning the number of items recovered.
	RecoverDeadClaims(ctx context.Context) (int64, error)
}
