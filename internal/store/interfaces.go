package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/models"
)

// ConnectionRepository persists identity connection registrations together
// with the two derived membership indices (circle_members, app_grants).
// Every write that touches a registration's grant bundle rebuilds both
// indices inside the same transaction so the indices never disagree with
// the stored registration.
type ConnectionRepository interface {
	// Upsert stores the registration and rebuilds its index rows.
	Upsert(ctx context.Context, icr models.IdentityConnectionRegistration) error

	// Get returns the registration for identity, reconstructing the grant
	// bundle's circle and app maps from the index rows.
	// Returns [ErrConnectionNotFound] when no row exists.
	Get(ctx context.Context, identity string) (models.IdentityConnectionRegistration, error)

	// Delete removes the registration and all of its index rows.
	Delete(ctx context.Context, identity string) error

	// GetList pages registrations in the given status newest-first by
	// created stamp, reconstructing each grant bundle's maps like Get.
	// cursor is the created stamp of the previous page's last row (0 for
	// the first page); the returned cursor is 0 when no further pages
	// exist.
	GetList(ctx context.Context, status models.ConnectionStatus, cursor int64, limit int) ([]models.IdentityConnectionRegistration, int64, error)

	// GetCircleMembers lists the identities holding a grant for circleID.
	GetCircleMembers(ctx context.Context, circleID uuid.UUID) ([]string, error)

	// Reconcile deletes index rows whose owning registration is missing or
	// has no grant bundle, returning the number of rows removed.
	Reconcile(ctx context.Context) (int64, error)
}

// CircleRepository persists circle definitions.
type CircleRepository interface {
	// Create inserts a new definition. Returns [ErrCircleAlreadyExists]
	// when the id is taken.
	Create(ctx context.Context, def models.CircleDefinition) error

	// Update overwrites an existing definition.
	Update(ctx context.Context, def models.CircleDefinition) error

	// Get returns the definition or [ErrCircleNotFound].
	Get(ctx context.Context, circleID uuid.UUID) (models.CircleDefinition, error)

	// GetAll returns every stored definition.
	GetAll(ctx context.Context) ([]models.CircleDefinition, error)

	// Delete removes the definition row.
	Delete(ctx context.Context, circleID uuid.UUID) error
}

// AppRepository persists app registrations.
type AppRepository interface {
	Upsert(ctx context.Context, app models.AppRegistration) error
	Get(ctx context.Context, appID uuid.UUID) (models.AppRegistration, error)
	GetAll(ctx context.Context) ([]models.AppRegistration, error)
	Delete(ctx context.Context, appID uuid.UUID) error
}

// DriveRepository persists storage drive definitions.
type DriveRepository interface {
	Upsert(ctx context.Context, drive models.StorageDrive) error
	Get(ctx context.Context, driveID uuid.UUID) (models.StorageDrive, error)
	GetByTarget(ctx context.Context, target models.TargetDrive) (models.StorageDrive, error)
	GetAll(ctx context.Context) ([]models.StorageDrive, error)

	// GetAnonymousReadDrives returns the drives mirrored into the system
	// circle.
	GetAnonymousReadDrives(ctx context.Context) ([]models.StorageDrive, error)
}

// FileRepository persists file headers and their per-recipient transfer
// history.
type FileRepository interface {
	SaveHeader(ctx context.Context, header models.ServerFileHeader) error
	GetHeader(ctx context.Context, file models.FileIdentifier) (models.ServerFileHeader, error)

	// DeleteFile removes the header, its payload parts, its thumbnail
	// renditions and its transfer history in one transaction.
	DeleteFile(ctx context.Context, file models.FileIdentifier) error

	// SavePayload stores one payload part's bytes under key.
	SavePayload(ctx context.Context, file models.FileIdentifier, key, contentType string, content []byte) error

	// GetPayload returns a payload part's content type and bytes, or
	// [ErrPayloadNotFound].
	GetPayload(ctx context.Context, file models.FileIdentifier, key string) (string, []byte, error)

	// SaveThumbnail stores one thumbnail rendition of the payload under
	// payloadKey, addressed by pixel dimensions.
	SaveThumbnail(ctx context.Context, file models.FileIdentifier, payloadKey string, width, height int, contentType string, content []byte) error

	// GetThumbnail returns a thumbnail rendition's content type and bytes,
	// or [ErrThumbnailNotFound].
	GetThumbnail(ctx context.Context, file models.FileIdentifier, payloadKey string, width, height int) (string, []byte, error)

	// UpdateTransferHistory upserts the per-recipient delivery record of a
	// source file.
	UpdateTransferHistory(ctx context.Context, file models.FileIdentifier, update models.TransferHistoryUpdate) error

	GetTransferHistory(ctx context.Context, file models.FileIdentifier) ([]models.TransferHistoryEntry, error)

	// HasOutstandingDeliveries reports whether any recipient of file still
	// has an item in the outbox, per the transfer history records.
	HasOutstandingDeliveries(ctx context.Context, file models.FileIdentifier) (bool, error)
}

// OutboxRepository is the durable peer-delivery queue. Claiming marks items
// with a per-item marker so concurrent processors never pick the same item;
// completion and failure address items by marker only.
type OutboxRepository interface {
	// Add enqueues items. One row per (file, recipient).
	Add(ctx context.Context, items ...models.OutboxFileItem) error

	// GetBatchForProcessing atomically claims up to limit due items on the
	// drive, ordered by priority then enqueue order, skipping rows locked
	// by concurrent claims. Claimed items return with fresh markers.
	GetBatchForProcessing(ctx context.Context, driveID uuid.UUID, limit int) ([]models.OutboxFileItem, error)

	// MarkComplete removes the claimed item addressed by marker.
	MarkComplete(ctx context.Context, marker uuid.UUID) error

	// MarkFailure releases the claim, bumps the attempt count and re-arms
	// the item at nextRun.
	MarkFailure(ctx context.Context, marker uuid.UUID, nextRun int64) error

	// RecoverDead releases claims older than olderThanMs, returning the
	// number of items recovered.
	RecoverDead(ctx context.Context, olderThanMs int64) (int64, error)

	// Status summarizes the drive's queue.
	Status(ctx context.Context, driveID uuid.UUID) (models.OutboxStatus, error)

	// NextRun returns the earliest next-run stamp across all unclaimed
	// items, or 0 when the queue is empty.
	NextRun(ctx context.Context) (int64, error)

	// DrivesWithWork lists the drives holding at least one due unclaimed
	// item at nowMs.
	DrivesWithWork(ctx context.Context, nowMs int64) ([]uuid.UUID, error)
}

// EscrowRepository parks (file, recipient) pairs whose transfer credential
// could not be resolved at enqueue time.
type EscrowRepository interface {
	Upsert(ctx context.Context, item models.KeyEscrowItem) error
	GetByRecipient(ctx context.Context, recipient string) ([]models.KeyEscrowItem, error)

	// ListRecipients returns the distinct recipients with parked items, for
	// the reconciliation pass.
	ListRecipients(ctx context.Context) ([]string, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
