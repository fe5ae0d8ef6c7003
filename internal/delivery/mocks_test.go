package delivery

import (
	"context"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/adapter"
	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/models"
)

// ─────────────────────────────────────────────
// Mock: store.OutboxRepository
// ─────────────────────────────────────────────

type mockOutboxRepository struct {
	addFn                   func(ctx context.Context, items ...models.OutboxFileItem) error
	getBatchForProcessingFn func(ctx context.Context, driveID uuid.UUID, limit int) ([]models.OutboxFileItem, error)
	markCompleteFn          func(ctx context.Context, marker uuid.UUID) error
	markFailureFn           func(ctx context.Context, marker uuid.UUID, nextRun int64) error
	recoverDeadFn           func(ctx context.Context, olderThanMs int64) (int64, error)
	statusFn                func(ctx context.Context, driveID uuid.UUID) (models.OutboxStatus, error)
	nextRunFn               func(ctx context.Context) (int64, error)
	drivesWithWorkFn        func(ctx context.Context, nowMs int64) ([]uuid.UUID, error)
}

func (m *mockOutboxRepository) Add(ctx context.Context, items ...models.OutboxFileItem) error {
	if m.addFn != nil {
		return m.addFn(ctx, items...)
	}
	return nil
}

func (m *mockOutboxRepository) GetBatchForProcessing(ctx context.Context, driveID uuid.UUID, limit int) ([]models.OutboxFileItem, error) {
	if m.getBatchForProcessingFn != nil {
		return m.getBatchForProcessingFn(ctx, driveID, limit)
	}
	return nil, nil
}

func (m *mockOutboxRepository) MarkComplete(ctx context.Context, marker uuid.UUID) error {
	if m.markCompleteFn != nil {
		return m.markCompleteFn(ctx, marker)
	}
	return nil
}

func (m *mockOutboxRepository) MarkFailure(ctx context.Context, marker uuid.UUID, nextRun int64) error {
	if m.markFailureFn != nil {
		return m.markFailureFn(ctx, marker, nextRun)
	}
	return nil
}

func (m *mockOutboxRepository) RecoverDead(ctx context.Context, olderThanMs int64) (int64, error) {
	if m.recoverDeadFn != nil {
		return m.recoverDeadFn(ctx, olderThanMs)
	}
	return 0, nil
}

func (m *mockOutboxRepository) Status(ctx context.Context, driveID uuid.UUID) (models.OutboxStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, driveID)
	}
	return models.OutboxStatus{}, nil
}

func (m *mockOutboxRepository) NextRun(ctx context.Context) (int64, error) {
	if m.nextRunFn != nil {
		return m.nextRunFn(ctx)
	}
	return 0, nil
}

func (m *mockOutboxRepository) DrivesWithWork(ctx context.Context, nowMs int64) ([]uuid.UUID, error) {
	if m.drivesWithWorkFn != nil {
		return m.drivesWithWorkFn(ctx, nowMs)
	}
	return nil, nil
}

// ─────────────────────────────────────────────
// Mock: store.FileRepository
// ─────────────────────────────────────────────

type mockFileRepository struct {
	saveHeaderFn               func(ctx context.Context, header models.ServerFileHeader) error
	getHeaderFn                func(ctx context.Context, file models.FileIdentifier) (models.ServerFileHeader, error)
	deleteFileFn               func(ctx context.Context, file models.FileIdentifier) error
	savePayloadFn              func(ctx context.Context, file models.FileIdentifier, key, contentType string, content []byte) error
	getPayloadFn               func(ctx context.Context, file models.FileIdentifier, key string) (string, []byte, error)
	saveThumbnailFn            func(ctx context.Context, file models.FileIdentifier, payloadKey string, width, height int, contentType string, content []byte) error
	getThumbnailFn             func(ctx context.Context, file models.FileIdentifier, payloadKey string, width, height int) (string, []byte, error)
	updateTransferHistoryFn    func(ctx context.Context, file models.FileIdentifier, update models.TransferHistoryUpdate) error
	getTransferHistoryFn       func(ctx context.Context, file models.FileIdentifier) ([]models.TransferHistoryEntry, error)
	hasOutstandingDeliveriesFn func(ctx context.Context, file models.FileIdentifier) (bool, error)
}

func (m *mockFileRepository) SaveHeader(ctx context.Context, header models.ServerFileHeader) error {
	if m.saveHeaderFn != nil {
		return m.saveHeaderFn(ctx, header)
	}
	return nil
}

func (m *mockFileRepository) GetHeader(ctx context.Context, file models.FileIdentifier) (models.ServerFileHeader, error) {
	if m.getHeaderFn != nil {
		return m.getHeaderFn(ctx, file)
	}
	return models.ServerFileHeader{}, nil
}

func (m *mockFileRepository) DeleteFile(ctx context.Context, file models.FileIdentifier) error {
	if m.deleteFileFn != nil {
		return m.deleteFileFn(ctx, file)
	}
	return nil
}

func (m *mockFileRepository) SavePayload(ctx context.Context, file models.FileIdentifier, key, contentType string, content []byte) error {
	if m.savePayloadFn != nil {
		return m.savePayloadFn(ctx, file, key, contentType, content)
	}
	return nil
}

func (m *mockFileRepository) GetPayload(ctx context.Context, file models.FileIdentifier, key string) (string, []byte, error) {
	if m.getPayloadFn != nil {
		return m.getPayloadFn(ctx, file, key)
	}
	return "application/octet-stream", nil, nil
}

func (m *mockFileRepository) SaveThumbnail(ctx context.Context, file models.FileIdentifier, payloadKey string, width, height int, contentType string, content []byte) error {
	if m.saveThumbnailFn != nil {
		return m.saveThumbnailFn(ctx, file, payloadKey, width, height, contentType, content)
	}
	return nil
}

func (m *mockFileRepository) GetThumbnail(ctx context.Context, file models.FileIdentifier, payloadKey string, width, height int) (string, []byte, error) {
	if m.getThumbnailFn != nil {
		return m.getThumbnailFn(ctx, file, payloadKey, width, height)
	}
	return "", nil, store.ErrThumbnailNotFound
}

func (m *mockFileRepository) UpdateTransferHistory(ctx context.Context, file models.FileIdentifier, update models.TransferHistoryUpdate) error {
	if m.updateTransferHistoryFn != nil {
		return m.updateTransferHistoryFn(ctx, file, update)
	}
	return nil
}

func (m *mockFileRepository) GetTransferHistory(ctx context.Context, file models.FileIdentifier) ([]models.TransferHistoryEntry, error) {
	if m.getTransferHistoryFn != nil {
		return m.getTransferHistoryFn(ctx, file)
	}
	return nil, nil
}

func (m *mockFileRepository) HasOutstandingDeliveries(ctx context.Context, file models.FileIdentifier) (bool, error) {
	if m.hasOutstandingDeliveriesFn != nil {
		return m.hasOutstandingDeliveriesFn(ctx, file)
	}
	return false, nil
}

// ─────────────────────────────────────────────
// Mock: store.DriveRepository
// ─────────────────────────────────────────────

type mockDriveRepository struct {
	upsertFn                 func(ctx context.Context, drive models.StorageDrive) error
	getFn                    func(ctx context.Context, driveID uuid.UUID) (models.StorageDrive, error)
	getByTargetFn            func(ctx context.Context, target models.TargetDrive) (models.StorageDrive, error)
	getAllFn                 func(ctx context.Context) ([]models.StorageDrive, error)
	getAnonymousReadDrivesFn func(ctx context.Context) ([]models.StorageDrive, error)
}

func (m *mockDriveRepository) Upsert(ctx context.Context, drive models.StorageDrive) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, drive)
	}
	return nil
}

func (m *mockDriveRepository) Get(ctx context.Context, driveID uuid.UUID) (models.StorageDrive, error) {
	if m.getFn != nil {
		return m.getFn(ctx, driveID)
	}
	return models.StorageDrive{ID: driveID}, nil
}

func (m *mockDriveRepository) GetByTarget(ctx context.Context, target models.TargetDrive) (models.StorageDrive, error) {
	if m.getByTargetFn != nil {
		return m.getByTargetFn(ctx, target)
	}
	return models.StorageDrive{}, nil
}

func (m *mockDriveRepository) GetAll(ctx context.Context) ([]models.StorageDrive, error) {
	if m.getAllFn != nil {
		return m.getAllFn(ctx)
	}
	return nil, nil
}

func (m *mockDriveRepository) GetAnonymousReadDrives(ctx context.Context) ([]models.StorageDrive, error) {
	if m.getAnonymousReadDrivesFn != nil {
		return m.getAnonymousReadDrivesFn(ctx)
	}
	return nil, nil
}

// ─────────────────────────────────────────────
// Mock: store.EscrowRepository
// ─────────────────────────────────────────────

type mockEscrowRepository struct {
	upsertFn         func(ctx context.Context, item models.KeyEscrowItem) error
	getByRecipientFn func(ctx context.Context, recipient string) ([]models.KeyEscrowItem, error)
	listRecipientsFn func(ctx context.Context) ([]string, error)
	deleteFn         func(ctx context.Context, id uuid.UUID) error
}

func (m *mockEscrowRepository) Upsert(ctx context.Context, item models.KeyEscrowItem) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, item)
	}
	return nil
}

func (m *mockEscrowRepository) GetByRecipient(ctx context.Context, recipient string) ([]models.KeyEscrowItem, error) {
	if m.getByRecipientFn != nil {
		return m.getByRecipientFn(ctx, recipient)
	}
	return nil, nil
}

func (m *mockEscrowRepository) ListRecipients(ctx context.Context) ([]string, error) {
	if m.listRecipientsFn != nil {
		return m.listRecipientsFn(ctx)
	}
	return nil, nil
}

func (m *mockEscrowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// ─────────────────────────────────────────────
// Mock: ConnectionResolver
// ─────────────────────────────────────────────

type mockConnectionResolver struct {
	getFn func(ctx context.Context, identity string) (models.IdentityConnectionRegistration, error)
}

func (m *mockConnectionResolver) Get(ctx context.Context, identity string) (models.IdentityConnectionRegistration, error) {
	if m.getFn != nil {
		return m.getFn(ctx, identity)
	}
	return models.IdentityConnectionRegistration{}, nil
}

// ─────────────────────────────────────────────
// Mock: Sender
// ─────────────────────────────────────────────

type mockSender struct {
	sendFileFn             func(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error)
	sendPayloadUpdateFn    func(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error)
	sendDeleteLinkedFileFn func(ctx context.Context, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error)
	sendReadReceiptFn      func(ctx context.Context, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error)
	distributeFeedItemFn   func(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error)
}

func (m *mockSender) SendFile(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	if m.sendFileFn != nil {
		return m.sendFileFn(ctx, storageKey, file, opts)
	}
	statuses := make(map[string]models.TransferStatus, len(opts.Recipients))
	for _, recipient := range opts.Recipients {
		statuses[recipient] = models.TransferStatusTransferKeyCreated
	}
	return statuses, nil
}

func (m *mockSender) SendPayloadUpdate(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	if m.sendPayloadUpdateFn != nil {
		return m.sendPayloadUpdateFn(ctx, storageKey, file, opts)
	}
	return nil, nil
}

func (m *mockSender) SendDeleteLinkedFile(ctx context.Context, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	if m.sendDeleteLinkedFileFn != nil {
		return m.sendDeleteLinkedFileFn(ctx, file, opts)
	}
	return nil, nil
}

func (m *mockSender) SendReadReceipt(ctx context.Context, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	if m.sendReadReceiptFn != nil {
		return m.sendReadReceiptFn(ctx, file, opts)
	}
	return nil, nil
}

func (m *mockSender) DistributeFeedItem(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	if m.distributeFeedItemFn != nil {
		return m.distributeFeedItemFn(ctx, storageKey, file, opts)
	}
	return nil, nil
}

// ─────────────────────────────────────────────
// Mock: adapter.PeerTransferClient
// ─────────────────────────────────────────────

type mockPeerClient struct {
	sendHostToHostFn   func(ctx context.Context, recipient string, token models.ClientAuthToken, pkg adapter.TransferPackage) (models.PeerResponseCode, error)
	updatePayloadsFn   func(ctx context.Context, recipient string, token models.ClientAuthToken, pkg adapter.TransferPackage) (models.PeerResponseCode, error)
	deleteLinkedFileFn func(ctx context.Context, recipient string, token models.ClientAuthToken, file models.GlobalTransitFileIdentifier) (models.PeerResponseCode, error)
	markFileAsReadFn   func(ctx context.Context, recipient string, token models.ClientAuthToken, file models.GlobalTransitFileIdentifier) (models.PeerResponseCode, error)
}

func (m *mockPeerClient) SendHostToHost(ctx context.Context, recipient string, token models.ClientAuthToken, pkg adapter.TransferPackage) (models.PeerResponseCode, error) {
	if m.sendHostToHostFn != nil {
		return m.sendHostToHostFn(ctx, recipient, token, pkg)
	}
	return models.PeerResponseAcceptedIntoInbox, nil
}

func (m *mockPeerClient) UpdatePayloads(ctx context.Context, recipient string, token models.ClientAuthToken, pkg adapter.TransferPackage) (models.PeerResponseCode, error) {
	if m.updatePayloadsFn != nil {
		return m.updatePayloadsFn(ctx, recipient, token, pkg)
	}
	return models.PeerResponseAcceptedIntoInbox, nil
}

func (m *mockPeerClient) DeleteLinkedFile(ctx context.Context, recipient string, token models.ClientAuthToken, file models.GlobalTransitFileIdentifier) (models.PeerResponseCode, error) {
	if m.deleteLinkedFileFn != nil {
		return m.deleteLinkedFileFn(ctx, recipient, token, file)
	}
	return models.PeerResponseAcceptedIntoInbox, nil
}

func (m *mockPeerClient) MarkFileAsRead(ctx context.Context, recipient string, token models.ClientAuthToken, file models.GlobalTransitFileIdentifier) (models.PeerResponseCode, error) {
	if m.markFileAsReadFn != nil {
		return m.markFileAsReadFn(ctx, recipient, token, file)
	}
	return models.PeerResponseAcceptedIntoInbox, nil
}

// ─────────────────────────────────────────────
// Mock: Processor
// ─────────────────────────────────────────────

type mockProcessor struct {
	processOutboxFn     func(ctx context.Context) (int, error)
	processDriveFn      func(ctx context.Context, driveID uuid.UUID) (int, error)
	recoverDeadClaimsFn func(ctx context.Context) (int64, error)
}

func (m *mockProcessor) ProcessOutbox(ctx context.Context) (int, error) {
	if m.processOutboxFn != nil {
		return m.processOutboxFn(ctx)
	}
	return 0, nil
}

func (m *mockProcessor) ProcessDrive(ctx context.Context, driveID uuid.UUID) (int, error) {
	if m.processDriveFn != nil {
		return m.processDriveFn(ctx, driveID)
	}
	return 0, nil
}

func (m *mockProcessor) RecoverDeadClaims(ctx context.Context) (int64, error) {
	if m.recoverDeadClaimsFn != nil {
		return m.recoverDeadClaimsFn(ctx)
	}
	return 0, nil
}
