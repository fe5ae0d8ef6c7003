// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package delivery

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/access"
	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/models"
)

const sealingKeyLen = 32

// ParseSealingKey decodes the hex-encoded outbox sealing key from the host
// configuration.
func ParseSealingKey(hexKey string) (crypto.SensitiveBytes, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSealingKey, err)
	}
	if len(raw) != sealingKeyLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSealingKey, len(raw), sealingKeyLen)
	}
	return raw, nil
}

// outboxItemState is the serialized per-item payload carried in the outbox
// row: the instruction header built at enqueue time plus the flags the
// worker needs to finish packaging at transmit time.
type outboxItemState struct {
	Instructions models.TransferInstructionSet `json:"instructions"`
	StripSender  bool                          `json:"stripSender,omitempty"`

	// LinkedFile addresses the remote copy for delete and read-receipt
	// items.
	LinkedFile *models.GlobalTransitFileIdentifier `json:"linkedFile,omitempty"`
}

type sender struct {
	outbox      store.OutboxRepository
	files       store.FileRepository
	drives      store.DriveRepository
	escrow      store.EscrowRepository
	connections ConnectionResolver
	processor   Processor

	sealingKey crypto.SensitiveBytes

	logger *logger.Logger
}

// NewSender wires the enqueue side of the delivery pipeline. sealingKey is
// the decoded outbox sealing key (see [ParseSealingKey]).
func NewSender(
	outbox store.OutboxRepository,
	files store.FileRepository,
	drives store.DriveRepository,
	escrow store.EscrowRepository,
	connections ConnectionResolver,
	processor Processor,
	sealingKey crypto.SensitiveBytes,
	logger *logger.Logger,
) (Sender, error) {
	if len(sealingKey) != sealingKeyLen {
		return nil, ErrInvalidSealingKey
	}

	return &sender{
		outbox:      outbox,
		files:       files,
		drives:      drives,
		escrow:      escrow,
		connections: connections,
		processor:   processor,
		sealingKey:  sealingKey,
		logger:      logger,
	}, nil
}

func (s *sender) SendFile(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	return s.enqueue(ctx, models.OutboxItemFile, storageKey, file, opts)
}

func (s *sender) SendPayloadUpdate(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	return s.enqueue(ctx, models.OutboxItemPayloadUpdate, storageKey, file, opts)
}

func (s *sender) SendDeleteLinkedFile(ctx context.Context, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	return s.enqueue(ctx, models.OutboxItemDeleteFile, nil, file, opts)
}

func (s *sender) SendReadReceipt(ctx context.Context, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	return s.enqueue(ctx, models.OutboxItemReadReceipt, nil, file, opts)
}

func (s *sender) DistributeFeedItem(ctx context.Context, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	// Feed items always land on the recipient's feed drive, header only.
	opts.RemoteTargetDrive = &models.FeedDrive
	opts.SendContents = models.SendContentsHeaderOnly
	return s.enqueue(ctx, models.OutboxItemFeedItem, storageKey, file, opts)
}

func (s *sender) enqueue(ctx context.Context, itemType models.OutboxItemType, storageKey crypto.SensitiveBytes, file models.FileIdentifier, opts models.SendOptions) (map[string]models.TransferStatus, error) {
	log := logger.FromContext(ctx)

	if len(opts.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	header, err := s.files.GetHeader(ctx, file)
	if err != nil {
		return nil, err
	}

	target, err := s.resolveTargetDrive(ctx, file, opts)
	if err != nil {
		return nil, err
	}

	globalTransitID, err := s.resolveGlobalTransitID(ctx, &header, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	statuses := make(map[string]models.TransferStatus, len(opts.Recipients))
	var items []models.OutboxFileItem

	for _, recipient := range opts.Recipients {
		token, err := s.resolveCredential(ctx, recipient)
		if err != nil {
			log.Warn().Err(err).
				Str("func", "delivery.sender.enqueue").
				Str("recipient", recipient).
				Str("file_id", file.FileID.String()).
				Msg("credential resolution failed; parking in key escrow")

			s.parkInEscrow(ctx, itemType, file, recipient, opts, now)
			statuses[recipient] = models.TransferStatusAwaitingTransferKey
			continue
		}

		item, err := s.buildItem(itemType, header, file, recipient, target, globalTransitID, storageKey, token, opts, now)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
		statuses[recipient] = models.TransferStatusTransferKeyCreated

		if err := s.files.UpdateTransferHistory(ctx, file, models.TransferHistoryUpdate{
			Recipient:            recipient,
			IsInOutbox:           true,
			LatestTransferStatus: models.TransferResultUnknownError,
		}); err != nil {
			return nil, err
		}
	}

	if len(items) > 0 {
		if err := s.outbox.Add(ctx, items...); err != nil {
			return nil, err
		}
	}

	if opts.Schedule == models.ScheduleSendNowAwaitResponse && len(items) > 0 {
		if _, err := s.processor.ProcessDrive(ctx, file.DriveID); err != nil {
			return statuses, err
		}
		if err := s.refreshStatuses(ctx, file, statuses); err != nil {
			return statuses, err
		}
	}

	return statuses, nil
}

func (s *sender) buildItem(
	itemType models.OutboxItemType,
	header models.ServerFileHeader,
	file models.FileIdentifier,
	recipient string,
	target models.TargetDrive,
	globalTransitID uuid.UUID,
	storageKey crypto.SensitiveBytes,
	token models.ClientAccessToken,
	opts models.SendOptions,
	now int64,
) (models.OutboxFileItem, error) {
	state := outboxItemState{
		Instructions: models.TransferInstructionSet{
			TargetDrive:     target,
			GlobalTransitID: globalTransitID,
			SendContents:    opts.SendContents,
		},
		StripSender: opts.StripSender,
	}

	switch itemType {
	case models.OutboxItemDeleteFile, models.OutboxItemReadReceipt:
		state.LinkedFile = &models.GlobalTransitFileIdentifier{
			TargetDrive:     target,
			GlobalTransitID: globalTransitID,
		}
	default:
		encryptedHeader, err := reencryptKeyHeader(header, storageKey, token.SharedSecret)
		if err != nil {
			return models.OutboxFileItem{}, err
		}
		state.Instructions.SharedSecretEncryptedKeyHeader = encryptedHeader
	}

	rawState, err := json.Marshal(state)
	if err != nil {
		return models.OutboxFileItem{}, err
	}

	authToken := token.ToAuthToken()
	portable := authToken.ToPortableBytes()
	sealed, err := crypto.SealCredential(portable, s.sealingKey)
	for i := range portable {
		portable[i] = 0
	}
	if err != nil {
		return models.OutboxFileItem{}, err
	}

	return models.OutboxFileItem{
		File:                     file,
		Recipient:                recipient,
		Type:                     itemType,
		NextRun:                  now,
		EncryptedClientAuthToken: sealed,
		State:                    rawState,
		IsTransient:              opts.IsTransient,
		Created:                  now,
	}, nil
}

// reencryptKeyHeader unwraps the file's content key header with the drive
// storage key and re-wraps it with the recipient connection's shared secret.
// Unencrypted files ship an empty header.
func reencryptKeyHeader(header models.ServerFileHeader, storageKey, sharedSecret crypto.SensitiveBytes) (models.EncryptedKeyHeader, error) {
	if !header.FileMetadata.IsEncrypted || header.EncryptedKeyHeader.IsEmpty() {
		return models.EncryptedKeyHeader{}, nil
	}
	return crypto.ReencryptKeyHeader(header.EncryptedKeyHeader, storageKey, sharedSecret)
}

func (s *sender) resolveCredential(ctx context.Context, recipient string) (models.ClientAccessToken, error) {
	icr, err := s.connections.Get(ctx, recipient)
	if err != nil {
		return models.ClientAccessToken{}, err
	}
	if !icr.IsConnected() {
		return models.ClientAccessToken{}, fmt.Errorf("%w: %s is not connected", access.ErrSecurity, recipient)
	}
	return icr.ClientAccessTokenValue()
}

func (s *sender) parkInEscrow(ctx context.Context, itemType models.OutboxItemType, file models.FileIdentifier, recipient string, opts models.SendOptions, now int64) {
	log := logger.FromContext(ctx)

	// The parked copy replays later for this one recipient, asynchronously.
	opts.Recipients = nil
	opts.Schedule = models.ScheduleSendLater

	err := s.escrow.Upsert(ctx, models.KeyEscrowItem{
		ID:            uuid.New(),
		File:          file,
		Recipient:     recipient,
		Type:          itemType,
		Options:       opts,
		Attempts:      1,
		FirstAddedMs:  now,
		LastAttemptMs: now,
	})
	if err != nil {
		log.Err(err).
			Str("func", "delivery.sender.parkInEscrow").
			Str("recipient", recipient).
			Msg("failed to park item in key escrow")
	}
}

func (s *sender) resolveTargetDrive(ctx context.Context, file models.FileIdentifier, opts models.SendOptions) (models.TargetDrive, error) {
	if opts.RemoteTargetDrive != nil {
		return *opts.RemoteTargetDrive, nil
	}
	drive, err := s.drives.Get(ctx, file.DriveID)
	if err != nil {
		return models.TargetDrive{}, err
	}
	return drive.TargetDrive, nil
}

// resolveGlobalTransitID picks the id the file travels under. A file sent
// for the first time gets one minted and persisted so later sends and the
// remote copy agree.
func (s *sender) resolveGlobalTransitID(ctx context.Context, header *models.ServerFileHeader, opts models.SendOptions) (uuid.UUID, error) {
	if opts.OverrideGlobalTransitID != nil {
		return *opts.OverrideGlobalTransitID, nil
	}
	if header.FileMetadata.GlobalTransitID != uuid.Nil {
		return header.FileMetadata.GlobalTransitID, nil
	}

	header.FileMetadata.GlobalTransitID = uuid.New()
	if err := s.files.SaveHeader(ctx, *header); err != nil {
		return uuid.Nil, err
	}
	return header.FileMetadata.GlobalTransitID, nil
}

// refreshStatuses replaces enqueue-time statuses with the outcome recorded
// in transfer history after a synchronous processing pass.
func (s *sender) refreshStatuses(ctx context.Context, file models.FileIdentifier, statuses map[string]models.TransferStatus) error {
	history, err := s.files.GetTransferHistory(ctx, file)
	if err != nil {
		return err
	}

	for _, entry := range history {
		if status, ok := statuses[entry.Recipient]; !ok || status != models.TransferStatusTransferKeyCreated {
			continue
		}
		statuses[entry.Recipient] = statusFromHistory(entry)
	}
	return nil
}

func statusFromHistory(entry models.TransferHistoryEntry) models.TransferStatus {
	switch {
	case entry.LatestTransferStatus == models.TransferResultSuccess:
		return models.TransferStatusDeliveredToInbox
	case entry.LatestTransferStatus == models.TransferResultRecipientReturnedAccessDenied:
		return models.TransferStatusRecipientReturnedAccessDenied
	case entry.LatestTransferStatus == models.TransferResultFileDoesNotAllowDistribution:
		return models.TransferStatusFileDoesNotAllowDistribution
	case entry.IsInOutbox:
		return models.TransferStatusPendingRetry
	default:
		return models.TransferStatusTotalRejection
	}
}
