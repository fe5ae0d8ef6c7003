// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/adapter"
	"github.com/MKhiriev/identity-host/internal/config"
	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/models"
)

const (
	defaultBatchSize   = 20
	defaultMaxAttempts = 10
	defaultReclaim     = 10 * time.Minute
)

type processor struct {
	outbox store.OutboxRepository
	files  store.FileRepository
	peer   adapter.PeerTransferClient

	backoff      Backoff
	batchSize    int
	maxAttempts  int
	reclaimAfter time.Duration
	sealingKey   crypto.SensitiveBytes

	logger *logger.Logger
}

// NewProcessor wires the draining side of the delivery pipeline. sealingKey
// is the decoded outbox sealing key (see [ParseSealingKey]).
func NewProcessor(
	outbox store.OutboxRepository,
	files store.FileRepository,
	peer adapter.PeerTransferClient,
	cfg config.Outbox,
	sealingKey crypto.SensitiveBytes,
	logger *logger.Logger,
) (Processor, error) {
	if len(sealingKey) != sealingKeyLen {
		return nil, ErrInvalidSealingKey
	}

	p := &processor{
		outbox:       outbox,
		files:        files,
		peer:         peer,
		backoff:      NewBackoff(cfg),
		batchSize:    cfg.BatchSize,
		maxAttempts:  cfg.MaxAttempts,
		reclaimAfter: cfg.ReclaimAfter,
		sealingKey:   sealingKey,
		logger:       logger,
	}
	if p.batchSize <= 0 {
		p.batchSize = defaultBatchSize
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = defaultMaxAttempts
	}
	if p.reclaimAfter <= 0 {
		p.reclaimAfter = defaultReclaim
	}

	return p, nil
}

func (p *processor) ProcessOutbox(ctx context.Context) (int, error) {
	driveIDs, err := p.outbox.DrivesWithWork(ctx, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}

	total := 0
	for _, driveID := range driveIDs {
		n, err := p.ProcessDrive(ctx, driveID)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (p *processor) ProcessDrive(ctx context.Context, driveID uuid.UUID) (int, error) {
	items, err := p.outbox.GetBatchForProcessing(ctx, driveID, p.batchSize)
	if err != nil {
		return 0, err
	}

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item models.OutboxFileItem) {
			defer wg.Done()
			p.processItem(ctx, item)
		}(item)
	}
	wg.Wait()

	return len(items), nil
}

func (p *processor) RecoverDeadClaims(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-p.reclaimAfter).UnixMilli()
	return p.outbox.RecoverDead(ctx, cutoff)
}

// processItem runs one delivery attempt end to end. Every path resolves to
// a recorded outcome; nothing escapes the claim.
func (p *processor) processItem(ctx context.Context, item models.OutboxFileItem) {
	if item.AttemptCount >= p.maxAttempts {
		p.resolveOutcome(ctx, item, models.TransferResultTooManyAttempts, uuid.Nil)
		return
	}

	result, versionTag := p.attempt(ctx, item)
	p.resolveOutcome(ctx, item, result, versionTag)
}

func (p *processor) attempt(ctx context.Context, item models.OutboxFileItem) (models.TransferResult, uuid.UUID) {
	log := logger.FromContext(ctx)

	token, err := p.openCredential(item)
	if err != nil {
		log.Warn().Err(err).
			Str("func", "delivery.processor.attempt").
			Str("recipient", item.Recipient).
			Msg("cannot open delivery credential")
		return models.TransferResultNoCredential, uuid.Nil
	}

	var state outboxItemState
	if err := json.Unmarshal(item.State, &state); err != nil {
		log.Err(err).
			Str("func", "delivery.processor.attempt").
			Str("recipient", item.Recipient).
			Msg("corrupt outbox item state")
		return models.TransferResultUnknownError, uuid.Nil
	}

	switch item.Type {
	case models.OutboxItemFile, models.OutboxItemFeedItem:
		return p.sendFile(ctx, item, state, token)
	case models.OutboxItemPayloadUpdate:
		return p.sendPayloadUpdate(ctx, item, state, token)
	case models.OutboxItemDeleteFile:
		return p.sendDelete(ctx, item, state, token)
	case models.OutboxItemReadReceipt:
		return p.sendReadReceipt(ctx, item, state, token)
	default:
		log.Error().
			Str("func", "delivery.processor.attempt").
			Int("type", int(item.Type)).
			Msg("unmapped outbox item type")
		return models.TransferResultUnknownError, uuid.Nil
	}
}

func (p *processor) sendFile(ctx context.Context, item models.OutboxFileItem, state outboxItemState, token models.ClientAuthToken) (models.TransferResult, uuid.UUID) {
	header, result := p.distributableHeader(ctx, item)
	if result != models.TransferResultSuccess {
		return result, uuid.Nil
	}

	pkg := adapter.TransferPackage{
		Instructions: state.Instructions,
		Metadata:     header.FileMetadata.Redacted(state.StripSender, state.Instructions.GlobalTransitID),
	}

	if state.Instructions.SendContents.Has(models.SendContentsPayload) {
		parts, err := p.payloadParts(ctx, item.File, header.FileMetadata.Payloads)
		if err != nil {
			return models.TransferResultUnknownError, uuid.Nil
		}
		pkg.Payloads = parts
	}
	if state.Instructions.SendContents.Has(models.SendContentsThumbnails) {
		parts, err := p.thumbnailParts(ctx, item.File, header.FileMetadata.Payloads)
		if err != nil {
			return models.TransferResultUnknownError, uuid.Nil
		}
		pkg.Payloads = append(pkg.Payloads, parts...)
	}

	code, err := p.peer.SendHostToHost(ctx, item.Recipient, token, pkg)
	if err != nil {
		return adapter.ClassifyError(err), uuid.Nil
	}

	result = adapter.ClassifyPeerResponse(code)
	if result == models.TransferResultSuccess {
		return result, header.FileMetadata.VersionTag
	}
	return result, uuid.Nil
}

func (p *processor) sendPayloadUpdate(ctx context.Context, item models.OutboxFileItem, state outboxItemState, token models.ClientAuthToken) (models.TransferResult, uuid.UUID) {
	header, result := p.distributableHeader(ctx, item)
	if result != models.TransferResultSuccess {
		return result, uuid.Nil
	}

	parts, err := p.payloadParts(ctx, item.File, header.FileMetadata.Payloads)
	if err != nil {
		return models.TransferResultUnknownError, uuid.Nil
	}

	// A payload update replaces the renditions along with the payloads.
	thumbs, err := p.thumbnailParts(ctx, item.File, header.FileMetadata.Payloads)
	if err != nil {
		return models.TransferResultUnknownError, uuid.Nil
	}

	pkg := adapter.TransferPackage{
		Instructions: state.Instructions,
		Payloads:     append(parts, thumbs...),
	}

	code, err := p.peer.UpdatePayloads(ctx, item.Recipient, token, pkg)
	if err != nil {
		return adapter.ClassifyError(err), uuid.Nil
	}

	result = adapter.ClassifyPeerResponse(code)
	if result == models.TransferResultSuccess {
		return result, header.FileMetadata.VersionTag
	}
	return result, uuid.Nil
}

func (p *processor) sendDelete(ctx context.Context, item models.OutboxFileItem, state outboxItemState, token models.ClientAuthToken) (models.TransferResult, uuid.UUID) {
	if state.LinkedFile == nil {
		return models.TransferResultUnknownError, uuid.Nil
	}

	code, err := p.peer.DeleteLinkedFile(ctx, item.Recipient, token, *state.LinkedFile)
	if err != nil {
		return adapter.ClassifyError(err), uuid.Nil
	}
	return adapter.ClassifyPeerResponse(code), uuid.Nil
}

func (p *processor) sendReadReceipt(ctx context.Context, item models.OutboxFileItem, state outboxItemState, token models.ClientAuthToken) (models.TransferResult, uuid.UUID) {
	if state.LinkedFile == nil {
		return models.TransferResultUnknownError, uuid.Nil
	}

	code, err := p.peer.MarkFileAsRead(ctx, item.Recipient, token, *state.LinkedFile)
	if err != nil {
		return adapter.ClassifyError(err), uuid.Nil
	}
	return adapter.ClassifyPeerResponse(code), uuid.Nil
}

// distributableHeader loads the source header and re-checks the
// distribution flag at the last moment before transmission.
func (p *processor) distributableHeader(ctx context.Context, item models.OutboxFileItem) (models.ServerFileHeader, models.TransferResult) {
	header, err := p.files.GetHeader(ctx, item.File)
	if err != nil {
		return models.ServerFileHeader{}, models.TransferResultUnknownError
	}
	if !header.ServerMetadata.AllowDistribution {
		// Recoverable: the source flag may flip back.
		return models.ServerFileHeader{}, models.TransferResultFileDoesNotAllowDistribution
	}
	return header, models.TransferResultSuccess
}

func (p *processor) payloadParts(ctx context.Context, file models.FileIdentifier, descriptors []models.PayloadDescriptor) ([]adapter.PayloadPart, error) {
	var parts []adapter.PayloadPart
	for _, desc := range descriptors {
		contentType, content, err := p.files.GetPayload(ctx, file, desc.Key)
		if errors.Is(err, store.ErrPayloadNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, adapter.PayloadPart{
			Key:         desc.Key,
			ContentType: contentType,
			Content:     content,
		})
	}
	return parts, nil
}

// thumbnailParts collects every stored rendition advertised by the payload
// descriptors. Renditions travel as key-addressed parts next to their
// payloads; a descriptor advertising a rendition that was never stored is
// skipped, matching payloadParts.
func (p *processor) thumbnailParts(ctx context.Context, file models.FileIdentifier, descriptors []models.PayloadDescriptor) ([]adapter.PayloadPart, error) {
	var parts []adapter.PayloadPart
	for _, desc := range descriptors {
		for _, thumb := range desc.Thumbnails {
			contentType, content, err := p.files.GetThumbnail(ctx, file, desc.Key, thumb.PixelWidth, thumb.PixelHeight)
			if errors.Is(err, store.ErrThumbnailNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			parts = append(parts, adapter.PayloadPart{
				Key:         models.ThumbnailPartKey(desc.Key, thumb.PixelWidth, thumb.PixelHeight),
				ContentType: contentType,
				Content:     content,
			})
		}
	}
	return parts, nil
}

func (p *processor) openCredential(item models.OutboxFileItem) (models.ClientAuthToken, error) {
	if len(item.EncryptedClientAuthToken) == 0 {
		return models.ClientAuthToken{}, ErrNoCredential
	}

	raw, err := crypto.OpenCredential(item.EncryptedClientAuthToken, p.sealingKey)
	if err != nil {
		return models.ClientAuthToken{}, fmt.Errorf("%w: %w", ErrNoCredential, err)
	}
	defer raw.Wipe()

	token, err := models.ClientAuthTokenFromPortableBytes(raw)
	if err != nil {
		return models.ClientAuthToken{}, fmt.Errorf("%w: %w", ErrNoCredential, err)
	}
	return token, nil
}

// resolveOutcome applies the attempt's classification: success and
// unrecoverable failures remove the item, recoverable failures release the
// claim with a future next-run time. Bookkeeping failures are logged and
// swallowed so the claim is never left dangling by a secondary error.
func (p *processor) resolveOutcome(ctx context.Context, item models.OutboxFileItem, result models.TransferResult, versionTag uuid.UUID) {
	log := logger.FromContext(ctx)

	update := models.TransferHistoryUpdate{
		Recipient:            item.Recipient,
		LatestTransferStatus: result,
	}

	switch {
	case result == models.TransferResultSuccess:
		update.IsInOutbox = false
		update.VersionTag = versionTag
		p.completeItem(ctx, item, update)
		p.maybeDeleteTransient(ctx, item)

	case result.IsRecoverable():
		delay := p.backoff.Next(item.AttemptCount)
		if result == models.TransferResultProcessingCancelled {
			// Shutdown mid-attempt: come back quickly, not on the full
			// failure curve.
			delay = p.backoff.Base
		}
		nextRun := time.Now().Add(delay).UnixMilli()

		if err := p.outbox.MarkFailure(ctx, item.Marker, nextRun); err != nil {
			log.Err(err).
				Str("func", "delivery.processor.resolveOutcome").
				Str("marker", item.Marker.String()).
				Msg("failed to re-arm outbox item")
		}

		update.IsInOutbox = true
		if err := p.files.UpdateTransferHistory(ctx, item.File, update); err != nil {
			log.Err(err).
				Str("func", "delivery.processor.resolveOutcome").
				Str("recipient", item.Recipient).
				Msg("failed to record recoverable outcome")
		}

		log.Info().
			Str("func", "delivery.processor.resolveOutcome").
			Str("recipient", item.Recipient).
			Str("result", result.String()).
			Int("attempt", item.AttemptCount+1).
			Int64("next_run", nextRun).
			Msg("delivery re-armed")

	default:
		update.IsInOutbox = false
		p.completeItem(ctx, item, update)
		// A terminal failure is still the end of this item's life; the
		// transient source must not outlive its last delivery.
		p.maybeDeleteTransient(ctx, item)

		log.Warn().
			Str("func", "delivery.processor.resolveOutcome").
			Str("recipient", item.Recipient).
			Str("result", result.String()).
			Msg("delivery failed terminally")
	}
}

func (p *processor) completeItem(ctx context.Context, item models.OutboxFileItem, update models.TransferHistoryUpdate) {
	log := logger.FromContext(ctx)

	if err := p.outbox.MarkComplete(ctx, item.Marker); err != nil {
		log.Err(err).
			Str("func", "delivery.processor.completeItem").
			Str("marker", item.Marker.String()).
			Msg("failed to remove outbox item")
	}
	if err := p.files.UpdateTransferHistory(ctx, item.File, update); err != nil {
		log.Err(err).
			Str("func", "delivery.processor.completeItem").
			Str("recipient", item.Recipient).
			Msg("failed to record outcome")
	}
}

// maybeDeleteTransient hard-deletes a transient source file once no
// recipient still has it in the outbox.
func (p *processor) maybeDeleteTransient(ctx context.Context, item models.OutboxFileItem) {
	if !item.IsTransient {
		return
	}
	log := logger.FromContext(ctx)

	outstanding, err := p.files.HasOutstandingDeliveries(ctx, item.File)
	if err != nil {
		log.Err(err).
			Str("func", "delivery.processor.maybeDeleteTransient").
			Str("file_id", item.File.FileID.String()).
			Msg("failed to count outstanding deliveries")
		return
	}
	if outstanding {
		return
	}

	if err := p.files.DeleteFile(ctx, item.File); err != nil {
		log.Err(err).
			Str("func", "delivery.processor.maybeDeleteTransient").
			Str("file_id", item.File.FileID.String()).
			Msg("failed to hard-delete transient file")
		return
	}

	log.Info().
		Str("func", "delivery.processor.maybeDeleteTransient").
		Str("file_id", item.File.FileID.String()).
		Msg("transient file delivered to all recipients; removed")
}
