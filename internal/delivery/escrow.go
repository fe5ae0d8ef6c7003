// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package delivery

import (
	"context"
	"time"

	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/models"
)

type escrowReconciler struct {
	escrow      store.EscrowRepository
	connections ConnectionResolver
	sender      Sender

	logger *logger.Logger
}

// NewEscrowReconciler wires the retry side of the key escrow queue.
func NewEscrowReconciler(escrow store.EscrowRepository, connections ConnectionResolver, sender Sender, log *logger.Logger) EscrowReconciler {
	return &escrowReconciler{
		escrow:      escrow,
		connections: connections,
		sender:      sender,
		logger:      log,
	}
}

// Reconcile walks every recipient holding parked items and re-enqueues the
// ones whose connection is live again. Files whose key header needs the
// owner's drive storage key cannot be re-keyed from a background pass and
// stay parked with a bumped attempt counter.
func (r *escrowReconciler) Reconcile(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	recipients, err := r.escrow.ListRecipients(ctx)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, recipient := range recipients {
		icr, err := r.connections.Get(ctx, recipient)
		if err != nil {
			log.Err(err).
				Str("func", "delivery.escrowReconciler.Reconcile").
				Str("recipient", recipient).
				Msg("cannot resolve connection for parked recipient")
			continue
		}
		if !icr.IsConnected() {
			continue
		}

		n, err := r.reconcileRecipient(ctx, recipient)
		released += n
		if err != nil {
			return released, err
		}
	}

	return released, nil
}

func (r *escrowReconciler) reconcileRecipient(ctx context.Context, recipient string) (int, error) {
	log := logger.FromContext(ctx)

	items, err := r.escrow.GetByRecipient(ctx, recipient)
	if err != nil {
		return 0, err
	}

	released := 0
	now := time.Now().UnixMilli()

	for _, item := range items {
		statuses, err := r.replay(ctx, item, recipient)
		if err != nil || statuses[recipient] == models.TransferStatusAwaitingTransferKey {
			item.Attempts++
			item.LastAttemptMs = now
			if upsertErr := r.escrow.Upsert(ctx, item); upsertErr != nil {
				log.Err(upsertErr).
					Str("func", "delivery.escrowReconciler.reconcileRecipient").
					Str("recipient", recipient).
					Msg("failed to bump parked item")
			}
			continue
		}

		if err := r.escrow.Delete(ctx, item.ID); err != nil {
			log.Err(err).
				Str("func", "delivery.escrowReconciler.reconcileRecipient").
				Str("recipient", recipient).
				Msg("failed to release parked item")
			continue
		}
		released++

		log.Info().
			Str("func", "delivery.escrowReconciler.reconcileRecipient").
			Str("recipient", recipient).
			Str("file_id", item.File.FileID.String()).
			Msg("parked delivery re-enqueued")
	}

	return released, nil
}

// replay re-runs the operation that was parked, for the one recipient the
// row belongs to. A parked delete must come back as a delete, never as a
// fresh file send.
func (r *escrowReconciler) replay(ctx context.Context, item models.KeyEscrowItem, recipient string) (map[string]models.TransferStatus, error) {
	opts := item.Options
	opts.Recipients = []string{recipient}
	opts.Schedule = models.ScheduleSendLater

	switch item.Type {
	case models.OutboxItemPayloadUpdate:
		return r.sender.SendPayloadUpdate(ctx, nil, item.File, opts)
	case models.OutboxItemDeleteFile:
		return r.sender.SendDeleteLinkedFile(ctx, item.File, opts)
	case models.OutboxItemReadReceipt:
		return r.sender.SendReadReceipt(ctx, item.File, opts)
	case models.OutboxItemFeedItem:
		return r.sender.DistributeFeedItem(ctx, nil, item.File, opts)
	default:
		return r.sender.SendFile(ctx, nil, item.File, opts)
	}
}
