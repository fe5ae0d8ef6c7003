package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

// escrowRepository is the PostgreSQL-backed implementation of
// [EscrowRepository]. One row per (file, recipient) pair; re-parking the
// same pair only bumps the attempt counters.
type escrowRepository struct {
	*DB
	logger *logger.Logger
}

// NewEscrowRepository constructs an [EscrowRepository] backed by the
// provided database connection and logger.
func NewEscrowRepository(db *DB, logger *logger.Logger) EscrowRepository {
	logger.Debug().Msg("creating key escrow repository")
	return &escrowRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *escrowRepository) Upsert(ctx context.Context, item models.KeyEscrowItem) error {
	log := logger.FromContext(ctx)

	options, err := json.Marshal(item.Options)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
	}

	if _, err := r.DB.ExecContext(ctx, upsertEscrowItem,
		item.ID,
		item.File.DriveID,
		item.File.FileID,
		item.Recipient,
		int(item.Type),
		options,
		item.Attempts,
		item.FirstAddedMs,
		item.LastAttemptMs,
	); err != nil {
		log.Err(err).
			Str("func", "escrowRepository.Upsert").
			Str("recipient", item.Recipient).
			Msg("failed to upsert escrow item")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *escrowRepository) GetByRecipient(ctx context.Context, recipient string) ([]models.KeyEscrowItem, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, getEscrowByRecipient, recipient)
	if err != nil {
		log.Err(err).
			Str("func", "escrowRepository.GetByRecipient").
			Str("recipient", recipient).
			Msg("failed to query escrow items")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	items := make([]models.KeyEscrowItem, 0, 8)
	for rows.Next() {
		var item models.KeyEscrowItem
		var itemType int
		var options []byte
		if err := rows.Scan(
			&item.ID,
			&item.File.DriveID,
			&item.File.FileID,
			&item.Recipient,
			&itemType,
			&options,
			&item.Attempts,
			&item.FirstAddedMs,
			&item.LastAttemptMs,
		); err != nil {
			log.Err(err).
				Str("func", "escrowRepository.GetByRecipient").
				Str("recipient", recipient).
				Msg("failed to scan escrow row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		item.Type = models.OutboxItemType(itemType)
		if len(options) > 0 {
			if err := json.Unmarshal(options, &item.Options); err != nil {
				log.Err(err).
					Str("func", "escrowRepository.GetByRecipient").
					Str("recipient", recipient).
					Msg("failed to unmarshal escrow options")
				return nil, fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "escrowRepository.GetByRecipient").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return items, nil
}

func (r *escrowRepository) ListRecipients(ctx context.Context) ([]string, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, listEscrowRecipients)
	if err != nil {
		log.Err(err).
			Str("func", "escrowRepository.ListRecipients").
			Msg("failed to query escrow recipients")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var recipients []string
	for rows.Next() {
		var recipient string
		if err := rows.Scan(&recipient); err != nil {
			log.Err(err).
				Str("func", "escrowRepository.ListRecipients").
				Msg("failed to scan escrow recipient")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		recipients = append(recipients, recipient)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "escrowRepository.ListRecipients").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return recipients, nil
}

func (r *escrowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, deleteEscrowItem, id); err != nil {
		log.Err(err).
			Str("func", "escrowRepository.Delete").
			Str("id", id.String()).
			Msg("failed to delete escrow item")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
