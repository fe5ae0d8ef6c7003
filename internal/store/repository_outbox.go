package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

// outboxRepository is the PostgreSQL-backed implementation of
// [OutboxRepository]. Claims use FOR UPDATE SKIP LOCKED so concurrent
// processors never contend for the same rows, and every claimed row gets
// its own lease marker (gen_random_uuid) so completion and failure address
// exactly one item.
type outboxRepository struct {
	*DB
	logger *logger.Logger
}

// NewOutboxRepository constructs an [OutboxRepository] backed by the
// provided database connection and logger.
func NewOutboxRepository(db *DB, logger *logger.Logger) OutboxRepository {
	logger.Debug().Msg("creating outbox repository")
	return &outboxRepository{
		DB:     db,
		logger: logger,
	}
}

// Add enqueues items. Two or more items go through a single transaction
// with a prepared statement.
func (r *outboxRepository) Add(ctx context.Context, items ...models.OutboxFileItem) error {
	log := logger.FromContext(ctx)

	if len(items) == 0 {
		log.Warn().
			Str("func", "outboxRepository.Add").
			Msg("no outbox items provided")
		return nil
	}

	if len(items) == 1 {
		item := items[0]
		if _, err := r.DB.ExecContext(ctx, addOutboxItem,
			item.File.DriveID,
			item.File.FileID,
			item.Recipient,
			int(item.Type),
			item.Priority,
			item.AttemptCount,
			item.NextRun,
			item.EncryptedClientAuthToken,
			item.State,
			item.IsTransient,
			item.Created,
		); err != nil {
			log.Err(err).
				Str("func", "outboxRepository.Add").
				Str("recipient", item.Recipient).
				Msg("failed to insert outbox item")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "outboxRepository.Add").
			Int("count", len(items)).
			Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, addOutboxItem)
	if err != nil {
		log.Err(err).
			Str("func", "outboxRepository.Add").
			Int("count", len(items)).
			Msg("failed to prepare statement")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	defer stmt.Close()

	for idx, item := range items {
		if _, err := stmt.ExecContext(ctx,
			item.File.DriveID,
			item.File.FileID,
			item.Recipient,
			int(item.Type),
			item.Priority,
			item.AttemptCount,
			item.NextRun,
			item.EncryptedClientAuthToken,
			item.State,
			item.IsTransient,
			item.Created,
		); err != nil {
			log.Err(err).
				Str("func", "outboxRepository.Add").
				Int("iteration", idx+1).
				Str("recipient", item.Recipient).
				Msg("failed to execute prepared statement")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "outboxRepository.Add").
			Int("count", len(items)).
			Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	return nil
}

// GetBatchForProcessing atomically claims up to limit due items on the
// drive, ordered by priority then enqueue order.
func (r *outboxRepository) GetBatchForProcessing(ctx context.Context, driveID uuid.UUID, limit int) ([]models.OutboxFileItem, error) {
	log := logger.FromContext(ctx)

	nowMs := time.Now().UnixMilli()

	rows, err := r.DB.QueryContext(ctx, claimOutboxBatch, nowMs, driveID, limit)
	if err != nil {
		log.Err(err).
			Str("func", "outboxRepository.GetBatchForProcessing").
			Str("drive_id", driveID.String()).
			Msg("failed to claim outbox batch")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	items := make([]models.OutboxFileItem, 0, limit)
	for rows.Next() {
		var item models.OutboxFileItem
		var itemType int
		if err := rows.Scan(
			&item.File.DriveID,
			&item.File.FileID,
			&item.Recipient,
			&itemType,
			&item.Priority,
			&item.AttemptCount,
			&item.NextRun,
			&item.Marker,
			&item.EncryptedClientAuthToken,
			&item.State,
			&item.IsTransient,
			&item.Created,
		); err != nil {
			log.Err(err).
				Str("func", "outboxRepository.GetBatchForProcessing").
				Str("drive_id", driveID.String()).
				Msg("failed to scan claimed item")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		item.Type = models.OutboxItemType(itemType)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "outboxRepository.GetBatchForProcessing").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return items, nil
}

// MarkComplete removes the claimed item addressed by marker. Returns
// [ErrOutboxItemNotFound] when the marker matches nothing, typically
// because the claim was already recovered.
func (r *outboxRepository) MarkComplete(ctx context.Context, marker uuid.UUID) error {
	log := logger.FromContext(ctx)

	result, err := r.DB.ExecContext(ctx, completeOutboxItem, marker)
	if err != nil {
		log.Err(err).
			Str("func", "outboxRepository.MarkComplete").
			Str("marker", marker.String()).
			Msg("failed to delete completed item")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrOutboxItemNotFound
	}

	return nil
}

// MarkFailure releases the claim, bumps the attempt count and re-arms the
// item at nextRun.
func (r *outboxRepository) MarkFailure(ctx context.Context, marker uuid.UUID, nextRun int64) error {
	log := logger.FromContext(ctx)

	result, err := r.DB.ExecContext(ctx, failOutboxItem, marker, nextRun)
	if err != nil {
		log.Err(err).
			Str("func", "outboxRepository.MarkFailure").
			Str("marker", marker.String()).
			Msg("failed to release failed item")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrOutboxItemNotFound
	}

	return nil
}

// RecoverDead releases claims whose checkout stamp is older than
// olderThanMs. Recovered items count as a failed attempt.
func (r *outboxRepository) RecoverDead(ctx context.Context, olderThanMs int64) (int64, error) {
	log := logger.FromContext(ctx)

	result, err := r.DB.ExecContext(ctx, recoverDeadOutboxItems, olderThanMs)
	if err != nil {
		log.Err(err).
			Str("func", "outboxRepository.RecoverDead").
			Msg("failed to recover dead claims")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	recovered, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if recovered > 0 {
		log.Warn().
			Str("func", "outboxRepository.RecoverDead").
			Int64("recovered", recovered).
			Msg("recovered stale outbox claims")
	}

	return recovered, nil
}

// Status summarizes the drive's queue.
func (r *outboxRepository) Status(ctx context.Context, driveID uuid.UUID) (models.OutboxStatus, error) {
	log := logger.FromContext(ctx)

	var status models.OutboxStatus
	if err := r.DB.QueryRowContext(ctx, outboxStatus, driveID).Scan(
		&status.TotalItems,
		&status.CheckedOutItems,
		&status.NextRun,
	); err != nil {
		log.Err(err).
			Str("func", "outboxRepository.Status").
			Str("drive_id", driveID.String()).
			Msg("failed to query outbox status")
		return models.OutboxStatus{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return status, nil
}

// NextRun returns the earliest next-run stamp across all unclaimed items.
func (r *outboxRepository) NextRun(ctx context.Context) (int64, error) {
	log := logger.FromContext(ctx)

	var nextRun int64
	if err := r.DB.QueryRowContext(ctx, outboxNextRun).Scan(&nextRun); err != nil {
		log.Err(err).
			Str("func", "outboxRepository.NextRun").
			Msg("failed to query next run")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return nextRun, nil
}

// DrivesWithWork lists the drives holding at least one due unclaimed item.
func (r *outboxRepository) DrivesWithWork(ctx context.Context, nowMs int64) ([]uuid.UUID, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, outboxDrivesWithWork, nowMs)
	if err != nil {
		log.Err(err).
			Str("func", "outboxRepository.DrivesWithWork").
			Msg("failed to query drives with work")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	drives := make([]uuid.UUID, 0, 8)
	for rows.Next() {
		var driveID uuid.UUID
		if err := rows.Scan(&driveID); err != nil {
			log.Err(err).
				Str("func", "outboxRepository.DrivesWithWork").
				Msg("failed to scan drive id")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		drives = append(drives, driveID)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "outboxRepository.DrivesWithWork").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return drives, nil
}
