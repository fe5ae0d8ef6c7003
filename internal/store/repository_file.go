package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

// fileRepository is the PostgreSQL-backed implementation of
// [FileRepository]. Headers are stored as JSON; the per-recipient transfer
// history lives in its own table so delivery outcomes can be recorded
// without rewriting the header.
type fileRepository struct {
	*DB
	logger *logger.Logger
}

// NewFileRepository constructs a [FileRepository] backed by the provided
// database connection and logger.
func NewFileRepository(db *DB, logger *logger.Logger) FileRepository {
	logger.Debug().Msg("creating file repository")
	return &fileRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *fileRepository) SaveHeader(ctx context.Context, header models.ServerFileHeader) error {
	log := logger.FromContext(ctx)

	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
	}

	file := header.FileMetadata.File
	if _, err := r.DB.ExecContext(ctx, saveFileHeader, file.DriveID, file.FileID, data); err != nil {
		log.Err(err).
			Str("func", "fileRepository.SaveHeader").
			Str("file_id", file.FileID.String()).
			Msg("failed to save file header")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *fileRepository) GetHeader(ctx context.Context, file models.FileIdentifier) (models.ServerFileHeader, error) {
	log := logger.FromContext(ctx)

	var data []byte
	err := r.DB.QueryRowContext(ctx, getFileHeader, file.DriveID, file.FileID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ServerFileHeader{}, ErrFileNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "fileRepository.GetHeader").
			Str("file_id", file.FileID.String()).
			Msg("failed to query file header")
		return models.ServerFileHeader{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	var header models.ServerFileHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return models.ServerFileHeader{}, fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
	}

	return header, nil
}

// DeleteFile removes the header together with its transfer history.
func (r *fileRepository) DeleteFile(ctx context.Context, file models.FileIdentifier) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "fileRepository.DeleteFile").
			Str("file_id", file.FileID.String()).
			Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	for _, query := range []string{deleteTransferHistory, deleteFileThumbnails, deleteFilePayloads, deleteFileHeader} {
		if _, err := tx.ExecContext(ctx, query, file.DriveID, file.FileID); err != nil {
			log.Err(err).
				Str("func", "fileRepository.DeleteFile").
				Str("file_id", file.FileID.String()).
				Msg("failed to delete file rows")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "fileRepository.DeleteFile").
			Str("file_id", file.FileID.String()).
			Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	return nil
}

func (r *fileRepository) SavePayload(ctx context.Context, file models.FileIdentifier, key, contentType string, content []byte) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, savePayload, file.DriveID, file.FileID, key, contentType, content); err != nil {
		log.Err(err).
			Str("func", "fileRepository.SavePayload").
			Str("file_id", file.FileID.String()).
			Str("payload_key", key).
			Msg("failed to save payload")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *fileRepository) GetPayload(ctx context.Context, file models.FileIdentifier, key string) (string, []byte, error) {
	log := logger.FromContext(ctx)

	var contentType string
	var content []byte
	err := r.DB.QueryRowContext(ctx, getPayload, file.DriveID, file.FileID, key).Scan(&contentType, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrPayloadNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "fileRepository.GetPayload").
			Str("file_id", file.FileID.String()).
			Str("payload_key", key).
			Msg("failed to query payload")
		return "", nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return contentType, content, nil
}

func (r *fileRepository) SaveThumbnail(ctx context.Context, file models.FileIdentifier, payloadKey string, width, height int, contentType string, content []byte) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, saveThumbnail, file.DriveID, file.FileID, payloadKey, width, height, contentType, content); err != nil {
		log.Err(err).
			Str("func", "fileRepository.SaveThumbnail").
			Str("file_id", file.FileID.String()).
			Str("payload_key", payloadKey).
			Msg("failed to save thumbnail")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *fileRepository) GetThumbnail(ctx context.Context, file models.FileIdentifier, payloadKey string, width, height int) (string, []byte, error) {
	log := logger.FromContext(ctx)

	var contentType string
	var content []byte
	err := r.DB.QueryRowContext(ctx, getThumbnail, file.DriveID, file.FileID, payloadKey, width, height).Scan(&contentType, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrThumbnailNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "fileRepository.GetThumbnail").
			Str("file_id", file.FileID.String()).
			Str("payload_key", payloadKey).
			Msg("failed to query thumbnail")
		return "", nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return contentType, content, nil
}

func (r *fileRepository) UpdateTransferHistory(ctx context.Context, file models.FileIdentifier, update models.TransferHistoryUpdate) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, upsertTransferHistory,
		file.DriveID,
		file.FileID,
		update.Recipient,
		update.IsInOutbox,
		int(update.LatestTransferStatus),
		update.VersionTag,
	); err != nil {
		log.Err(err).
			Str("func", "fileRepository.UpdateTransferHistory").
			Str("file_id", file.FileID.String()).
			Str("recipient", update.Recipient).
			Msg("failed to upsert transfer history")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *fileRepository) GetTransferHistory(ctx context.Context, file models.FileIdentifier) ([]models.TransferHistoryEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, getTransferHistory, file.DriveID, file.FileID)
	if err != nil {
		log.Err(err).
			Str("func", "fileRepository.GetTransferHistory").
			Str("file_id", file.FileID.String()).
			Msg("failed to query transfer history")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	entries := make([]models.TransferHistoryEntry, 0, 8)
	for rows.Next() {
		var entry models.TransferHistoryEntry
		var status int
		if err := rows.Scan(&entry.Recipient, &entry.IsInOutbox, &status, &entry.LatestSuccessfulVersionTag); err != nil {
			log.Err(err).
				Str("func", "fileRepository.GetTransferHistory").
				Msg("failed to scan history row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		entry.LatestTransferStatus = models.TransferResult(status)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "fileRepository.GetTransferHistory").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return entries, nil
}

func (r *fileRepository) HasOutstandingDeliveries(ctx context.Context, file models.FileIdentifier) (bool, error) {
	log := logger.FromContext(ctx)

	var count int
	if err := r.DB.QueryRowContext(ctx, countOutstandingDeliveries, file.DriveID, file.FileID).Scan(&count); err != nil {
		log.Err(err).
			Str("func", "fileRepository.HasOutstandingDeliveries").
			Str("file_id", file.FileID.String()).
			Msg("failed to count outstanding deliveries")
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return count > 0, nil
}
