package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

// driveRepository is the PostgreSQL-backed implementation of
// [DriveRepository]. The (alias, type) pair is unique so peers can address
// drives without ever learning the internal id.
type driveRepository struct {
	*DB
	logger *logger.Logger
}

// NewDriveRepository constructs a [DriveRepository] backed by the provided
// database connection and logger.
func NewDriveRepository(db *DB, logger *logger.Logger) DriveRepository {
	logger.Debug().Msg("creating drive repository")
	return &driveRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *driveRepository) Upsert(ctx context.Context, drive models.StorageDrive) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, upsertDrive,
		drive.ID,
		drive.TargetDrive.Alias,
		drive.TargetDrive.Type,
		drive.Name,
		drive.AllowAnonymousReads,
		drive.MasterKeyEncryptedStorageKey,
		drive.Created,
	); err != nil {
		log.Err(err).
			Str("func", "driveRepository.Upsert").
			Str("drive_id", drive.ID.String()).
			Msg("failed to upsert drive")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *driveRepository) Get(ctx context.Context, driveID uuid.UUID) (models.StorageDrive, error) {
	return r.scanDrive(ctx, "driveRepository.Get", getDrive, driveID)
}

func (r *driveRepository) GetByTarget(ctx context.Context, target models.TargetDrive) (models.StorageDrive, error) {
	return r.scanDrive(ctx, "driveRepository.GetByTarget", getDriveByTarget, target.Alias, target.Type)
}

func (r *driveRepository) scanDrive(ctx context.Context, funcName, query string, args ...any) (models.StorageDrive, error) {
	log := logger.FromContext(ctx)

	var drive models.StorageDrive
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(
		&drive.ID,
		&drive.TargetDrive.Alias,
		&drive.TargetDrive.Type,
		&drive.Name,
		&drive.AllowAnonymousReads,
		&drive.MasterKeyEncryptedStorageKey,
		&drive.Created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StorageDrive{}, ErrDriveNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", funcName).
			Msg("failed to query drive")
		return models.StorageDrive{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return drive, nil
}

func (r *driveRepository) GetAll(ctx context.Context) ([]models.StorageDrive, error) {
	return r.scanDrives(ctx, "driveRepository.GetAll", getAllDrives)
}

func (r *driveRepository) GetAnonymousReadDrives(ctx context.Context) ([]models.StorageDrive, error) {
	return r.scanDrives(ctx, "driveRepository.GetAnonymousReadDrives", getAnonymousReadDrives)
}

func (r *driveRepository) scanDrives(ctx context.Context, funcName, query string) ([]models.StorageDrive, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		log.Err(err).
			Str("func", funcName).
			Msg("failed to query drives")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	drives := make([]models.StorageDrive, 0, 16)
	for rows.Next() {
		var drive models.StorageDrive
		if err := rows.Scan(
			&drive.ID,
			&drive.TargetDrive.Alias,
			&drive.TargetDrive.Type,
			&drive.Name,
			&drive.AllowAnonymousReads,
			&drive.MasterKeyEncryptedStorageKey,
			&drive.Created,
		); err != nil {
			log.Err(err).
				Str("func", funcName).
				Msg("failed to scan drive row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		drives = append(drives, drive)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", funcName).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return drives, nil
}
