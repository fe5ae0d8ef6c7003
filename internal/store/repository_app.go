package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

// appRepository is the PostgreSQL-backed implementation of [AppRepository].
type appRepository struct {
	*DB
	logger *logger.Logger
}

// NewAppRepository constructs an [AppRepository] backed by the provided
// database connection and logger.
func NewAppRepository(db *DB, logger *logger.Logger) AppRepository {
	logger.Debug().Msg("creating app repository")
	return &appRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *appRepository) Upsert(ctx context.Context, app models.AppRegistration) error {
	log := logger.FromContext(ctx)

	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
	}

	if _, err := r.DB.ExecContext(ctx, upsertApp, app.AppID, app.Created, data); err != nil {
		log.Err(err).
			Str("func", "appRepository.Upsert").
			Str("app_id", app.AppID.String()).
			Msg("failed to upsert app registration")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *appRepository) Get(ctx context.Context, appID uuid.UUID) (models.AppRegistration, error) {
	log := logger.FromContext(ctx)

	var data []byte
	err := r.DB.QueryRowContext(ctx, getApp, appID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AppRegistration{}, ErrAppNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "appRepository.Get").
			Str("app_id", appID.String()).
			Msg("failed to query app registration")
		return models.AppRegistration{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	var app models.AppRegistration
	if err := json.Unmarshal(data, &app); err != nil {
		return models.AppRegistration{}, fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
	}

	return app, nil
}

func (r *appRepository) GetAll(ctx context.Context) ([]models.AppRegistration, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, getAllApps)
	if err != nil {
		log.Err(err).
			Str("func", "appRepository.GetAll").
			Msg("failed to query app registrations")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	apps := make([]models.AppRegistration, 0, 16)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			log.Err(err).
				Str("func", "appRepository.GetAll").
				Msg("failed to scan app row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		var app models.AppRegistration
		if err := json.Unmarshal(data, &app); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "appRepository.GetAll").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return apps, nil
}

func (r *appRepository) Delete(ctx context.Context, appID uuid.UUID) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, deleteApp, appID); err != nil {
		log.Err(err).
			Str("func", "appRepository.Delete").
			Str("app_id", appID.String()).
			Msg("failed to delete app registration")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
