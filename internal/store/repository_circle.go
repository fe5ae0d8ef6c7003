package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"

	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

// circleRepository is the PostgreSQL-backed implementation of
// [CircleRepository]. The full definition is stored as a JSON column;
// disabled and last_updated are mirrored into their own columns for
// querying.
type circleRepository struct {
	*DB
	logger *logger.Logger
}

// NewCircleRepository constructs a [CircleRepository] backed by the
// provided database connection and logger.
func NewCircleRepository(db *DB, logger *logger.Logger) CircleRepository {
	logger.Debug().Msg("creating circle repository")
	return &circleRepository{
		DB:     db,
		logger: logger,
	}
}

// Create inserts a new definition.
//
// Error handling:
//   - PostgreSQL unique_violation (23505) → [ErrCircleAlreadyExists].
//   - Any other driver-level error → wrapped as [ErrExecutingStatement].
func (r *circleRepository) Create(ctx context.Context, def models.CircleDefinition) error {
	log := logger.FromContext(ctx)

	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
	}

	if _, err := r.DB.ExecContext(ctx, createCircle, def.ID, def.Disabled, def.LastUpdated, data); err != nil {
		log.Err(err).
			Str("func", "circleRepository.Create").
			Str("circle_id", def.ID.String()).
			Msg("failed to insert circle definition")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return ErrCircleAlreadyExists
		default:
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	return nil
}

// Update overwrites an existing definition. Returns [ErrCircleNotFound]
// when no row matches.
func (r *circleRepository) Update(ctx context.Context, def models.CircleDefinition) error {
	log := logger.FromContext(ctx)

	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
	}

	result, err := r.DB.ExecContext(ctx, updateCircle, def.ID, def.Disabled, def.LastUpdated, data)
	if err != nil {
		log.Err(err).
			Str("func", "circleRepository.Update").
			Str("circle_id", def.ID.String()).
			Msg("failed to update circle definition")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrCircleNotFound
	}

	return nil
}

// Get returns the definition or [ErrCircleNotFound].
func (r *circleRepository) Get(ctx context.Context, circleID uuid.UUID) (models.CircleDefinition, error) {
	log := logger.FromContext(ctx)

	var data []byte
	err := r.DB.QueryRowContext(ctx, getCircle, circleID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CircleDefinition{}, ErrCircleNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "circleRepository.Get").
			Str("circle_id", circleID.String()).
			Msg("failed to query circle definition")
		return models.CircleDefinition{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	var def models.CircleDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return models.CircleDefinition{}, fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
	}

	return def, nil
}

// GetAll returns every stored definition, most recently updated first.
func (r *circleRepository) GetAll(ctx context.Context) ([]models.CircleDefinition, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, getAllCircles)
	if err != nil {
		log.Err(err).
			Str("func", "circleRepository.GetAll").
			Msg("failed to query circle definitions")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	defs := make([]models.CircleDefinition, 0, 16)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			log.Err(err).
				Str("func", "circleRepository.GetAll").
				Msg("failed to scan circle row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		var def models.CircleDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "circleRepository.GetAll").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return defs, nil
}

// Delete removes the definition row.
func (r *circleRepository) Delete(ctx context.Context, circleID uuid.UUID) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, deleteCircle, circleID); err != nil {
		log.Err(err).
			Str("func", "circleRepository.Delete").
			Str("circle_id", circleID.String()).
			Msg("failed to delete circle definition")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
