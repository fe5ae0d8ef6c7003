package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

// connectionRepository is the PostgreSQL-backed implementation of
// [ConnectionRepository]. The registration row stores the grant bundle as
// JSON with its circle and app maps cleared; the maps live in the
// circle_members and app_grants index tables, one row per grant, and are
// reconstructed on read. Both indices are rebuilt inside the same
// transaction as every registration write.
type connectionRepository struct {
	*DB
	logger *logger.Logger
}

// NewConnectionRepository constructs a [ConnectionRepository] backed by the
// provided database connection and logger.
func NewConnectionRepository(db *DB, logger *logger.Logger) ConnectionRepository {
	logger.Debug().Msg("creating connection repository")
	return &connectionRepository{
		DB:     db,
		logger: logger,
	}
}

// connectionRow is the flat scan target for a connections row.
type connectionRow struct {
	identity          string
	status            int
	created           int64
	lastUpdated       int64
	accessGrant       []byte
	tokenID           uuid.NullUUID
	tokenHalfKey      []byte
	tokenSharedSecret []byte
	originalContact   []byte
}

// Upsert stores the registration and rebuilds its circle_members and
// app_grants index rows in a single transaction. The stored grant JSON has
// its CircleGrants and AppGrants maps cleared; the index rows carry the
// per-grant payloads instead.
func (r *connectionRepository) Upsert(ctx context.Context, icr models.IdentityConnectionRegistration) error {
	log := logger.FromContext(ctx)

	grantJSON, contactJSON, err := marshalConnectionPayloads(icr)
	if err != nil {
		log.Err(err).
			Str("func", "connectionRepository.Upsert").
			Str("identity", icr.Identity).
			Msg("failed to marshal registration payloads")
		return fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "connectionRepository.Upsert").
			Str("identity", icr.Identity).
			Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	tokenID := uuid.NullUUID{UUID: icr.ClientAccessTokenID, Valid: icr.ClientAccessTokenID != uuid.Nil}

	if _, err := tx.ExecContext(ctx, upsertConnection,
		icr.Identity,
		int(icr.Status),
		icr.Created,
		icr.LastUpdated,
		grantJSON,
		tokenID,
		icr.ClientAccessTokenHalfKey,
		icr.ClientAccessTokenSharedSecret,
		contactJSON,
	); err != nil {
		log.Err(err).
			Str("func", "connectionRepository.Upsert").
			Str("identity", icr.Identity).
			Msg("failed to upsert registration row")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err := rebuildIndexRows(ctx, tx, icr); err != nil {
		log.Err(err).
			Str("func", "connectionRepository.Upsert").
			Str("identity", icr.Identity).
			Msg("failed to rebuild index rows")
		return err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "connectionRepository.Upsert").
			Str("identity", icr.Identity).
			Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	return nil
}

// rebuildIndexRows clears and re-inserts both membership indices for the
// registration's identity.
func rebuildIndexRows(ctx context.Context, tx *sql.Tx, icr models.IdentityConnectionRegistration) error {
	if _, err := tx.ExecContext(ctx, deleteCircleMemberRows, icr.Identity); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if _, err := tx.ExecContext(ctx, deleteAppGrantRows, icr.Identity); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if icr.AccessGrant == nil {
		return nil
	}

	for _, cg := range icr.AccessGrant.CircleGrants {
		data, err := json.Marshal(cg)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
		}
		if _, err := tx.ExecContext(ctx, insertCircleMemberRow, cg.CircleID, icr.Identity, data); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	for _, byCircle := range icr.AccessGrant.AppGrants {
		for _, acg := range byCircle {
			data, err := json.Marshal(acg)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
			}
			if _, err := tx.ExecContext(ctx, insertAppGrantRow, icr.Identity, acg.AppID, acg.CircleID, data); err != nil {
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}
	}

	return nil
}

// marshalConnectionPayloads produces the JSON columns of a registration
// row. The grant bundle is stored with its circle and app maps cleared so
// the index tables remain the single source of membership truth.
func marshalConnectionPayloads(icr models.IdentityConnectionRegistration) (grantJSON, contactJSON []byte, err error) {
	if icr.AccessGrant != nil {
		stripped := *icr.AccessGrant
		stripped.CircleGrants = nil
		stripped.AppGrants = nil
		grantJSON, err = json.Marshal(stripped)
		if err != nil {
			return nil, nil, err
		}
	}

	if icr.OriginalContactData != nil {
		contactJSON, err = json.Marshal(icr.OriginalContactData)
		if err != nil {
			return nil, nil, err
		}
	}

	return grantJSON, contactJSON, nil
}

// Get returns the registration for identity with the grant bundle's maps
// reconstructed from the index rows.
func (r *connectionRepository) Get(ctx context.Context, identity string) (models.IdentityConnectionRegistration, error) {
	log := logger.FromContext(ctx)

	var row connectionRow
	err := r.DB.QueryRowContext(ctx, getConnection, identity).Scan(
		&row.identity,
		&row.status,
		&row.created,
		&row.lastUpdated,
		&row.accessGrant,
		&row.tokenID,
		&row.tokenHalfKey,
		&row.tokenSharedSecret,
		&row.originalContact,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.IdentityConnectionRegistration{}, ErrConnectionNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "connectionRepository.Get").
			Str("identity", identity).
			Msg("failed to query registration row")
		return models.IdentityConnectionRegistration{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	icr, err := row.toModel()
	if err != nil {
		log.Err(err).
			Str("func", "connectionRepository.Get").
			Str("identity", identity).
			Msg("failed to unmarshal registration payloads")
		return models.IdentityConnectionRegistration{}, fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
	}

	if icr.AccessGrant != nil {
		if err := r.loadGrantMaps(ctx, &icr); err != nil {
			log.Err(err).
				Str("func", "connectionRepository.Get").
				Str("identity", identity).
				Msg("failed to load grant index rows")
			return models.IdentityConnectionRegistration{}, err
		}
	}

	return icr, nil
}

func (row connectionRow) toModel() (models.IdentityConnectionRegistration, error) {
	icr := models.IdentityConnectionRegistration{
		Identity:                      row.identity,
		Status:                        models.ConnectionStatus(row.status),
		Created:                       row.created,
		LastUpdated:                   row.lastUpdated,
		ClientAccessTokenHalfKey:      row.tokenHalfKey,
		ClientAccessTokenSharedSecret: row.tokenSharedSecret,
	}
	if row.tokenID.Valid {
		icr.ClientAccessTokenID = row.tokenID.UUID
	}

	if len(row.accessGrant) > 0 {
		var grant models.AccessExchangeGrant
		if err := json.Unmarshal(row.accessGrant, &grant); err != nil {
			return models.IdentityConnectionRegistration{}, err
		}
		icr.AccessGrant = &grant
	}

	if len(row.originalContact) > 0 {
		var contact models.ContactRequestData
		if err := json.Unmarshal(row.originalContact, &contact); err != nil {
			return models.IdentityConnectionRegistration{}, err
		}
		icr.OriginalContactData = &contact
	}

	return icr, nil
}

// loadGrantMaps rebuilds the circle and app grant maps from the index rows.
func (r *connectionRepository) loadGrantMaps(ctx context.Context, icr *models.IdentityConnectionRegistration) error {
	rows, err := r.DB.QueryContext(ctx, getCircleMemberRows, icr.Identity)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var circleID uuid.UUID
		var data []byte
		if err := rows.Scan(&circleID, &data); err != nil {
			return fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		var cg models.CircleGrant
		if err := json.Unmarshal(data, &cg); err != nil {
			return fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
		}

		if icr.AccessGrant.CircleGrants == nil {
			icr.AccessGrant.CircleGrants = make(map[string]models.CircleGrant)
		}
		icr.AccessGrant.CircleGrants[circleID.String()] = cg
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	appRows, err := r.DB.QueryContext(ctx, getAppGrantRows, icr.Identity)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer appRows.Close()

	for appRows.Next() {
		var appID, circleID uuid.UUID
		var data []byte
		if err := appRows.Scan(&appID, &circleID, &data); err != nil {
			return fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		var acg models.AppCircleGrant
		if err := json.Unmarshal(data, &acg); err != nil {
			return fmt.Errorf("%w: %w", ErrMarshalingRecord, err)
		}

		icr.AccessGrant.AddUpdateAppCircleGrant(acg)
	}
	if err := appRows.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return nil
}

// Delete removes the registration and both of its index row sets in one
// transaction.
func (r *connectionRepository) Delete(ctx context.Context, identity string) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "connectionRepository.Delete").
			Str("identity", identity).
			Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	for _, query := range []string{deleteCircleMemberRows, deleteAppGrantRows, deleteConnection} {
		if _, err := tx.ExecContext(ctx, query, identity); err != nil {
			log.Err(err).
				Str("func", "connectionRepository.Delete").
				Str("identity", identity).
				Msg("failed to delete registration rows")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "connectionRepository.Delete").
			Str("identity", identity).
			Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	return nil
}

// GetList pages registrations newest-first by created stamp using a
// keyset cursor. Each registration in the page carries its grant maps
// reconstructed from the index rows, same as Get.
func (r *connectionRepository) GetList(ctx context.Context, status models.ConnectionStatus, cursor int64, limit int) ([]models.IdentityConnectionRegistration, int64, error) {
	log := logger.FromContext(ctx)

	builder := sq.Select("identity", "status", "created", "last_updated", "access_grant", "token_id", "token_half_key", "token_shared_secret", "original_contact").
		From("connections").
		Where(sq.Eq{"status": int(status)}).
		OrderBy("created DESC").
		Limit(uint64(limit + 1)).
		PlaceholderFormat(sq.Dollar)
	if cursor > 0 {
		builder = builder.Where(sq.Lt{"created": cursor})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		log.Err(err).
			Str("func", "connectionRepository.GetList").
			Msg("failed to build list query")
		return nil, 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "connectionRepository.GetList").
			Str("status", status.String()).
			Msg("failed to execute list query")
		return nil, 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	results := make([]models.IdentityConnectionRegistration, 0, limit)

	for rows.Next() {
		var row connectionRow
		if err := rows.Scan(
			&row.identity,
			&row.status,
			&row.created,
			&row.lastUpdated,
			&row.accessGrant,
			&row.tokenID,
			&row.tokenHalfKey,
			&row.tokenSharedSecret,
			&row.originalContact,
		); err != nil {
			log.Err(err).
				Str("func", "connectionRepository.GetList").
				Msg("failed to scan registration row")
			return nil, 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		icr, modelErr := row.toModel()
		if modelErr != nil {
			log.Err(modelErr).
				Str("func", "connectionRepository.GetList").
				Str("identity", row.identity).
				Msg("failed to unmarshal registration payloads")
			return nil, 0, fmt.Errorf("%w: %w", ErrMarshalingRecord, modelErr)
		}

		results = append(results, icr)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "connectionRepository.GetList").
			Msg("error occurred during rows iteration")
		return nil, 0, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}
	rows.Close()

	var nextCursor int64
	if len(results) > limit {
		results = results[:limit]
		nextCursor = results[limit-1].Created
	}

	for i := range results {
		if results[i].AccessGrant == nil {
			continue
		}
		if err := r.loadGrantMaps(ctx, &results[i]); err != nil {
			log.Err(err).
				Str("func", "connectionRepository.GetList").
				Str("identity", results[i].Identity).
				Msg("failed to load grant index rows")
			return nil, 0, err
		}
	}

	return results, nextCursor, nil
}

// GetCircleMembers lists the identities holding a grant for circleID.
func (r *connectionRepository) GetCircleMembers(ctx context.Context, circleID uuid.UUID) ([]string, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, getCircleMembers, circleID)
	if err != nil {
		log.Err(err).
			Str("func", "connectionRepository.GetCircleMembers").
			Str("circle_id", circleID.String()).
			Msg("failed to execute members query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	members := make([]string, 0, 16)
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			log.Err(err).
				Str("func", "connectionRepository.GetCircleMembers").
				Str("circle_id", circleID.String()).
				Msg("failed to scan member row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		members = append(members, identity)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "connectionRepository.GetCircleMembers").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return members, nil
}

// Reconcile removes index rows whose owning registration is gone or holds
// no grant bundle. Both index tables are repaired in one transaction.
func (r *connectionRepository) Reconcile(ctx context.Context) (int64, error) {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "connectionRepository.Reconcile").
			Msg("failed to begin transaction")
		return 0, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	var removed int64
	for _, query := range []string{reconcileCircleMembers, reconcileAppGrants} {
		result, err := tx.ExecContext(ctx, query)
		if err != nil {
			log.Err(err).
				Str("func", "connectionRepository.Reconcile").
				Msg("failed to delete orphaned index rows")
			return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		removed += affected
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "connectionRepository.Reconcile").
			Msg("failed to commit transaction")
		return 0, fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	if removed > 0 {
		log.Warn().
			Str("func", "connectionRepository.Reconcile").
			Int64("removed", removed).
			Msg("removed orphaned membership index rows")
	}

	return removed, nil
}
