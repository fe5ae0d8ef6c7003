package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

func newTestConnectionRepo(t *testing.T) (*connectionRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.NewLogger("test")
	repo := &connectionRepository{
		DB:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func testRegistration() models.IdentityConnectionRegistration {
	circleID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	appID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	return models.IdentityConnectionRegistration{
		Identity:    "bob.example.org",
		Status:      models.ConnectionConnected,
		Created:     1000,
		LastUpdated: 2000,
		AccessGrant: &models.AccessExchangeGrant{
			MasterKeyEncryptedKeyStoreKey: []byte{1, 2, 3},
			CircleGrants: map[string]models.CircleGrant{
				circleID.String(): {CircleID: circleID},
			},
			AppGrants: map[string]map[string]models.AppCircleGrant{
				appID.String(): {
					circleID.String(): {AppID: appID, CircleID: circleID},
				},
			},
			AccessRegistration: models.AccessRegistration{
				ID: uuid.MustParse("33333333-3333-3333-3333-333333333333"),
			},
		},
		ClientAccessTokenID:      uuid.MustParse("44444444-4444-4444-4444-444444444444"),
		ClientAccessTokenHalfKey: []byte{9, 9, 9},
	}
}

func TestConnectionUpsert_RebuildsIndexRows(t *testing.T) {
	repo, mock, db := newTestConnectionRepo(t)
	defer db.Close()

	icr := testRegistration()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO connections").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM circle_members").
		WithArgs(icr.Identity).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM app_grants").
		WithArgs(icr.Identity).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO circle_members").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO app_grants").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Upsert(context.Background(), icr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionUpsert_NoGrantSkipsIndexInserts(t *testing.T) {
	repo, mock, db := newTestConnectionRepo(t)
	defer db.Close()

	icr := testRegistration()
	icr.AccessGrant = nil

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO connections").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM circle_members").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM app_grants").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Upsert(context.Background(), icr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionUpsert_RollbackOnIndexFailure(t *testing.T) {
	repo, mock, db := newTestConnectionRepo(t)
	defer db.Close()

	icr := testRegistration()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO connections").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM circle_members").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Upsert(context.Background(), icr)
	if !errors.Is(err, ErrExecutingStatement) {
		t.Fatalf("expected ErrExecutingStatement, got %v", err)
	}
}

func TestConnectionGet_ReconstructsGrantMaps(t *testing.T) {
	repo, mock, db := newTestConnectionRepo(t)
	defer db.Close()

	circleID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	appID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	// stored grant JSON has its maps cleared
	grantJSON, _ := json.Marshal(models.AccessExchangeGrant{
		MasterKeyEncryptedKeyStoreKey: []byte{1, 2, 3},
		AccessRegistration: models.AccessRegistration{
			ID: uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		},
	})
	circleGrantJSON, _ := json.Marshal(models.CircleGrant{CircleID: circleID})
	appGrantJSON, _ := json.Marshal(models.AppCircleGrant{AppID: appID, CircleID: circleID})

	mock.ExpectQuery("SELECT identity").
		WithArgs("bob.example.org").
		WillReturnRows(sqlmock.
			NewRows([]string{"identity", "status", "created", "last_updated", "access_grant", "token_id", "token_half_key", "token_shared_secret", "original_contact"}).
			AddRow("bob.example.org", int(models.ConnectionConnected), 1000, 2000, grantJSON, nil, nil, nil, nil))

	mock.ExpectQuery("SELECT circle_id, data FROM circle_members").
		WithArgs("bob.example.org").
		WillReturnRows(sqlmock.
			NewRows([]string{"circle_id", "data"}).
			AddRow(circleID, circleGrantJSON))

	mock.ExpectQuery("SELECT app_id, circle_id, data FROM app_grants").
		WithArgs("bob.example.org").
		WillReturnRows(sqlmock.
			NewRows([]string{"app_id", "circle_id", "data"}).
			AddRow(appID, circleID, appGrantJSON))

	icr, err := repo.Get(context.Background(), "bob.example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if icr.AccessGrant == nil {
		t.Fatal("expected access grant to be loaded")
	}
	if _, ok := icr.AccessGrant.CircleGrants[circleID.String()]; !ok {
		t.Error("expected circle grant to be reconstructed from index rows")
	}
	if _, ok := icr.AccessGrant.AppGrants[appID.String()][circleID.String()]; !ok {
		t.Error("expected app circle grant to be reconstructed from index rows")
	}
}

func TestConnectionGet_NotFound(t *testing.T) {
	repo, mock, db := newTestConnectionRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT identity").
		WithArgs("nobody.example.org").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nobody.example.org")
	if !errors.Is(err, ErrConnectionNotFound) {
		t.Fatalf("expected ErrConnectionNotFound, got %v", err)
	}
}

func TestConnectionGetList_PagesNewestFirst(t *testing.T) {
	repo, mock, db := newTestConnectionRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"identity", "status", "created", "last_updated", "access_grant", "token_id", "token_half_key", "token_shared_secret", "original_contact"})
	// limit+1 rows returned → next page exists
	rows.AddRow("c.example.org", 1, 3000, 3000, nil, nil, nil, nil, nil)
	rows.AddRow("b.example.org", 1, 2000, 2000, nil, nil, nil, nil, nil)
	rows.AddRow("a.example.org", 1, 1000, 1000, nil, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT identity").
		WillReturnRows(rows)

	list, cursor, err := repo.GetList(context.Background(), models.ConnectionConnected, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 registrations, got %d", len(list))
	}
	if list[0].Identity != "c.example.org" {
		t.Errorf("expected newest first, got %s", list[0].Identity)
	}
	if cursor != 2000 {
		t.Errorf("expected cursor 2000, got %d", cursor)
	}
}

func TestConnectionGetList_ReconstructsGrantMaps(t *testing.T) {
	repo, mock, db := newTestConnectionRepo(t)
	defer db.Close()

	circleID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	appID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	// stored grant JSON has its maps cleared, same as after Upsert
	grantJSON, _ := json.Marshal(models.AccessExchangeGrant{
		MasterKeyEncryptedKeyStoreKey: []byte{1, 2, 3},
	})
	circleGrantJSON, _ := json.Marshal(models.CircleGrant{CircleID: circleID})
	appGrantJSON, _ := json.Marshal(models.AppCircleGrant{AppID: appID, CircleID: circleID})

	rows := sqlmock.NewRows([]string{"identity", "status", "created", "last_updated", "access_grant", "token_id", "token_half_key", "token_shared_secret", "original_contact"})
	rows.AddRow("bob.example.org", 1, 1000, 1000, grantJSON, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT identity").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT circle_id, data FROM circle_members").
		WithArgs("bob.example.org").
		WillReturnRows(sqlmock.
			NewRows([]string{"circle_id", "data"}).
			AddRow(circleID, circleGrantJSON))
	mock.ExpectQuery("SELECT app_id, circle_id, data FROM app_grants").
		WithArgs("bob.example.org").
		WillReturnRows(sqlmock.
			NewRows([]string{"app_id", "circle_id", "data"}).
			AddRow(appID, circleID, appGrantJSON))

	list, _, err := repo.GetList(context.Background(), models.ConnectionConnected, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 registration, got %d", len(list))
	}

	grant := list[0].AccessGrant
	if grant == nil {
		t.Fatal("expected access grant to be loaded")
	}
	if _, ok := grant.CircleGrants[circleID.String()]; !ok {
		t.Error("expected circle grant to be reconstructed from index rows")
	}
	if _, ok := grant.AppGrants[appID.String()][circleID.String()]; !ok {
		t.Error("expected app circle grant to be reconstructed from index rows")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionGetList_LastPage(t *testing.T) {
	repo, mock, db := newTestConnectionRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"identity", "status", "created", "last_updated", "access_grant", "token_id", "token_half_key", "token_shared_secret", "original_contact"})
	rows.AddRow("a.example.org", 1, 1000, 1000, nil, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT identity").
		WillReturnRows(rows)

	list, cursor, err := repo.GetList(context.Background(), models.ConnectionConnected, 2000, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 registration, got %d", len(list))
	}
	if cursor != 0 {
		t.Errorf("expected zero cursor on last page, got %d", cursor)
	}
}

func TestConnectionReconcile_RemovesOrphans(t *testing.T) {
	repo, mock, db := newTestConnectionRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM circle_members").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM app_grants").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	removed, err := repo.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 5 {
		t.Errorf("expected 5 removed rows, got %d", removed)
	}
}

func TestConnectionDelete_RemovesAllRows(t *testing.T) {
	repo, mock, db := newTestConnectionRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM circle_members").
		WithArgs("bob.example.org").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM app_grants").
		WithArgs("bob.example.org").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM connections").
		WithArgs("bob.example.org").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), "bob.example.org"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
