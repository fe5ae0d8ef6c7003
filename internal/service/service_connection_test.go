package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/identity-host/internal/access"
	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/models"
)

type connectionFixture struct {
	connections *mockConnectionRepository
	apps        *mockAppRepository
	circles     *mockCircleService
	grants      *mockGrantService

	masterKey   crypto.SensitiveBytes
	keyStoreKey crypto.SensitiveBytes
}

func newConnectionFixture(t *testing.T) *connectionFixture {
	t.Helper()

	masterKey, err := crypto.GenerateKey(32)
	require.NoError(t, err)
	keyStoreKey, err := crypto.GenerateKey(32)
	require.NoError(t, err)

	return &connectionFixture{
		connections: &mockConnectionRepository{},
		apps:        &mockAppRepository{},
		circles:     &mockCircleService{},
		grants:      &mockGrantService{},
		masterKey:   masterKey,
		keyStoreKey: keyStoreKey,
	}
}

func (fx *connectionFixture) service() *connectionService {
	return &connectionService{
		connectionRepository: fx.connections,
		appRepository:        fx.apps,
		circleService:        fx.circles,
		grantService:         fx.grants,
		logger:               logger.Nop(),
	}
}

// connectedRegistration returns an ICR whose key-store key unwraps with the
// fixture's master key.
func (fx *connectionFixture) connectedRegistration(t *testing.T, circleIDs ...uuid.UUID) models.IdentityConnectionRegistration {
	t.Helper()

	wrapped, err := crypto.WrapKey(fx.keyStoreKey, fx.masterKey)
	require.NoError(t, err)

	grant := &models.AccessExchangeGrant{
		MasterKeyEncryptedKeyStoreKey: wrapped,
		CircleGrants:                  make(map[string]models.CircleGrant),
		AccessRegistration:            models.AccessRegistration{ID: uuid.New()},
	}
	for _, circleID := range circleIDs {
		grant.CircleGrants[circleID.String()] = models.CircleGrant{CircleID: circleID}
	}

	return models.IdentityConnectionRegistration{
		Identity:                 "bob.example.org",
		Status:                   models.ConnectionConnected,
		Created:                  1000,
		LastUpdated:              1000,
		AccessGrant:              grant,
		ClientAccessTokenID:      uuid.New(),
		ClientAccessTokenHalfKey: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
	}
}

func TestConnectionService_Connect_Success(t *testing.T) {
	fx := newConnectionFixture(t)

	fx.connections.getFn = func(_ context.Context, identity string) (models.IdentityConnectionRegistration, error) {
		return models.IdentityConnectionRegistration{}, store.ErrConnectionNotFound
	}

	localTokenID := uuid.New()
	fx.grants.createAccessRegistrationFn = func(_ context.Context, _, _ crypto.SensitiveBytes) (models.AccessRegistration, models.ClientAccessToken, error) {
		return models.AccessRegistration{ID: localTokenID}, models.ClientAccessToken{ID: localTokenID}, nil
	}

	var stored models.IdentityConnectionRegistration
	fx.connections.upsertFn = func(_ context.Context, icr models.IdentityConnectionRegistration) error {
		stored = icr
		return nil
	}

	circleID := uuid.New()
	remoteToken := models.ClientAccessToken{ID: uuid.New(), AccessTokenHalfKey: []byte{9}}

	token, err := fx.service().Connect(context.Background(), fx.masterKey, ConnectRequest{
		Identity:    "bob.example.org",
		CircleIDs:   []uuid.UUID{circleID},
		RemoteToken: remoteToken,
	})
	require.NoError(t, err)
	assert.Equal(t, localTokenID, token.ID)

	assert.Equal(t, models.ConnectionConnected, stored.Status)
	assert.Equal(t, remoteToken.ID, stored.ClientAccessTokenID)
	require.NotNil(t, stored.AccessGrant)
	assert.NotEmpty(t, stored.AccessGrant.MasterKeyEncryptedKeyStoreKey)
	assert.NotEmpty(t, stored.AccessGrant.KeyStoreKeyEncryptedIcrKey)

	// The requested circle plus the system circle are granted.
	assert.Contains(t, stored.AccessGrant.CircleGrants, circleID.String())
	assert.Contains(t, stored.AccessGrant.CircleGrants, models.SystemCircleID.String())
}

func TestConnectionService_Connect_GrantsAuthorizedAppCircles(t *testing.T) {
	fx := newConnectionFixture(t)

	circleID := uuid.New()
	appID := uuid.New()
	fx.apps.getAllFn = func(_ context.Context) ([]models.AppRegistration, error) {
		return []models.AppRegistration{
			{AppID: appID, AuthorizedCircles: []uuid.UUID{circleID}},
			{AppID: uuid.New(), AuthorizedCircles: []uuid.UUID{uuid.New()}},
		}, nil
	}
	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return models.IdentityConnectionRegistration{}, store.ErrConnectionNotFound
	}

	var stored models.IdentityConnectionRegistration
	fx.connections.upsertFn = func(_ context.Context, icr models.IdentityConnectionRegistration) error {
		stored = icr
		return nil
	}

	_, err := fx.service().Connect(context.Background(), fx.masterKey, ConnectRequest{
		Identity:  "bob.example.org",
		CircleIDs: []uuid.UUID{circleID},
	})
	require.NoError(t, err)

	require.Contains(t, stored.AccessGrant.AppGrants, appID.String())
	assert.Contains(t, stored.AccessGrant.AppGrants[appID.String()], circleID.String())
	assert.Len(t, stored.AccessGrant.AppGrants, 1)
}

func TestConnectionService_Connect_RejectsExistingStates(t *testing.T) {
	tests := []struct {
		name    string
		status  models.ConnectionStatus
		wantErr error
	}{
		{name: "already connected", status: models.ConnectionConnected, wantErr: ErrAlreadyConnected},
		{name: "blocked", status: models.ConnectionBlocked, wantErr: ErrIdentityBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newConnectionFixture(t)
			fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
				return models.IdentityConnectionRegistration{Status: tt.status}, nil
			}

			_, err := fx.service().Connect(context.Background(), fx.masterKey, ConnectRequest{Identity: "bob.example.org"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConnectionService_Connect_RequiresMasterKey(t *testing.T) {
	fx := newConnectionFixture(t)

	_, err := fx.service().Connect(context.Background(), nil, ConnectRequest{Identity: "bob.example.org"})
	assert.ErrorIs(t, err, ErrMissingMasterKey)
}

func TestConnectionService_Block_OnlyFromConnected(t *testing.T) {
	fx := newConnectionFixture(t)
	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return models.IdentityConnectionRegistration{Status: models.ConnectionBlocked}, nil
	}

	err := fx.service().Block(context.Background(), "bob.example.org")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectionService_BlockUnblock_RoundTrip(t *testing.T) {
	fx := newConnectionFixture(t)
	icr := fx.connectedRegistration(t)

	var stored models.IdentityConnectionRegistration
	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return icr, nil
	}
	fx.connections.upsertFn = func(_ context.Context, updated models.IdentityConnectionRegistration) error {
		stored = updated
		return nil
	}

	require.NoError(t, fx.service().Block(context.Background(), icr.Identity))
	assert.Equal(t, models.ConnectionBlocked, stored.Status)

	// The grant bundle survives the block so unblocking restores it.
	require.NotNil(t, stored.AccessGrant)

	icr = stored
	require.NoError(t, fx.service().Unblock(context.Background(), icr.Identity))
	assert.Equal(t, models.ConnectionConnected, stored.Status)
}

func TestConnectionService_Unblock_OnlyFromBlocked(t *testing.T) {
	fx := newConnectionFixture(t)
	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return models.IdentityConnectionRegistration{Status: models.ConnectionConnected}, nil
	}

	err := fx.service().Unblock(context.Background(), "bob.example.org")
	assert.ErrorIs(t, err, ErrNotBlocked)
}

func TestConnectionService_Disconnect_NotConnected(t *testing.T) {
	fx := newConnectionFixture(t)
	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return models.IdentityConnectionRegistration{}, store.ErrConnectionNotFound
	}

	err := fx.service().Disconnect(context.Background(), "bob.example.org")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectionService_Disconnect_BlockedIsRejected(t *testing.T) {
	fx := newConnectionFixture(t)
	icr := fx.connectedRegistration(t)
	icr.Status = models.ConnectionBlocked

	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return icr, nil
	}
	fx.connections.deleteFn = func(_ context.Context, _ string) error {
		t.Fatal("blocked registration must not be deleted")
		return nil
	}

	err := fx.service().Disconnect(context.Background(), icr.Identity)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectionService_ConnectionAuthToken_BlockedIsSecurityError(t *testing.T) {
	fx := newConnectionFixture(t)
	icr := fx.connectedRegistration(t)
	icr.Status = models.ConnectionBlocked

	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return icr, nil
	}

	_, err := fx.service().ConnectionAuthToken(context.Background(), icr.Identity)
	assert.ErrorIs(t, err, access.ErrSecurity)
}

func TestConnectionService_ConnectionAuthToken_ReturnsStoredCredential(t *testing.T) {
	fx := newConnectionFixture(t)
	icr := fx.connectedRegistration(t)

	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return icr, nil
	}

	token, err := fx.service().ConnectionAuthToken(context.Background(), icr.Identity)
	require.NoError(t, err)
	assert.Equal(t, icr.ClientAccessTokenID, token.ID)
	assert.Equal(t, icr.ClientAccessTokenHalfKey, token.AccessTokenHalfKey)
}

func TestConnectionService_GrantCircle_AddsCircleAndAppGrants(t *testing.T) {
	fx := newConnectionFixture(t)
	icr := fx.connectedRegistration(t)
	circleID := uuid.New()
	appID := uuid.New()

	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return icr, nil
	}
	fx.apps.getAllFn = func(_ context.Context) ([]models.AppRegistration, error) {
		return []models.AppRegistration{{AppID: appID, AuthorizedCircles: []uuid.UUID{circleID}}}, nil
	}

	var stored models.IdentityConnectionRegistration
	fx.connections.upsertFn = func(_ context.Context, updated models.IdentityConnectionRegistration) error {
		stored = updated
		return nil
	}

	err := fx.service().GrantCircle(context.Background(), fx.masterKey, circleID, icr.Identity)
	require.NoError(t, err)

	assert.Contains(t, stored.AccessGrant.CircleGrants, circleID.String())
	require.Contains(t, stored.AccessGrant.AppGrants, appID.String())
	assert.Contains(t, stored.AccessGrant.AppGrants[appID.String()], circleID.String())
}

func TestConnectionService_GrantCircle_AlreadyGranted(t *testing.T) {
	fx := newConnectionFixture(t)
	circleID := uuid.New()
	icr := fx.connectedRegistration(t, circleID)

	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return icr, nil
	}

	err := fx.service().GrantCircle(context.Background(), fx.masterKey, circleID, icr.Identity)
	assert.ErrorIs(t, err, ErrCircleAlreadyGranted)
}

func TestConnectionService_GrantCircle_NotConnected(t *testing.T) {
	fx := newConnectionFixture(t)
	icr := fx.connectedRegistration(t)
	icr.Status = models.ConnectionNone

	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return icr, nil
	}

	err := fx.service().GrantCircle(context.Background(), fx.masterKey, uuid.New(), icr.Identity)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectionService_RevokeCircleAccess_Idempotent(t *testing.T) {
	fx := newConnectionFixture(t)
	circleID := uuid.New()
	appID := uuid.New()
	icr := fx.connectedRegistration(t, circleID)
	icr.AccessGrant.AddUpdateAppCircleGrant(models.AppCircleGrant{AppID: appID, CircleID: circleID})

	upserts := 0
	fx.connections.getFn = func(_ context.Context, _ string) (models.IdentityConnectionRegistration, error) {
		return icr, nil
	}
	fx.connections.upsertFn = func(_ context.Context, updated models.IdentityConnectionRegistration) error {
		upserts++
		icr = updated
		return nil
	}

	svc := fx.service()

	require.NoError(t, svc.RevokeCircleAccess(context.Background(), circleID, icr.Identity))
	assert.NotContains(t, icr.AccessGrant.CircleGrants, circleID.String())
	assert.NotContains(t, icr.AccessGrant.AppGrants, appID.String())
	assert.Equal(t, 1, upserts)

	// Second revoke is a no-op, not an error, and writes nothing.
	require.NoError(t, svc.RevokeCircleAccess(context.Background(), circleID, icr.Identity))
	assert.Equal(t, 1, upserts)
}

func TestConnectionService_UpdateCircleDefinition_RebuildsMembers(t *testing.T) {
	fx := newConnectionFixture(t)
	circleID := uuid.New()
	def := models.CircleDefinition{ID: circleID, Name: "friends"}

	connected := fx.connectedRegistration(t, circleID)
	stale := fx.connectedRegistration(t, circleID)
	stale.Identity = "carol.example.org"
	stale.Status = models.ConnectionNone

	fx.connections.getCircleMembersFn = func(_ context.Context, _ uuid.UUID) ([]string, error) {
		return []string{connected.Identity, stale.Identity}, nil
	}
	fx.connections.getFn = func(_ context.Context, identity string) (models.IdentityConnectionRegistration, error) {
		if identity == stale.Identity {
			return stale, nil
		}
		return connected, nil
	}

	var rebuiltFor []string
	fx.connections.upsertFn = func(_ context.Context, updated models.IdentityConnectionRegistration) error {
		rebuiltFor = append(rebuiltFor, updated.Identity)
		return nil
	}

	var rederived int
	fx.grants.createCircleGrantFn = func(_ context.Context, _, _ crypto.SensitiveBytes, d models.CircleDefinition) (models.CircleGrant, error) {
		rederived++
		return models.CircleGrant{CircleID: d.ID, PermissionSet: d.Permissions}, nil
	}

	err := fx.service().UpdateCircleDefinition(context.Background(), fx.masterKey, def)
	require.NoError(t, err)

	// Only the connected member is rebuilt; the stale one is skipped.
	assert.Equal(t, []string{connected.Identity}, rebuiltFor)
	assert.Equal(t, 1, rederived)
}

func TestConnectionService_UpdateCircleDefinition_SystemCircleRejected(t *testing.T) {
	fx := newConnectionFixture(t)

	err := fx.service().UpdateCircleDefinition(context.Background(), fx.masterKey, models.CircleDefinition{ID: models.SystemCircleID})
	assert.ErrorIs(t, err, ErrSystemCircleImmutable)
}

func TestConnectionService_UpdateCircleDefinition_AggregatesMemberFailures(t *testing.T) {
	fx := newConnectionFixture(t)
	circleID := uuid.New()
	def := models.CircleDefinition{ID: circleID, Name: "friends"}

	good := fx.connectedRegistration(t, circleID)
	bad := fx.connectedRegistration(t, circleID)
	bad.Identity = "carol.example.org"

	fx.connections.getCircleMembersFn = func(_ context.Context, _ uuid.UUID) ([]string, error) {
		return []string{bad.Identity, good.Identity}, nil
	}
	fx.connections.getFn = func(_ context.Context, identity string) (models.IdentityConnectionRegistration, error) {
		if identity == bad.Identity {
			return models.IdentityConnectionRegistration{}, store.ErrConnectionNotFound
		}
		return good, nil
	}

	var rebuiltFor []string
	fx.connections.upsertFn = func(_ context.Context, updated models.IdentityConnectionRegistration) error {
		rebuiltFor = append(rebuiltFor, updated.Identity)
		return nil
	}

	err := fx.service().UpdateCircleDefinition(context.Background(), fx.masterKey, def)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConnectionNotFound)

	// One member failing does not stop the others from being rebuilt.
	assert.Equal(t, []string{good.Identity}, rebuiltFor)
}

func TestConnectionService_ReconcileAuthorizedCircles_RebuildsBuckets(t *testing.T) {
	fx := newConnectionFixture(t)
	circleA := uuid.New()
	circleB := uuid.New()
	appID := uuid.New()

	// Member of A and B; the app used to authorize B only, now A only.
	icr := fx.connectedRegistration(t, circleA, circleB)
	icr.AccessGrant.AddUpdateAppCircleGrant(models.AppCircleGrant{AppID: appID, CircleID: circleB})

	fx.connections.getListFn = func(_ context.Context, status models.ConnectionStatus, cursor int64, _ int) ([]models.IdentityConnectionRegistration, int64, error) {
		if cursor != 0 {
			return nil, 0, nil
		}
		return []models.IdentityConnectionRegistration{icr}, 0, nil
	}

	var stored models.IdentityConnectionRegistration
	fx.connections.upsertFn = func(_ context.Context, updated models.IdentityConnectionRegistration) error {
		stored = updated
		return nil
	}

	app := models.AppRegistration{AppID: appID, AuthorizedCircles: []uuid.UUID{circleA}}
	err := fx.service().ReconcileAuthorizedCircles(context.Background(), fx.masterKey, app)
	require.NoError(t, err)

	require.Contains(t, stored.AccessGrant.AppGrants, appID.String())
	assert.Contains(t, stored.AccessGrant.AppGrants[appID.String()], circleA.String())
	assert.NotContains(t, stored.AccessGrant.AppGrants[appID.String()], circleB.String())
}

func TestConnectionService_ReconcileAuthorizedCircles_NoChangeNoWrite(t *testing.T) {
	fx := newConnectionFixture(t)
	circleA := uuid.New()
	appID := uuid.New()

	icr := fx.connectedRegistration(t, circleA)
	icr.AccessGrant.AddUpdateAppCircleGrant(models.AppCircleGrant{AppID: appID, CircleID: circleA})

	fx.connections.getListFn = func(_ context.Context, _ models.ConnectionStatus, cursor int64, _ int) ([]models.IdentityConnectionRegistration, int64, error) {
		if cursor != 0 {
			return nil, 0, nil
		}
		return []models.IdentityConnectionRegistration{icr}, 0, nil
	}

	upserts := 0
	fx.connections.upsertFn = func(_ context.Context, _ models.IdentityConnectionRegistration) error {
		upserts++
		return nil
	}

	app := models.AppRegistration{AppID: appID, AuthorizedCircles: []uuid.UUID{circleA}}
	err := fx.service().ReconcileAuthorizedCircles(context.Background(), fx.masterKey, app)
	require.NoError(t, err)
	assert.Equal(t, 0, upserts)
}
