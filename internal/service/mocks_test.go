package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/access"
	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/models"
)

// ─────────────────────────────────────────────
// Mock: store.ConnectionRepository
// ─────────────────────────────────────────────

type mockConnectionRepository struct {
	upsertFn           func(ctx context.Context, icr models.IdentityConnectionRegistration) error
	getFn              func(ctx context.Context, identity string) (models.IdentityConnectionRegistration, error)
	deleteFn           func(ctx context.Context, identity string) error
	getListFn          func(ctx context.Context, status models.ConnectionStatus, cursor int64, limit int) ([]models.IdentityConnectionRegistration, int64, error)
	getCircleMembersFn func(ctx context.Context, circleID uuid.UUID) ([]string, error)
	reconcileFn        func(ctx context.Context) (int64, error)
}

func (m *mockConnectionRepository) Upsert(ctx context.Context, icr models.IdentityConnectionRegistration) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, icr)
	}
	return nil
}

func (m *mockConnectionRepository) Get(ctx context.Context, identity string) (models.IdentityConnectionRegistration, error) {
	if m.getFn != nil {
		return m.getFn(ctx, identity)
	}
	return models.IdentityConnectionRegistration{}, nil
}

func (m *mockConnectionRepository) Delete(ctx context.Context, identity string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, identity)
	}
	return nil
}

func (m *mockConnectionRepository) GetList(ctx context.Context, status models.ConnectionStatus, cursor int64, limit int) ([]models.IdentityConnectionRegistration, int64, error) {
	if m.getListFn != nil {
		return m.getListFn(ctx, status, cursor, limit)
	}
	return nil, 0, nil
}

func (m *mockConnectionRepository) GetCircleMembers(ctx context.Context, circleID uuid.UUID) ([]string, error) {
	if m.getCircleMembersFn != nil {
		return m.getCircleMembersFn(ctx, circleID)
	}
	return nil, nil
}

func (m *mockConnectionRepository) Reconcile(ctx context.Context) (int64, error) {
	if m.reconcileFn != nil {
		return m.reconcileFn(ctx)
	}
	return 0, nil
}

// ─────────────────────────────────────────────
// Mock: store.CircleRepository
// ─────────────────────────────────────────────

type mockCircleRepository struct {
	createFn func(ctx context.Context, def models.CircleDefinition) error
	updateFn func(ctx context.Context, def models.CircleDefinition) error
	getFn    func(ctx context.Context, circleID uuid.UUID) (models.CircleDefinition, error)
	getAllFn func(ctx context.Context) ([]models.CircleDefinition, error)
	deleteFn func(ctx context.Context, circleID uuid.UUID) error
}

func (m *mockCircleRepository) Create(ctx context.Context, def models.CircleDefinition) error {
	if m.createFn != nil {
		return m.createFn(ctx, def)
	}
	return nil
}

func (m *mockCircleRepository) Update(ctx context.Context, def models.CircleDefinition) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, def)
	}
	return nil
}

func (m *mockCircleRepository) Get(ctx context.Context, circleID uuid.UUID) (models.CircleDefinition, error) {
	if m.getFn != nil {
		return m.getFn(ctx, circleID)
	}
	return models.CircleDefinition{}, nil
}

func (m *mockCircleRepository) GetAll(ctx context.Context) ([]models.CircleDefinition, error) {
	if m.getAllFn != nil {
		return m.getAllFn(ctx)
	}
	return nil, nil
}

func (m *mockCircleRepository) Delete(ctx context.Context, circleID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, circleID)
	}
	return nil
}

// ─────────────────────────────────────────────
// Mock: store.DriveRepository
// ─────────────────────────────────────────────

type mockDriveRepository struct {
	upsertFn                 func(ctx context.Context, drive models.StorageDrive) error
	getFn                    func(ctx context.Context, driveID uuid.UUID) (models.StorageDrive, error)
	getByTargetFn            func(ctx context.Context, target models.TargetDrive) (models.StorageDrive, error)
	getAllFn                 func(ctx context.Context) ([]models.StorageDrive, error)
	getAnonymousReadDrivesFn func(ctx context.Context) ([]models.StorageDrive, error)
}

func (m *mockDriveRepository) Upsert(ctx context.Context, drive models.StorageDrive) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, drive)
	}
	return nil
}

func (m *mockDriveRepository) Get(ctx context.Context, driveID uuid.UUID) (models.StorageDrive, error) {
	if m.getFn != nil {
		return m.getFn(ctx, driveID)
	}
	return models.StorageDrive{}, nil
}

func (m *mockDriveRepository) GetByTarget(ctx context.Context, target models.TargetDrive) (models.StorageDrive, error) {
	if m.getByTargetFn != nil {
		return m.getByTargetFn(ctx, target)
	}
	return models.StorageDrive{}, nil
}

func (m *mockDriveRepository) GetAll(ctx context.Context) ([]models.StorageDrive, error) {
	if m.getAllFn != nil {
		return m.getAllFn(ctx)
	}
	return nil, nil
}

func (m *mockDriveRepository) GetAnonymousReadDrives(ctx context.Context) ([]models.StorageDrive, error) {
	if m.getAnonymousReadDrivesFn != nil {
		return m.getAnonymousReadDrivesFn(ctx)
	}
	return nil, nil
}

// ─────────────────────────────────────────────
// Mock: store.AppRepository
// ─────────────────────────────────────────────

type mockAppRepository struct {
	upsertFn func(ctx context.Context, app models.AppRegistration) error
	getFn    func(ctx context.Context, appID uuid.UUID) (models.AppRegistration, error)
	getAllFn func(ctx context.Context) ([]models.AppRegistration, error)
	deleteFn func(ctx context.Context, appID uuid.UUID) error
}

func (m *mockAppRepository) Upsert(ctx context.Context, app models.AppRegistration) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, app)
	}
	return nil
}

func (m *mockAppRepository) Get(ctx context.Context, appID uuid.UUID) (models.AppRegistration, error) {
	if m.getFn != nil {
		return m.getFn(ctx, appID)
	}
	return models.AppRegistration{}, nil
}

func (m *mockAppRepository) GetAll(ctx context.Context) ([]models.AppRegistration, error) {
	if m.getAllFn != nil {
		return m.getAllFn(ctx)
	}
	return nil, nil
}

func (m *mockAppRepository) Delete(ctx context.Context, appID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, appID)
	}
	return nil
}

// ─────────────────────────────────────────────
// Mock: CircleService
// ─────────────────────────────────────────────

type mockCircleService struct {
	createFn                 func(ctx context.Context, req models.CreateCircleRequest) (models.CircleDefinition, error)
	getFn                    func(ctx context.Context, circleID uuid.UUID) (models.CircleDefinition, error)
	getAllFn                 func(ctx context.Context) ([]models.CircleDefinition, error)
	updateFn                 func(ctx context.Context, def models.CircleDefinition) error
	deleteFn                 func(ctx context.Context, circleID uuid.UUID) error
	disableFn                func(ctx context.Context, circleID uuid.UUID) error
	enableFn                 func(ctx context.Context, circleID uuid.UUID) error
	isEnabledFn              func(ctx context.Context, circleID uuid.UUID) (bool, error)
	ensureSystemCircleFn     func(ctx context.Context) error
	syncSystemCircleDrivesFn func(ctx context.Context) (models.CircleDefinition, error)
	assertValidDriveGrantsFn func(ctx context.Context, grants []models.DriveGrantRequest) error
}

func (m *mockCircleService) Create(ctx context.Context, req models.CreateCircleRequest) (models.CircleDefinition, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return models.CircleDefinition{}, nil
}

func (m *mockCircleService) Get(ctx context.Context, circleID uuid.UUID) (models.CircleDefinition, error) {
	if m.getFn != nil {
		return m.getFn(ctx, circleID)
	}
	return models.CircleDefinition{ID: circleID}, nil
}

func (m *mockCircleService) GetAll(ctx context.Context) ([]models.CircleDefinition, error) {
	if m.getAllFn != nil {
		return m.getAllFn(ctx)
	}
	return nil, nil
}

func (m *mockCircleService) Update(ctx context.Context, def models.CircleDefinition) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, def)
	}
	return nil
}

func (m *mockCircleService) Delete(ctx context.Context, circleID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, circleID)
	}
	return nil
}

func (m *mockCircleService) Disable(ctx context.Context, circleID uuid.UUID) error {
	if m.disableFn != nil {
		return m.disableFn(ctx, circleID)
	}
	return nil
}

func (m *mockCircleService) Enable(ctx context.Context, circleID uuid.UUID) error {
	if m.enableFn != nil {
		return m.enableFn(ctx, circleID)
	}
	return nil
}

func (m *mockCircleService) IsEnabled(ctx context.Context, circleID uuid.UUID) (bool, error) {
	if m.isEnabledFn != nil {
		return m.isEnabledFn(ctx, circleID)
	}
	return true, nil
}

func (m *mockCircleService) EnsureSystemCircle(ctx context.Context) error {
	if m.ensureSystemCircleFn != nil {
		return m.ensureSystemCircleFn(ctx)
	}
	return nil
}

func (m *mockCircleService) SyncSystemCircleDrives(ctx context.Context) (models.CircleDefinition, error) {
	if m.syncSystemCircleDrivesFn != nil {
		return m.syncSystemCircleDrivesFn(ctx)
	}
	return models.CircleDefinition{ID: models.SystemCircleID}, nil
}

func (m *mockCircleService) AssertValidDriveGrants(ctx context.Context, grants []models.DriveGrantRequest) error {
	if m.assertValidDriveGrantsFn != nil {
		return m.assertValidDriveGrantsFn(ctx, grants)
	}
	return nil
}

// ─────────────────────────────────────────────
// Mock: GrantService
// ─────────────────────────────────────────────

type mockGrantService struct {
	createDriveGrantsFn        func(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, requests []models.DriveGrantRequest) ([]models.DriveGrant, error)
	createCircleGrantFn        func(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, def models.CircleDefinition) (models.CircleGrant, error)
	createAppCircleGrantFn     func(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, app models.AppRegistration, circleID uuid.UUID) (models.AppCircleGrant, error)
	createAccessRegistrationFn func(ctx context.Context, keyStoreKey, sharedSecret crypto.SensitiveBytes) (models.AccessRegistration, models.ClientAccessToken, error)
	createPermissionContextFn  func(ctx context.Context, icr models.IdentityConnectionRegistration, token models.ClientAuthToken, applyAppGrants bool) (*access.PermissionContext, []uuid.UUID, error)
	createAnonymousContextFn   func(ctx context.Context) (*access.PermissionContext, error)
}

func (m *mockGrantService) CreateDriveGrants(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, requests []models.DriveGrantRequest) ([]models.DriveGrant, error) {
	if m.createDriveGrantsFn != nil {
		return m.createDriveGrantsFn(ctx, masterKey, keyStoreKey, requests)
	}
	return nil, nil
}

func (m *mockGrantService) CreateCircleGrant(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, def models.CircleDefinition) (models.CircleGrant, error) {
	if m.createCircleGrantFn != nil {
		return m.createCircleGrantFn(ctx, masterKey, keyStoreKey, def)
	}
	return models.CircleGrant{CircleID: def.ID, PermissionSet: def.Permissions}, nil
}

func (m *mockGrantService) CreateAppCircleGrant(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, app models.AppRegistration, circleID uuid.UUID) (models.AppCircleGrant, error) {
	if m.createAppCircleGrantFn != nil {
		return m.createAppCircleGrantFn(ctx, masterKey, keyStoreKey, app, circleID)
	}
	return models.AppCircleGrant{AppID: app.AppID, CircleID: circleID}, nil
}

func (m *mockGrantService) CreateAccessRegistration(ctx context.Context, keyStoreKey, sharedSecret crypto.SensitiveBytes) (models.AccessRegistration, models.ClientAccessToken, error) {
	if m.createAccessRegistrationFn != nil {
		return m.createAccessRegistrationFn(ctx, keyStoreKey, sharedSecret)
	}
	id := uuid.New()
	return models.AccessRegistration{ID: id}, models.ClientAccessToken{ID: id}, nil
}

func (m *mockGrantService) CreatePermissionContext(ctx context.Context, icr models.IdentityConnectionRegistration, token models.ClientAuthToken, applyAppGrants bool) (*access.PermissionContext, []uuid.UUID, error) {
	if m.createPermissionContextFn != nil {
		return m.createPermissionContextFn(ctx, icr, token, applyAppGrants)
	}
	return nil, nil, nil
}

func (m *mockGrantService) CreateAnonymousContext(ctx context.Context) (*access.PermissionContext, error) {
	if m.createAnonymousContextFn != nil {
		return m.createAnonymousContextFn(ctx)
	}
	return nil, nil
}
