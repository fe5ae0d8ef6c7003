package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/access"
	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/models"
)

// CircleService manages circle definitions: the reusable grant templates
// that connections are granted membership of. Definitions are cached;
// every write invalidates the cache so enable/disable takes effect for the
// next permission context built.
type CircleService interface {
	Create(ctx context.Context, req models.CreateCircleRequest) (models.CircleDefinition, error)
	Get(ctx context.Context, circleID uuid.UUID) (models.CircleDefinition, error)
	GetAll(ctx context.Context) ([]models.CircleDefinition, error)
	Update(ctx context.Context, def models.CircleDefinition) error
	Delete(ctx context.Context, circleID uuid.UUID) error

	Disable(ctx context.Context, circleID uuid.UUID) error
	Enable(ctx context.Context, circleID uuid.UUID) error

	// IsEnabled is the live check used by the permission-context builder.
	IsEnabled(ctx context.Context, circleID uuid.UUID) (bool, error)

	// EnsureSystemCircle creates the reserved system circle when missing.
	EnsureSystemCircle(ctx context.Context) error

	// SyncSystemCircleDrives rebuilds the system circle's drive-grant list
	// from the drives currently allowing anonymous reads and returns the
	// updated definition.
	SyncSystemCircleDrives(ctx context.Context) (models.CircleDefinition, error)

	// AssertValidDriveGrants verifies every requested drive exists and the
	// requested permission is non-empty.
	AssertValidDriveGrants(ctx context.Context, grants []models.DriveGrantRequest) error
}

// GrantService derives exchange-grant material: instantiated circle and
// app-circle grants, access registrations, and per-request permission
// contexts. Every method receiving key material wipes intermediate keys on
// all exit paths.
type GrantService interface {
	// CreateDriveGrants instantiates the requested drive grants,
	// re-encrypting each drive's storage key under keyStoreKey. When
	// masterKey is empty the grants carry no key material.
	CreateDriveGrants(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, requests []models.DriveGrantRequest) ([]models.DriveGrant, error)

	// CreateCircleGrant instantiates def for one connection.
	CreateCircleGrant(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, def models.CircleDefinition) (models.CircleGrant, error)

	// CreateAppCircleGrant instantiates app's circle-member template for one
	// (connection, circle) pair.
	CreateAppCircleGrant(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, app models.AppRegistration, circleID uuid.UUID) (models.AppCircleGrant, error)

	// CreateAccessRegistration mints the connection credential: the durable
	// server-side registration and the client access token handed to the
	// remote party.
	CreateAccessRegistration(ctx context.Context, keyStoreKey, sharedSecret crypto.SensitiveBytes) (models.AccessRegistration, models.ClientAccessToken, error)

	// CreatePermissionContext verifies token against the registration held
	// in icr and assembles the caller's authorization object from the
	// currently enabled grants. Returns the context and the enabled circle
	// ids that contributed to it.
	CreatePermissionContext(ctx context.Context, icr models.IdentityConnectionRegistration, token models.ClientAuthToken, applyAppGrants bool) (*access.PermissionContext, []uuid.UUID, error)

	// CreateAnonymousContext builds the reduced context for callers with no
	// standing connection: anonymous-read drives plus tenant opt-ins only.
	CreateAnonymousContext(ctx context.Context) (*access.PermissionContext, error)
}

// ConnectRequest carries the inputs for establishing a new connection.
type ConnectRequest struct {
	// Identity is the peer's federation identifier.
	Identity string

	// CircleIDs are the circles to grant at connect time. The system circle
	// is always added.
	CircleIDs []uuid.UUID

	// RemoteToken is the credential the peer issued to this host for
	// calling it back.
	RemoteToken models.ClientAccessToken

	ContactData *models.ContactRequestData
}

// ConnectionService drives the connection lifecycle state machine and the
// per-connection grant bundle.
type ConnectionService interface {
	// Connect establishes a new Connected registration. Allowed only when
	// no connection exists. Returns the access token to hand to the peer.
	Connect(ctx context.Context, masterKey crypto.SensitiveBytes, req ConnectRequest) (models.ClientAccessToken, error)

	// Disconnect removes the registration and both derived indices.
	// Allowed only from the Connected state; a blocked identity must be
	// unblocked first.
	Disconnect(ctx context.Context, identity string) error

	// Block moves a Connected registration to Blocked. The grant bundle is
	// retained so Unblock restores the prior state.
	Block(ctx context.Context, identity string) error

	// Unblock moves a Blocked registration back to Connected.
	Unblock(ctx context.Context, identity string) error

	Get(ctx context.Context, identity string) (models.IdentityConnectionRegistration, error)
	GetConnectedIdentities(ctx context.Context, cursor int64, limit int) ([]models.IdentityConnectionRegistration, int64, error)
	GetBlockedProfiles(ctx context.Context, cursor int64, limit int) ([]models.IdentityConnectionRegistration, int64, error)
	GetCircleMembers(ctx context.Context, circleID uuid.UUID) ([]string, error)

	// ConnectionAuthToken returns the locally-held credential for calling
	// the peer back, failing with a security-kind error when the peer is
	// not connected.
	ConnectionAuthToken(ctx context.Context, identity string) (models.ClientAuthToken, error)

	// GrantCircle derives a fresh circle grant from the live definition and
	// adds it, plus matching app-circle grants, to the peer's bundle.
	GrantCircle(ctx context.Context, masterKey crypto.SensitiveBytes, circleID uuid.UUID, identity string) error

	// RevokeCircleAccess removes the circle's grant and strips the circle
	// from every app-grant bucket. Revoking an absent grant is a no-op.
	RevokeCircleAccess(ctx context.Context, circleID uuid.UUID, identity string) error

	// UpdateCircleDefinition persists the new definition and rebuilds every
	// current member's grant from it. Per-member failures are aggregated;
	// members no longer connected are skipped and flagged.
	UpdateCircleDefinition(ctx context.Context, masterKey crypto.SensitiveBytes, def models.CircleDefinition) error

	// DeleteCircleDefinition removes a definition with no remaining members.
	DeleteCircleDefinition(ctx context.Context, circleID uuid.UUID) error

	// HandleDriveUpdated re-synchronizes the system circle's drive list and
	// every connected member after a drive is created or its anonymous-read
	// flag flips.
	HandleDriveUpdated(ctx context.Context, masterKey crypto.SensitiveBytes) error

	// ReconcileAuthorizedCircles rebuilds the app-circle grants of every
	// connected identity after app's authorized-circle list changed.
	ReconcileAuthorizedCircles(ctx context.Context, masterKey crypto.SensitiveBytes, app models.AppRegistration) error
}

// AppService manages app registrations and keeps standing app-circle
// grants in step with them.
type AppService interface {
	Register(ctx context.Context, masterKey crypto.SensitiveBytes, app models.AppRegistration) (models.AppRegistration, error)
	UpdateAuthorizedCircles(ctx context.Context, masterKey crypto.SensitiveBytes, appID uuid.UUID, circleIDs []uuid.UUID) error
	Get(ctx context.Context, appID uuid.UUID) (models.AppRegistration, error)
	GetAll(ctx context.Context) ([]models.AppRegistration, error)

	// Delete strips the app's grants from every member, then removes the
	// registration.
	Delete(ctx context.Context, masterKey crypto.SensitiveBytes, appID uuid.UUID) error
}

// CreateDriveRequest carries the owner-supplied fields for a new drive.
type CreateDriveRequest struct {
	TargetDrive         models.TargetDrive
	Name                string
	AllowAnonymousReads bool
}

// DriveService manages storage drives and triggers the system-circle
// synchronization on anonymous-read changes.
type DriveService interface {
	Create(ctx context.Context, masterKey crypto.SensitiveBytes, req CreateDriveRequest) (models.StorageDrive, error)
	Get(ctx context.Context, driveID uuid.UUID) (models.StorageDrive, error)
	GetByTarget(ctx context.Context, target models.TargetDrive) (models.StorageDrive, error)
	GetAll(ctx context.Context) ([]models.StorageDrive, error)

	SetAllowAnonymousReads(ctx context.Context, masterKey crypto.SensitiveBytes, driveID uuid.UUID, allow bool) error
}
