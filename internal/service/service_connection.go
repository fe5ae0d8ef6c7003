// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/MKhiriev/identity-host/internal/access"
	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/models"
)

const (
	keyStoreKeyLen  = 32
	sharedSecretLen = 16
	icrKeyLen       = 32

	reconcilePageSize = 100
)

type connectionService struct {
	connectionRepository store.ConnectionRepository
	appRepository        store.AppRepository

	circleService CircleService
	grantService  GrantService

	logger *logger.Logger
}

func NewConnectionService(connections store.ConnectionRepository, apps store.AppRepository, circles CircleService, grants GrantService, logger *logger.Logger) ConnectionService {
	return &connectionService{
		connectionRepository: connections,
		appRepository:        apps,
		circleService:        circles,
		grantService:         grants,
		logger:               logger,
	}
}

func (c *connectionService) Connect(ctx context.Context, masterKey crypto.SensitiveBytes, req ConnectRequest) (models.ClientAccessToken, error) {
	log := logger.FromContext(ctx)

	if masterKey.IsEmpty() {
		return models.ClientAccessToken{}, ErrMissingMasterKey
	}

	existing, err := c.connectionRepository.Get(ctx, req.Identity)
	switch {
	case err == nil && existing.Status == models.ConnectionConnected:
		return models.ClientAccessToken{}, fmt.Errorf("%w: %s", ErrAlreadyConnected, req.Identity)
	case err == nil && existing.Status == models.ConnectionBlocked:
		return models.ClientAccessToken{}, fmt.Errorf("%w: %s", ErrIdentityBlocked, req.Identity)
	case err != nil && !errors.Is(err, store.ErrConnectionNotFound):
		return models.ClientAccessToken{}, err
	}

	keyStoreKey, err := crypto.GenerateKey(keyStoreKeyLen)
	if err != nil {
		return models.ClientAccessToken{}, err
	}
	defer keyStoreKey.Wipe()

	sharedSecret, err := crypto.GenerateKey(sharedSecretLen)
	if err != nil {
		return models.ClientAccessToken{}, err
	}
	defer sharedSecret.Wipe()

	grant, err := c.buildAccessGrant(ctx, masterKey, keyStoreKey, req.CircleIDs)
	if err != nil {
		return models.ClientAccessToken{}, err
	}

	registration, localToken, err := c.grantService.CreateAccessRegistration(ctx, keyStoreKey, sharedSecret)
	if err != nil {
		return models.ClientAccessToken{}, err
	}
	grant.AccessRegistration = registration

	now := time.Now().UnixMilli()
	icr := models.IdentityConnectionRegistration{
		Identity:                      req.Identity,
		Status:                        models.ConnectionConnected,
		Created:                       now,
		LastUpdated:                   now,
		AccessGrant:                   grant,
		ClientAccessTokenID:           req.RemoteToken.ID,
		ClientAccessTokenHalfKey:      req.RemoteToken.AccessTokenHalfKey,
		ClientAccessTokenSharedSecret: req.RemoteToken.SharedSecret,
		OriginalContactData:           req.ContactData,
	}

	if err := c.connectionRepository.Upsert(ctx, icr); err != nil {
		log.Err(err).Str("func", "service.connectionService.Connect").Str("identity", req.Identity).Msg("storing connection failed")
		return models.ClientAccessToken{}, err
	}

	log.Info().Str("func", "service.connectionService.Connect").Str("identity", req.Identity).Msg("connection established")
	return localToken, nil
}

// buildAccessGrant assembles the full capability bundle for a new
// connection: wrapped keys, circle grants for the requested circles plus
// the system circle, and matching app-circle grants.
func (c *connectionService) buildAccessGrant(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, circleIDs []uuid.UUID) (*models.AccessExchangeGrant, error) {
	masterKeyEncryptedKeyStoreKey, err := crypto.WrapKey(keyStoreKey, masterKey)
	if err != nil {
		return nil, err
	}

	icrKey, err := crypto.GenerateKey(icrKeyLen)
	if err != nil {
		return nil, err
	}
	defer icrKey.Wipe()

	keyStoreKeyEncryptedIcrKey, err := crypto.WrapKey(icrKey, keyStoreKey)
	if err != nil {
		return nil, err
	}

	grant := &models.AccessExchangeGrant{
		MasterKeyEncryptedKeyStoreKey: masterKeyEncryptedKeyStoreKey,
		KeyStoreKeyEncryptedIcrKey:    keyStoreKeyEncryptedIcrKey,
		CircleGrants:                  make(map[string]models.CircleGrant),
	}

	granted := map[uuid.UUID]bool{models.SystemCircleID: true}
	for _, circleID := range circleIDs {
		granted[circleID] = true
	}

	apps, err := c.appRepository.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	for circleID := range granted {
		def, err := c.circleService.Get(ctx, circleID)
		if err != nil {
			return nil, fmt.Errorf("circle %s: %w", circleID, err)
		}

		circleGrant, err := c.grantService.CreateCircleGrant(ctx, masterKey, keyStoreKey, def)
		if err != nil {
			return nil, err
		}
		grant.CircleGrants[circleID.String()] = circleGrant

		for _, app := range apps {
			if !app.AuthorizesCircle(circleID) {
				continue
			}
			appGrant, err := c.grantService.CreateAppCircleGrant(ctx, masterKey, keyStoreKey, app, circleID)
			if err != nil {
				return nil, err
			}
			grant.AddUpdateAppCircleGrant(appGrant)
		}
	}

	return grant, nil
}

func (c *connectionService) Disconnect(ctx context.Context, identity string) error {
	icr, err := c.connectionRepository.Get(ctx, identity)
	if errors.Is(err, store.ErrConnectionNotFound) {
		return fmt.Errorf("%w: %s", ErrNotConnected, identity)
	}
	if err != nil {
		return err
	}

	// A blocked identity stays on record until unblocked; only a live
	// connection can be severed.
	if !icr.IsConnected() {
		return fmt.Errorf("%w: %s", ErrNotConnected, identity)
	}

	return c.connectionRepository.Delete(ctx, identity)
}

func (c *connectionService) Block(ctx context.Context, identity string) error {
	icr, err := c.connectionRepository.Get(ctx, identity)
	if err != nil {
		return err
	}
	if icr.Status != models.ConnectionConnected {
		return fmt.Errorf("%w: %s", ErrNotConnected, identity)
	}

	icr.SetStatus(models.ConnectionBlocked, time.Now().UnixMilli())
	return c.connectionRepository.Upsert(ctx, icr)
}

func (c *connectionService) Unblock(ctx context.Context, identity string) error {
	icr, err := c.connectionRepository.Get(ctx, identity)
	if err != nil {
		return err
	}
	if icr.Status != models.ConnectionBlocked {
		return fmt.Errorf("%w: %s", ErrNotBlocked, identity)
	}

	icr.SetStatus(models.ConnectionConnected, time.Now().UnixMilli())
	return c.connectionRepository.Upsert(ctx, icr)
}

func (c *connectionService) Get(ctx context.Context, identity string) (models.IdentityConnectionRegistration, error) {
	return c.connectionRepository.Get(ctx, identity)
}

func (c *connectionService) GetConnectedIdentities(ctx context.Context, cursor int64, limit int) ([]models.IdentityConnectionRegistration, int64, error) {
	return c.connectionRepository.GetList(ctx, models.ConnectionConnected, cursor, limit)
}

func (c *connectionService) GetBlockedProfiles(ctx context.Context, cursor int64, limit int) ([]models.IdentityConnectionRegistration, int64, error) {
	return c.connectionRepository.GetList(ctx, models.ConnectionBlocked, cursor, limit)
}

func (c *connectionService) GetCircleMembers(ctx context.Context, circleID uuid.UUID) ([]string, error) {
	return c.connectionRepository.GetCircleMembers(ctx, circleID)
}

func (c *connectionService) ConnectionAuthToken(ctx context.Context, identity string) (models.ClientAuthToken, error) {
	icr, err := c.connectionRepository.Get(ctx, identity)
	if err != nil {
		return models.ClientAuthToken{}, err
	}
	if !icr.IsConnected() {
		return models.ClientAuthToken{}, fmt.Errorf("%w: %s is not connected", access.ErrSecurity, identity)
	}

	token, err := icr.ClientAccessTokenValue()
	if err != nil {
		return models.ClientAuthToken{}, fmt.Errorf("%w: %w", access.ErrSecurity, err)
	}

	return token.ToAuthToken(), nil
}

func (c *connectionService) GrantCircle(ctx context.Context, masterKey crypto.SensitiveBytes, circleID uuid.UUID, identity string) error {
	log := logger.FromContext(ctx)

	if masterKey.IsEmpty() {
		return ErrMissingMasterKey
	}

	icr, err := c.connectionRepository.Get(ctx, identity)
	if err != nil {
		return err
	}
	if !icr.IsConnected() || !icr.AccessGrant.IsValid() {
		return fmt.Errorf("%w: %s", ErrNotConnected, identity)
	}
	if _, exists := icr.AccessGrant.CircleGrants[circleID.String()]; exists {
		return fmt.Errorf("%w: circle %s", ErrCircleAlreadyGranted, circleID)
	}

	def, err := c.circleService.Get(ctx, circleID)
	if err != nil {
		return err
	}

	apps, err := c.appRepository.GetAll(ctx)
	if err != nil {
		return err
	}

	err = crypto.WithUnwrappedKey(icr.AccessGrant.MasterKeyEncryptedKeyStoreKey, masterKey, func(keyStoreKey crypto.SensitiveBytes) error {
		circleGrant, grantErr := c.grantService.CreateCircleGrant(ctx, masterKey, keyStoreKey, def)
		if grantErr != nil {
			return grantErr
		}
		icr.AccessGrant.AddUpdateCircleGrant(circleGrant)

		for _, app := range apps {
			if !app.AuthorizesCircle(circleID) {
				continue
			}
			appGrant, appErr := c.grantService.CreateAppCircleGrant(ctx, masterKey, keyStoreKey, app, circleID)
			if appErr != nil {
				return appErr
			}
			icr.AccessGrant.AddUpdateAppCircleGrant(appGrant)
		}
		return nil
	})
	if err != nil {
		log.Err(err).Str("func", "service.connectionService.GrantCircle").Str("identity", identity).Str("circle_id", circleID.String()).Msg("grant derivation failed")
		return err
	}

	icr.LastUpdated = time.Now().UnixMilli()
	return c.connectionRepository.Upsert(ctx, icr)
}

func (c *connectionService) RevokeCircleAccess(ctx context.Context, circleID uuid.UUID, identity string) error {
	icr, err := c.connectionRepository.Get(ctx, identity)
	if err != nil {
		return err
	}
	if icr.AccessGrant == nil {
		return nil
	}

	circleKey := circleID.String()
	_, hadGrant := icr.AccessGrant.CircleGrants[circleKey]
	delete(icr.AccessGrant.CircleGrants, circleKey)

	for appKey, byCircle := range icr.AccessGrant.AppGrants {
		if _, ok := byCircle[circleKey]; ok {
			hadGrant = true
			delete(byCircle, circleKey)
		}
		if len(byCircle) == 0 {
			delete(icr.AccessGrant.AppGrants, appKey)
		}
	}

	// Revoking an absent grant is a no-op.
	if !hadGrant {
		return nil
	}

	icr.LastUpdated = time.Now().UnixMilli()
	return c.connectionRepository.Upsert(ctx, icr)
}

func (c *connectionService) UpdateCircleDefinition(ctx context.Context, masterKey crypto.SensitiveBytes, def models.CircleDefinition) error {
	if def.IsSystemCircle() {
		return ErrSystemCircleImmutable
	}
	if masterKey.IsEmpty() {
		return ErrMissingMasterKey
	}

	if err := c.circleService.Update(ctx, def); err != nil {
		return err
	}

	return c.resyncMembers(ctx, masterKey, def)
}

func (c *connectionService) DeleteCircleDefinition(ctx context.Context, circleID uuid.UUID) error {
	// Member and system-circle guards live in the definition service.
	return c.circleService.Delete(ctx, circleID)
}

func (c *connectionService) HandleDriveUpdated(ctx context.Context, masterKey crypto.SensitiveBytes) error {
	if masterKey.IsEmpty() {
		return ErrMissingMasterKey
	}

	def, err := c.circleService.SyncSystemCircleDrives(ctx)
	if err != nil {
		return err
	}

	return c.resyncMembers(ctx, masterKey, def)
}

// resyncMembers rebuilds every current member's grant for def from the
// definition's present state. Members who are no longer connected are
// skipped and flagged; per-member failures are aggregated so one bad
// registration does not abort the cascade.
func (c *connectionService) resyncMembers(ctx context.Context, masterKey crypto.SensitiveBytes, def models.CircleDefinition) error {
	log := logger.FromContext(ctx)

	members, err := c.connectionRepository.GetCircleMembers(ctx, def.ID)
	if err != nil {
		return err
	}

	apps, err := c.appRepository.GetAll(ctx)
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, member := range members {
		if err := c.resyncMember(ctx, masterKey, def, apps, member); err != nil {
			log.Err(err).
				Str("func", "service.connectionService.resyncMembers").
				Str("identity", member).
				Str("circle_id", def.ID.String()).
				Msg("member grant rebuild failed")
			result = multierror.Append(result, fmt.Errorf("member %s: %w", member, err))
		}
	}

	return result.ErrorOrNil()
}

func (c *connectionService) resyncMember(ctx context.Context, masterKey crypto.SensitiveBytes, def models.CircleDefinition, apps []models.AppRegistration, identity string) error {
	log := logger.FromContext(ctx)

	icr, err := c.connectionRepository.Get(ctx, identity)
	if err != nil {
		return err
	}
	if !icr.IsConnected() || !icr.AccessGrant.IsValid() {
		log.Warn().
			Str("func", "service.connectionService.resyncMember").
			Str("identity", identity).
			Str("circle_id", def.ID.String()).
			Msg("stale circle membership on non-connected registration")
		return nil
	}

	err = crypto.WithUnwrappedKey(icr.AccessGrant.MasterKeyEncryptedKeyStoreKey, masterKey, func(keyStoreKey crypto.SensitiveBytes) error {
		circleGrant, grantErr := c.grantService.CreateCircleGrant(ctx, masterKey, keyStoreKey, def)
		if grantErr != nil {
			return grantErr
		}
		icr.AccessGrant.AddUpdateCircleGrant(circleGrant)

		for _, app := range apps {
			if !app.AuthorizesCircle(def.ID) {
				continue
			}
			appGrant, appErr := c.grantService.CreateAppCircleGrant(ctx, masterKey, keyStoreKey, app, def.ID)
			if appErr != nil {
				return appErr
			}
			icr.AccessGrant.AddUpdateAppCircleGrant(appGrant)
		}
		return nil
	})
	if err != nil {
		return err
	}

	icr.LastUpdated = time.Now().UnixMilli()
	return c.connectionRepository.Upsert(ctx, icr)
}

func (c *connectionService) ReconcileAuthorizedCircles(ctx context.Context, masterKey crypto.SensitiveBytes, app models.AppRegistration) error {
	log := logger.FromContext(ctx)

	if masterKey.IsEmpty() {
		return ErrMissingMasterKey
	}

	var result *multierror.Error

	cursor := int64(0)
	for {
		page, next, err := c.connectionRepository.GetList(ctx, models.ConnectionConnected, cursor, reconcilePageSize)
		if err != nil {
			return err
		}

		for _, icr := range page {
			if err := c.reconcileAppGrants(ctx, masterKey, app, icr); err != nil {
				log.Err(err).
					Str("func", "service.connectionService.ReconcileAuthorizedCircles").
					Str("identity", icr.Identity).
					Str("app_id", app.AppID.String()).
					Msg("app grant reconciliation failed")
				result = multierror.Append(result, fmt.Errorf("member %s: %w", icr.Identity, err))
			}
		}

		if next == 0 {
			break
		}
		cursor = next
	}

	return result.ErrorOrNil()
}

// reconcileAppGrants rebuilds one registration's grant bucket for the app
// from scratch: a grant per authorized circle the identity is a member of,
// nothing else. Upserts only when the bucket actually changed.
func (c *connectionService) reconcileAppGrants(ctx context.Context, masterKey crypto.SensitiveBytes, app models.AppRegistration, icr models.IdentityConnectionRegistration) error {
	if icr.AccessGrant == nil {
		return nil
	}

	appKey := app.AppID.String()
	existing := icr.AccessGrant.AppGrants[appKey]

	var wanted []uuid.UUID
	for _, circleID := range app.AuthorizedCircles {
		if _, member := icr.AccessGrant.CircleGrants[circleID.String()]; member {
			wanted = append(wanted, circleID)
		}
	}

	if len(wanted) == 0 && len(existing) == 0 {
		return nil
	}
	if len(wanted) == len(existing) {
		same := true
		for _, circleID := range wanted {
			if _, ok := existing[circleID.String()]; !ok {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}

	delete(icr.AccessGrant.AppGrants, appKey)

	if len(wanted) > 0 {
		err := crypto.WithUnwrappedKey(icr.AccessGrant.MasterKeyEncryptedKeyStoreKey, masterKey, func(keyStoreKey crypto.SensitiveBytes) error {
			for _, circleID := range wanted {
				appGrant, grantErr := c.grantService.CreateAppCircleGrant(ctx, masterKey, keyStoreKey, app, circleID)
				if grantErr != nil {
					return grantErr
				}
				icr.AccessGrant.AddUpdateAppCircleGrant(appGrant)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	icr.LastUpdated = time.Now().UnixMilli()
	return c.connectionRepository.Upsert(ctx, icr)
}
