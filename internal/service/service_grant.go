// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/access"
	"github.com/MKhiriev/identity-host/internal/config"
	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/models"
)

const tokenHalfKeyLen = 16

type grantService struct {
	driveRepository store.DriveRepository
	circleService   CircleService

	host config.Host

	logger *logger.Logger
}

func NewGrantService(drives store.DriveRepository, circles CircleService, cfg config.Host, logger *logger.Logger) GrantService {
	return &grantService{
		driveRepository: drives,
		circleService:   circles,
		host:            cfg,
		logger:          logger,
	}
}

func (g *grantService) CreateDriveGrants(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, requests []models.DriveGrantRequest) ([]models.DriveGrant, error) {
	var grants []models.DriveGrant

	for _, req := range requests {
		drive, err := g.driveRepository.GetByTarget(ctx, req.PermissionedDrive.Drive)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDriveGrant, req.PermissionedDrive.Drive, err)
		}

		grant := models.DriveGrant{
			PermissionedDrive: req.PermissionedDrive,
			DriveID:           drive.ID,
		}

		// Grants derived without the master key (anonymous-read mirrors)
		// carry no key material.
		if !masterKey.IsEmpty() && len(drive.MasterKeyEncryptedStorageKey) > 0 {
			err := crypto.WithUnwrappedKey(drive.MasterKeyEncryptedStorageKey, masterKey, func(storageKey crypto.SensitiveBytes) error {
				wrapped, wrapErr := crypto.WrapKey(storageKey, keyStoreKey)
				if wrapErr != nil {
					return wrapErr
				}
				grant.KeyStoreKeyEncryptedStorageKey = wrapped
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("re-encrypting storage key for drive %s: %w", drive.ID, err)
			}
		}

		grants = append(grants, grant)
	}

	return grants, nil
}

func (g *grantService) CreateCircleGrant(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, def models.CircleDefinition) (models.CircleGrant, error) {
	driveGrants, err := g.CreateDriveGrants(ctx, masterKey, keyStoreKey, def.DriveGrants)
	if err != nil {
		return models.CircleGrant{}, err
	}

	return models.CircleGrant{
		CircleID:                        def.ID,
		PermissionSet:                   def.Permissions,
		KeyStoreKeyEncryptedDriveGrants: driveGrants,
	}, nil
}

func (g *grantService) CreateAppCircleGrant(ctx context.Context, masterKey, keyStoreKey crypto.SensitiveBytes, app models.AppRegistration, circleID uuid.UUID) (models.AppCircleGrant, error) {
	driveGrants, err := g.CreateDriveGrants(ctx, masterKey, keyStoreKey, app.CircleMemberGrant.Drives)
	if err != nil {
		return models.AppCircleGrant{}, err
	}

	return models.AppCircleGrant{
		AppID:                           app.AppID,
		CircleID:                        circleID,
		PermissionSet:                   app.CircleMemberGrant.PermissionSet,
		KeyStoreKeyEncryptedDriveGrants: driveGrants,
	}, nil
}

func (g *grantService) CreateAccessRegistration(ctx context.Context, keyStoreKey, sharedSecret crypto.SensitiveBytes) (models.AccessRegistration, models.ClientAccessToken, error) {
	tokenKey, err := crypto.GenerateKey(tokenHalfKeyLen)
	if err != nil {
		return models.AccessRegistration{}, models.ClientAccessToken{}, err
	}
	defer tokenKey.Wipe()

	serverHalf, err := crypto.GenerateKey(tokenHalfKeyLen)
	if err != nil {
		return models.AccessRegistration{}, models.ClientAccessToken{}, err
	}

	// remoteHalf XOR serverHalf == tokenKey.
	remoteHalf, err := crypto.CombineHalfKeys(tokenKey, serverHalf)
	if err != nil {
		return models.AccessRegistration{}, models.ClientAccessToken{}, err
	}

	encryptedKeyStoreKey, err := crypto.WrapKey(keyStoreKey, tokenKey)
	if err != nil {
		return models.AccessRegistration{}, models.ClientAccessToken{}, err
	}
	encryptedSharedSecret, err := crypto.WrapKey(sharedSecret, tokenKey)
	if err != nil {
		return models.AccessRegistration{}, models.ClientAccessToken{}, err
	}

	registration := models.AccessRegistration{
		ID:                         uuid.New(),
		Created:                    time.Now().UnixMilli(),
		ServerHalfKey:              serverHalf,
		TokenKeyHash:               crypto.HashKey(tokenKey),
		TokenEncryptedKeyStoreKey:  encryptedKeyStoreKey,
		TokenEncryptedSharedSecret: encryptedSharedSecret,
	}

	token := models.ClientAccessToken{
		ID:                 registration.ID,
		AccessTokenHalfKey: remoteHalf,
		SharedSecret:       sharedSecret.Clone(),
	}

	return registration, token, nil
}

func (g *grantService) CreatePermissionContext(ctx context.Context, icr models.IdentityConnectionRegistration, token models.ClientAuthToken, applyAppGrants bool) (*access.PermissionContext, []uuid.UUID, error) {
	log := logger.FromContext(ctx)

	if !icr.IsConnected() || !icr.AccessGrant.IsValid() {
		return nil, nil, fmt.Errorf("%w: %s has no valid connection grant", access.ErrSecurity, icr.Identity)
	}

	registration := icr.AccessGrant.AccessRegistration
	if registration.ID != token.ID {
		return nil, nil, fmt.Errorf("%w: token id mismatch", access.ErrSecurity)
	}

	tokenKey, err := crypto.CombineHalfKeys(registration.ServerHalfKey, token.AccessTokenHalfKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", access.ErrSecurity, err)
	}
	defer tokenKey.Wipe()

	if !crypto.VerifyKeyHash(tokenKey, registration.TokenKeyHash) {
		return nil, nil, fmt.Errorf("%w: token key verification failed", access.ErrSecurity)
	}

	keyStoreKey, err := crypto.UnwrapKey(registration.TokenEncryptedKeyStoreKey, tokenKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", access.ErrSecurity, err)
	}
	defer keyStoreKey.Wipe()

	sharedSecret, err := crypto.UnwrapKey(registration.TokenEncryptedSharedSecret, tokenKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", access.ErrSecurity, err)
	}

	groups := make(map[string]access.PermissionGroup)
	var enabledCircles []uuid.UUID
	counted := make(map[uuid.UUID]bool)

	for key, circleGrant := range icr.AccessGrant.CircleGrants {
		enabled, err := g.circleService.IsEnabled(ctx, circleGrant.CircleID)
		if err != nil {
			log.Warn().
				Str("func", "service.grantService.CreatePermissionContext").
				Str("circle_id", circleGrant.CircleID.String()).
				Msg("circle lookup failed; grant skipped")
			continue
		}
		if !enabled {
			continue
		}

		groups["circle:"+key] = access.NewPermissionGroup(
			circleGrant.PermissionSet,
			circleGrant.KeyStoreKeyEncryptedDriveGrants,
			keyStoreKey.Clone(),
			icr.AccessGrant.KeyStoreKeyEncryptedIcrKey,
		)

		if !counted[circleGrant.CircleID] {
			counted[circleGrant.CircleID] = true
			enabledCircles = append(enabledCircles, circleGrant.CircleID)
		}
	}

	if applyAppGrants {
		for appKey, byCircle := range icr.AccessGrant.AppGrants {
			for circleKey, appGrant := range byCircle {
				enabled, err := g.circleService.IsEnabled(ctx, appGrant.CircleID)
				if err != nil || !enabled {
					continue
				}

				groups["app:"+appKey+":"+circleKey] = access.NewPermissionGroup(
					appGrant.PermissionSet,
					appGrant.KeyStoreKeyEncryptedDriveGrants,
					keyStoreKey.Clone(),
					nil,
				)

				if !counted[appGrant.CircleID] {
					counted[appGrant.CircleID] = true
					enabledCircles = append(enabledCircles, appGrant.CircleID)
				}
			}
		}
	}

	if feedGroup, ok := g.feedWriteGroup(ctx); ok {
		groups["feed"] = feedGroup
	}

	if tenantGroup, ok := g.tenantOptInGroup(); ok {
		groups["tenant"] = tenantGroup
	}

	return access.NewPermissionContext(groups, sharedSecret, false, g.logger), enabledCircles, nil
}

func (g *grantService) CreateAnonymousContext(ctx context.Context) (*access.PermissionContext, error) {
	drives, err := g.driveRepository.GetAnonymousReadDrives(ctx)
	if err != nil {
		return nil, err
	}

	var driveGrants []models.DriveGrant
	for _, drive := range drives {
		driveGrants = append(driveGrants, models.DriveGrant{
			PermissionedDrive: models.PermissionedDrive{
				Drive:      drive.TargetDrive,
				Permission: models.DrivePermissionRead,
			},
			DriveID: drive.ID,
		})
	}

	groups := make(map[string]access.PermissionGroup)
	if len(driveGrants) > 0 {
		groups["anonymous"] = access.NewPermissionGroup(models.PermissionSet{}, driveGrants, nil, nil)
	}
	if tenantGroup, ok := g.tenantOptInGroup(); ok {
		groups["tenant"] = tenantGroup
	}

	return access.NewPermissionContext(groups, nil, false, g.logger), nil
}

// feedWriteGroup builds the synthetic zero-permission write-only grant to
// the shared feed drive that every connected context carries.
func (g *grantService) feedWriteGroup(ctx context.Context) (access.PermissionGroup, bool) {
	drive, err := g.driveRepository.GetByTarget(ctx, models.FeedDrive)
	if err != nil {
		g.logger.Debug().
			Str("func", "service.grantService.feedWriteGroup").
			Msg("feed drive not provisioned; skipping feed grant")
		return access.PermissionGroup{}, false
	}

	grant := models.DriveGrant{
		PermissionedDrive: models.PermissionedDrive{
			Drive:      models.FeedDrive,
			Permission: models.DrivePermissionWrite,
		},
		DriveID: drive.ID,
	}
	return access.NewPermissionGroup(models.PermissionSet{}, []models.DriveGrant{grant}, nil, nil), true
}

func (g *grantService) tenantOptInGroup() (access.PermissionGroup, bool) {
	var keys []int
	if g.host.ConnectedCanViewConnections {
		keys = append(keys, models.PermissionReadConnections)
	}
	if g.host.ConnectedCanViewWhoIFollow {
		keys = append(keys, models.PermissionReadWhoIFollow)
	}
	if len(keys) == 0 {
		return access.PermissionGroup{}, false
	}
	return access.NewPermissionGroup(models.NewPermissionSet(keys...), nil, nil, nil), true
}
