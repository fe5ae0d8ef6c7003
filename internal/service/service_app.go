package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/models"
)

type appService struct {
	appRepository store.AppRepository

	circleService     CircleService
	connectionService ConnectionService

	logger *logger.Logger
}

func NewAppService(apps store.AppRepository, circles CircleService, connections ConnectionService, logger *logger.Logger) AppService {
	return &appService{
		appRepository:     apps,
		circleService:     circles,
		connectionService: connections,
		logger:            logger,
	}
}

func (a *appService) Register(ctx context.Context, masterKey crypto.SensitiveBytes, app models.AppRegistration) (models.AppRegistration, error) {
	log := logger.FromContext(ctx)

	if err := a.validate(ctx, app); err != nil {
		return models.AppRegistration{}, err
	}

	if app.AppID == uuid.Nil {
		app.AppID = uuid.New()
	}
	app.Created = time.Now().UnixMilli()

	if err := a.appRepository.Upsert(ctx, app); err != nil {
		log.Err(err).Str("func", "service.appService.Register").Str("app_id", app.AppID.String()).Msg("app registration failed")
		return models.AppRegistration{}, err
	}

	if err := a.connectionService.ReconcileAuthorizedCircles(ctx, masterKey, app); err != nil {
		return models.AppRegistration{}, err
	}

	return app, nil
}

func (a *appService) UpdateAuthorizedCircles(ctx context.Context, masterKey crypto.SensitiveBytes, appID uuid.UUID, circleIDs []uuid.UUID) error {
	app, err := a.appRepository.Get(ctx, appID)
	if err != nil {
		return err
	}

	for _, circleID := range circleIDs {
		if _, err := a.circleService.Get(ctx, circleID); err != nil {
			return err
		}
	}

	app.AuthorizedCircles = circleIDs
	if err := a.appRepository.Upsert(ctx, app); err != nil {
		return err
	}

	return a.connectionService.ReconcileAuthorizedCircles(ctx, masterKey, app)
}

func (a *appService) Get(ctx context.Context, appID uuid.UUID) (models.AppRegistration, error) {
	return a.appRepository.Get(ctx, appID)
}

func (a *appService) GetAll(ctx context.Context) ([]models.AppRegistration, error) {
	return a.appRepository.GetAll(ctx)
}

func (a *appService) Delete(ctx context.Context, masterKey crypto.SensitiveBytes, appID uuid.UUID) error {
	app, err := a.appRepository.Get(ctx, appID)
	if err != nil {
		return err
	}

	// Empty the authorized list first so reconciliation strips standing
	// grants from every member.
	app.AuthorizedCircles = nil
	if err := a.connectionService.ReconcileAuthorizedCircles(ctx, masterKey, app); err != nil {
		return err
	}

	return a.appRepository.Delete(ctx, appID)
}

func (a *appService) validate(ctx context.Context, app models.AppRegistration) error {
	if err := a.circleService.AssertValidDriveGrants(ctx, app.CircleMemberGrant.Drives); err != nil {
		return err
	}
	for _, circleID := range app.AuthorizedCircles {
		if _, err := a.circleService.Get(ctx, circleID); err != nil {
			return err
		}
	}
	return nil
}
