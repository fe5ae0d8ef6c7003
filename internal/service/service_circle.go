package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/models"
)

const (
	circleCacheTTL     = time.Minute
	circleCacheCleanup = 5 * time.Minute
)

type circleService struct {
	circleRepository     store.CircleRepository
	connectionRepository store.ConnectionRepository
	driveRepository      store.DriveRepository

	// cache holds definitions by circle id string. Every write deletes the
	// entry, so IsEnabled stays a live check within one TTL of truth.
	cache *cache.Cache

	logger *logger.Logger
}

func NewCircleService(circles store.CircleRepository, connections store.ConnectionRepository, drives store.DriveRepository, logger *logger.Logger) CircleService {
	return &circleService{
		circleRepository:     circles,
		connectionRepository: connections,
		driveRepository:      drives,
		cache:                cache.New(circleCacheTTL, circleCacheCleanup),
		logger:               logger,
	}
}

func (c *circleService) Create(ctx context.Context, req models.CreateCircleRequest) (models.CircleDefinition, error) {
	log := logger.FromContext(ctx)

	if req.Name == "" {
		return models.CircleDefinition{}, ErrCircleNameRequired
	}
	if req.ID == models.SystemCircleID {
		return models.CircleDefinition{}, ErrSystemCircleImmutable
	}
	if err := c.AssertValidDriveGrants(ctx, req.DriveGrants); err != nil {
		return models.CircleDefinition{}, err
	}

	def := models.CircleDefinition{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		LastUpdated: time.Now().UnixMilli(),
		DriveGrants: req.DriveGrants,
		Permissions: req.Permissions,
	}
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}

	if err := c.circleRepository.Create(ctx, def); err != nil {
		log.Err(err).Str("func", "service.circleService.Create").Str("circle_id", def.ID.String()).Msg("circle creation failed")
		return models.CircleDefinition{}, err
	}

	c.cache.Delete(def.ID.String())
	return def, nil
}

func (c *circleService) Get(ctx context.Context, circleID uuid.UUID) (models.CircleDefinition, error) {
	if cached, ok := c.cache.Get(circleID.String()); ok {
		return cached.(models.CircleDefinition), nil
	}

	def, err := c.circleRepository.Get(ctx, circleID)
	if err != nil {
		return models.CircleDefinition{}, err
	}

	c.cache.SetDefault(circleID.String(), def)
	return def, nil
}

func (c *circleService) GetAll(ctx context.Context) ([]models.CircleDefinition, error) {
	return c.circleRepository.GetAll(ctx)
}

func (c *circleService) Update(ctx context.Context, def models.CircleDefinition) error {
	log := logger.FromContext(ctx)

	if def.Name == "" {
		return ErrCircleNameRequired
	}
	if err := c.AssertValidDriveGrants(ctx, def.DriveGrants); err != nil {
		return err
	}

	def.LastUpdated = time.Now().UnixMilli()
	if err := c.circleRepository.Update(ctx, def); err != nil {
		log.Err(err).Str("func", "service.circleService.Update").Str("circle_id", def.ID.String()).Msg("circle update failed")
		return err
	}

	c.cache.Delete(def.ID.String())
	return nil
}

func (c *circleService) Delete(ctx context.Context, circleID uuid.UUID) error {
	if circleID == models.SystemCircleID {
		return ErrSystemCircleImmutable
	}

	members, err := c.connectionRepository.GetCircleMembers(ctx, circleID)
	if err != nil {
		return err
	}
	if len(members) > 0 {
		return fmt.Errorf("%w: %d members remain", ErrCannotDeleteCircleWithMembers, len(members))
	}

	if err := c.circleRepository.Delete(ctx, circleID); err != nil {
		return err
	}

	c.cache.Delete(circleID.String())
	return nil
}

func (c *circleService) Disable(ctx context.Context, circleID uuid.UUID) error {
	return c.setDisabled(ctx, circleID, true)
}

func (c *circleService) Enable(ctx context.Context, circleID uuid.UUID) error {
	return c.setDisabled(ctx, circleID, false)
}

func (c *circleService) setDisabled(ctx context.Context, circleID uuid.UUID, disabled bool) error {
	if circleID == models.SystemCircleID {
		return ErrSystemCircleImmutable
	}

	def, err := c.circleRepository.Get(ctx, circleID)
	if err != nil {
		return err
	}
	if def.Disabled == disabled {
		return nil
	}

	def.Disabled = disabled
	def.LastUpdated = time.Now().UnixMilli()
	if err := c.circleRepository.Update(ctx, def); err != nil {
		return err
	}

	c.cache.Delete(circleID.String())
	return nil
}

func (c *circleService) IsEnabled(ctx context.Context, circleID uuid.UUID) (bool, error) {
	def, err := c.Get(ctx, circleID)
	if err != nil {
		return false, err
	}
	return !def.Disabled, nil
}

func (c *circleService) EnsureSystemCircle(ctx context.Context) error {
	log := logger.FromContext(ctx)

	_, err := c.circleRepository.Get(ctx, models.SystemCircleID)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	grants, err := c.anonymousDriveGrants(ctx)
	if err != nil {
		return err
	}

	def := models.CircleDefinition{
		ID:          models.SystemCircleID,
		Name:        "System Circle",
		Description: "All connected identities",
		LastUpdated: time.Now().UnixMilli(),
		DriveGrants: grants,
	}

	if err := c.circleRepository.Create(ctx, def); err != nil {
		log.Err(err).Str("func", "service.circleService.EnsureSystemCircle").Msg("system circle creation failed")
		return err
	}

	c.cache.Delete(def.ID.String())
	return nil
}

func (c *circleService) SyncSystemCircleDrives(ctx context.Context) (models.CircleDefinition, error) {
	if err := c.EnsureSystemCircle(ctx); err != nil {
		return models.CircleDefinition{}, err
	}

	def, err := c.circleRepository.Get(ctx, models.SystemCircleID)
	if err != nil {
		return models.CircleDefinition{}, err
	}

	grants, err := c.anonymousDriveGrants(ctx)
	if err != nil {
		return models.CircleDefinition{}, err
	}

	def.DriveGrants = grants
	def.LastUpdated = time.Now().UnixMilli()
	if err := c.circleRepository.Update(ctx, def); err != nil {
		return models.CircleDefinition{}, err
	}

	c.cache.Delete(def.ID.String())
	return def, nil
}

func (c *circleService) AssertValidDriveGrants(ctx context.Context, grants []models.DriveGrantRequest) error {
	for _, grant := range grants {
		target := grant.PermissionedDrive.Drive
		if !target.IsValid() {
			return fmt.Errorf("%w: target %s", ErrInvalidDriveGrant, target)
		}
		if grant.PermissionedDrive.Permission == 0 {
			return fmt.Errorf("%w: no permission requested on %s", ErrInvalidDriveGrant, target)
		}
		if _, err := c.driveRepository.GetByTarget(ctx, target); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidDriveGrant, target, err)
		}
	}
	return nil
}

// anonymousDriveGrants builds read-only grant requests for every drive that
// allows anonymous reads.
func (c *circleService) anonymousDriveGrants(ctx context.Context) ([]models.DriveGrantRequest, error) {
	drives, err := c.driveRepository.GetAnonymousReadDrives(ctx)
	if err != nil {
		return nil, err
	}

	var grants []models.DriveGrantRequest
	for _, drive := range drives {
		grants = append(grants, models.DriveGrantRequest{
			PermissionedDrive: models.PermissionedDrive{
				Drive:      drive.TargetDrive,
				Permission: models.DrivePermissionRead,
			},
		})
	}
	return grants, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrCircleNotFound) ||
		errors.Is(err, store.ErrConnectionNotFound) ||
		errors.Is(err, store.ErrDriveNotFound) ||
		errors.Is(err, store.ErrAppNotFound)
}
