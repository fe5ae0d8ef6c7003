package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MKhiriev/identity-host/internal/crypto"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/models"
)

const storageKeyLen = 32

type driveService struct {
	driveRepository store.DriveRepository

	connectionService ConnectionService

	logger *logger.Logger
}

func NewDriveService(drives store.DriveRepository, connections ConnectionService, logger *logger.Logger) DriveService {
	return &driveService{
		driveRepository:   drives,
		connectionService: connections,
		logger:            logger,
	}
}

func (d *driveService) Create(ctx context.Context, masterKey crypto.SensitiveBytes, req CreateDriveRequest) (models.StorageDrive, error) {
	log := logger.FromContext(ctx)

	if !req.TargetDrive.IsValid() {
		return models.StorageDrive{}, fmt.Errorf("%w: %s", ErrInvalidDriveTarget, req.TargetDrive)
	}
	if req.Name == "" {
		return models.StorageDrive{}, ErrDriveNameRequired
	}
	if masterKey.IsEmpty() {
		return models.StorageDrive{}, ErrMissingMasterKey
	}

	storageKey, err := crypto.GenerateKey(storageKeyLen)
	if err != nil {
		return models.StorageDrive{}, err
	}
	defer storageKey.Wipe()

	wrapped, err := crypto.WrapKey(storageKey, masterKey)
	if err != nil {
		return models.StorageDrive{}, err
	}

	drive := models.StorageDrive{
		ID:                           uuid.New(),
		TargetDrive:                  req.TargetDrive,
		Name:                         req.Name,
		AllowAnonymousReads:          req.AllowAnonymousReads,
		MasterKeyEncryptedStorageKey: wrapped,
		Created:                      time.Now().UnixMilli(),
	}

	if err := d.driveRepository.Upsert(ctx, drive); err != nil {
		log.Err(err).Str("func", "service.driveService.Create").Str("drive_id", drive.ID.String()).Msg("drive creation failed")
		return models.StorageDrive{}, err
	}

	if drive.AllowAnonymousReads {
		if err := d.connectionService.HandleDriveUpdated(ctx, masterKey); err != nil {
			return models.StorageDrive{}, err
		}
	}

	return drive, nil
}

func (d *driveService) Get(ctx context.Context, driveID uuid.UUID) (models.StorageDrive, error) {
	return d.driveRepository.Get(ctx, driveID)
}

func (d *driveService) GetByTarget(ctx context.Context, target models.TargetDrive) (models.StorageDrive, error) {
	return d.driveRepository.GetByTarget(ctx, target)
}

func (d *driveService) GetAll(ctx context.Context) ([]models.StorageDrive, error) {
	return d.driveRepository.GetAll(ctx)
}

func (d *driveService) SetAllowAnonymousReads(ctx context.Context, masterKey crypto.SensitiveBytes, driveID uuid.UUID, allow bool) error {
	drive, err := d.driveRepository.Get(ctx, driveID)
	if err != nil {
		return err
	}
	if drive.AllowAnonymousReads == allow {
		return nil
	}

	drive.AllowAnonymousReads = allow
	if err := d.driveRepository.Upsert(ctx, drive); err != nil {
		return err
	}

	// The anonymous-read mirror in the system circle changed; re-sync it
	// and every connected member.
	return d.connectionService.HandleDriveUpdated(ctx, masterKey)
}
