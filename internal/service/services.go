package service

import (
	"github.com/MKhiriev/identity-host/internal/config"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/store"
)

type Services struct {
	CircleService     CircleService
	GrantService      GrantService
	ConnectionService ConnectionService
	AppService        AppService
	DriveService      DriveService
}

func NewServices(repositories *store.Repositories, cfg *config.StructuredConfig, logger *logger.Logger) *Services {
	circles := NewCircleService(repositories.CircleRepository, repositories.ConnectionRepository, repositories.DriveRepository, logger)
	grants := NewGrantService(repositories.DriveRepository, circles, cfg.Host, logger)
	connections := NewConnectionService(repositories.ConnectionRepository, repositories.AppRepository, circles, grants, logger)

	return &Services{
		CircleService:     circles,
		GrantService:      grants,
		ConnectionService: connections,
		AppService:        NewAppService(repositories.AppRepository, circles, connections, logger),
		DriveService:      NewDriveService(repositories.DriveRepository, connections, logger),
	}
}
