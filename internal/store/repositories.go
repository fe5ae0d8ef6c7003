package store

import "github.com/MKhiriev/identity-host/internal/logger"

// Repositories aggregates every repository backed by one database
// connection.
type Repositories struct {
	ConnectionRepository ConnectionRepository
	CircleRepository     CircleRepository
	AppRepository        AppRepository
	DriveRepository      DriveRepository
	FileRepository       FileRepository
	OutboxRepository     OutboxRepository
	EscrowRepository     EscrowRepository
}

// NewRepositories wires all repositories to db.
func NewRepositories(db *DB, log *logger.Logger) *Repositories {
	return &Repositories{
		ConnectionRepository: NewConnectionRepository(db, log),
		CircleRepository:     NewCircleRepository(db, log),
		AppRepository:        NewAppRepository(db, log),
		DriveRepository:      NewDriveRepository(db, log),
		FileRepository:       NewFileRepository(db, log),
		OutboxRepository:     NewOutboxRepository(db, log),
		EscrowRepository:     NewEscrowRepository(db, log),
	}
}
