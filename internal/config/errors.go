package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidHostConfigs indicates missing tenant settings
	// (for example, an empty identity domain).
	ErrInvalidHostConfigs = errors.New("invalid host configuration")
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, an empty DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSealingKey indicates the outbox sealing key is not a
	// hex-encoded 32-byte value.
	ErrInvalidSealingKey = errors.New("invalid sealing key")
	// ErrInvalidOutboxConfigs indicates inconsistent outbox tuning
	// (for example, a backoff base above the cap).
	ErrInvalidOutboxConfigs = errors.New("invalid outbox configuration")
)
