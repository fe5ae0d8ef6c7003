package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-identity tenant identity domain (e.g. alice.example.org)
//	-d database DSN
//	-sealing-key hex-encoded outbox credential sealing key
//	-c/-config json file path with configs
//	-outbox-tick outbox poll interval (e.g., "5s")
//	-outbox-batch outbox batch size
//	-outbox-max-attempts delivery attempt ceiling
//	-outbox-backoff-base first retry delay (e.g., "10s")
//	-outbox-backoff-cap retry delay ceiling (e.g., "10m")
//	-outbox-reclaim-after stale claim recovery age (e.g., "15m")
//	-peer-timeout peer request timeout (e.g., "30s")
//	-peer-max-attempts in-call transport retry count
//	-peer-retry-delay in-call transport retry delay
func ParseFlags() *StructuredConfig {
	var identity string
	var databaseDSN string
	var sealingKey string
	var jsonConfigPath string
	var outboxTick time.Duration
	var outboxBatch int
	var outboxMaxAttempts int
	var outboxBackoffBase time.Duration
	var outboxBackoffCap time.Duration
	var outboxReclaimAfter time.Duration
	var peerTimeout time.Duration
	var peerMaxAttempts int
	var peerRetryDelay time.Duration

	flag.StringVar(&identity, "identity", "", "Tenant identity domain")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&sealingKey, "sealing-key", "", "Hex-encoded outbox sealing key")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&outboxTick, "outbox-tick", 0, "Outbox poll interval (e.g., 5s)")
	flag.IntVar(&outboxBatch, "outbox-batch", 0, "Outbox batch size")
	flag.IntVar(&outboxMaxAttempts, "outbox-max-attempts", 0, "Delivery attempt ceiling")
	flag.DurationVar(&outboxBackoffBase, "outbox-backoff-base", 0, "First retry delay (e.g., 10s)")
	flag.DurationVar(&outboxBackoffCap, "outbox-backoff-cap", 0, "Retry delay ceiling (e.g., 10m)")
	flag.DurationVar(&outboxReclaimAfter, "outbox-reclaim-after", 0, "Stale claim recovery age (e.g., 15m)")
	flag.DurationVar(&peerTimeout, "peer-timeout", 0, "Peer request timeout (e.g., 30s)")
	flag.IntVar(&peerMaxAttempts, "peer-max-attempts", 0, "In-call transport retry count")
	flag.DurationVar(&peerRetryDelay, "peer-retry-delay", 0, "In-call transport retry delay")

	flag.Parse()

	return &StructuredConfig{
		Host: Host{
			Identity:   identity,
			SealingKey: sealingKey,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Outbox: Outbox{
			TickInterval: outboxTick,
			BatchSize:    outboxBatch,
			MaxAttempts:  outboxMaxAttempts,
			BackoffBase:  outboxBackoffBase,
			BackoffCap:   outboxBackoffCap,
			ReclaimAfter: outboxReclaimAfter,
		},
		Peer: Peer{
			RequestTimeout:       peerTimeout,
			OperationMaxAttempts: peerMaxAttempts,
			OperationRetryDelay:  peerRetryDelay,
		},
		JSONFilePath: jsonConfigPath,
	}
}
