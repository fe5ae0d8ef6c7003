// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/hex"
	"time"
)

// Defaults applied after merging when the operator leaves tuning knobs
// unset. Identity, DSN and the sealing key have no defaults and are
// required.
const (
	defaultOutboxTickInterval = 5 * time.Second
	defaultOutboxBatchSize    = 25
	defaultOutboxMaxAttempts  = 10
	defaultOutboxBackoffBase  = 10 * time.Second
	defaultOutboxBackoffCap   = 10 * time.Minute
	defaultOutboxReclaimAfter = 15 * time.Minute
	defaultPeerTimeout        = 30 * time.Second
	defaultPeerMaxAttempts    = 3
	defaultPeerRetryDelay     = 2 * time.Second

	sealingKeyLen = 32
)

func (cfg *StructuredConfig) applyDefaults() {
	if cfg.Outbox.TickInterval == 0 {
		cfg.Outbox.TickInterval = defaultOutboxTickInterval
	}
	if cfg.Outbox.BatchSize == 0 {
		cfg.Outbox.BatchSize = defaultOutboxBatchSize
	}
	if cfg.Outbox.MaxAttempts == 0 {
		cfg.Outbox.MaxAttempts = defaultOutboxMaxAttempts
	}
	if cfg.Outbox.BackoffBase == 0 {
		cfg.Outbox.BackoffBase = defaultOutboxBackoffBase
	}
	if cfg.Outbox.BackoffCap == 0 {
		cfg.Outbox.BackoffCap = defaultOutboxBackoffCap
	}
	if cfg.Outbox.ReclaimAfter == 0 {
		cfg.Outbox.ReclaimAfter = defaultOutboxReclaimAfter
	}
	if cfg.Peer.RequestTimeout == 0 {
		cfg.Peer.RequestTimeout = defaultPeerTimeout
	}
	if cfg.Peer.OperationMaxAttempts == 0 {
		cfg.Peer.OperationMaxAttempts = defaultPeerMaxAttempts
	}
	if cfg.Peer.OperationRetryDelay == 0 {
		cfg.Peer.OperationRetryDelay = defaultPeerRetryDelay
	}
}

// validate checks that the final merged [StructuredConfig] satisfies all
// host invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Host.Identity == "" {
		return ErrInvalidHostConfigs
	}

	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	key, err := hex.DecodeString(cfg.Host.SealingKey)
	if err != nil || len(key) != sealingKeyLen {
		return ErrInvalidSealingKey
	}

	if cfg.Outbox.BackoffBase > cfg.Outbox.BackoffCap {
		return ErrInvalidOutboxConfigs
	}

	return nil
}

// SealingKeyBytes decodes the hex-encoded sealing key. Only valid after
// validate has passed.
func (cfg *StructuredConfig) SealingKeyBytes() []byte {
	key, _ := hex.DecodeString(cfg.Host.SealingKey)
	return key
}
