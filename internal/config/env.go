// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv fills cfg from environment variables. Fields are matched by the
// `env` and `envPrefix` tags on [StructuredConfig] and its sections, so
// HOST_IDENTITY lands in Host.Identity and OUTBOX_BATCH_SIZE in
// Outbox.BatchSize.
func parseEnv(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}

	return nil
}
