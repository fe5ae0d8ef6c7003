// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package migrations applies the identity-host schema with goose. The SQL
// files are embedded so a deployed binary migrates itself on startup.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var schema embed.FS

var ErrMigration = errors.New("error migrating schema")

// Migrate brings the database up to the latest embedded schema version.
// Already-applied versions are skipped, so calling it on every startup is
// safe.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(schema)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	return nil
}
