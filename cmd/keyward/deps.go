// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package main

import (
	"context"
	"io"
	"os"

	"github.com/keyward/keyward/internal/auth"
	"github.com/keyward/keyward/internal/auth/postgres"
	"github.com/keyward/keyward/internal/config"
	"github.com/keyward/keyward/internal/store"
)

// Deps contains injectable dependencies for the CLI.
// All fields with nil values will use their default implementations.
type Deps struct {
	// OpenStore returns the user store for cfg and a function releasing it.
	// Default: a PostgreSQL store over store.Connect
	OpenStore func(ctx context.Context, cfg *config.Config) (UserStore, func(), error)

	// NewMigrator creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	NewMigrator func(databaseURL string) (Migrator, error)

	// Stdin supplies passwords when --password is not given. Default: os.Stdin
	Stdin io.Reader

	// Stdout receives command output. Default: os.Stdout
	Stdout io.Writer

	// Stderr receives error messages. Default: os.Stderr
	Stderr io.Writer

	// LogOutput receives structured logs. Default: os.Stderr
	LogOutput io.Writer
}

// UserStore is the store used by the CLI: an auth.UserStore that can also
// enumerate users.
type UserStore interface {
	auth.UserStore
	List(ctx context.Context) ([]*auth.User, error)
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (store.MigrationStatus, error)
	Close() error
}

func (d Deps) withDefaults() Deps {
	if d.OpenStore == nil {
		d.OpenStore = openPostgresStore
	}
	if d.NewMigrator == nil {
		d.NewMigrator = func(databaseURL string) (Migrator, error) {
			m, err := store.NewMigrator(databaseURL)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if d.Stdin == nil {
		d.Stdin = os.Stdin
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.LogOutput == nil {
		d.LogOutput = os.Stderr
	}
	return d
}

func openPostgresStore(ctx context.Context, cfg *config.Config) (UserStore, func(), error) {
	pool, err := store.Connect(ctx, cfg.DB.DSN(), cfg.DB.ConnectAttempts)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewUserStore(pool), pool.Close, nil
}
