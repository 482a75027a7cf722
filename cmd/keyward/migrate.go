// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/keyward/keyward/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the users table schema",
		Long: `Apply, roll back and inspect the embedded database migrations.
Without a subcommand, applies all pending migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, a)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, a)
		},
	})
	cmd.AddCommand(newMigrateDownCmd(a))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(a, func(m Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("%d (dirty)\n", version)
					return nil
				}
				cmd.Printf("%d\n", version)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the recorded schema version without running migrations",
		Long: `Set the recorded schema version without running migrations.
Use this to recover from a dirty state after fixing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(a, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced version to %d\n", version)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schema version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(a, func(m Migrator) error {
				status, err := m.Status()
				if err != nil {
					return err
				}
				cmd.Print(formatStatus(status))
				return nil
			})
		},
	})

	return cmd
}

func newMigrateDownCmd(a *app) *cobra.Command {
	var all bool
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the last --steps migrations (default 1).
With --all, roll back every migration. This drops the users table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !all && steps < 1 {
				return oops.Code("INVALID_STEPS").Errorf("--steps must be at least 1, got %d", steps)
			}
			return withMigrator(a, func(m Migrator) error {
				if all {
					if err := m.Down(); err != nil {
						return err
					}
					cmd.Println("Rolled back all migrations")
					return nil
				}
				if err := m.Steps(-steps); err != nil {
					return err
				}
				cmd.Printf("Rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func runMigrateUp(cmd *cobra.Command, a *app) error {
	return withMigrator(a, func(m Migrator) error {
		if err := m.Up(); err != nil {
			return err
		}
		version, _, err := m.Version()
		if err != nil {
			return err
		}
		cmd.Printf("Schema at version %d\n", version)
		return nil
	})
}

// withMigrator opens a migrator for the configured database, runs fn and
// closes it. A close failure is reported only if fn succeeded.
func withMigrator(a *app, fn func(Migrator) error) (err error) {
	m, err := a.deps.NewMigrator(a.cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

func parseForceVersion(arg string) (int, error) {
	version, err := strconv.Atoi(arg)
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("arg", arg).Wrapf(err, "invalid version %q", arg)
	}
	if version < 0 {
		return 0, oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
	}
	return version, nil
}

func formatStatus(s store.MigrationStatus) string {
	var b strings.Builder
	if s.Version == 0 {
		b.WriteString("version: none\n")
	} else {
		fmt.Fprintf(&b, "version: %d (%s)\n", s.Version, s.Name)
	}
	fmt.Fprintf(&b, "dirty: %t\n", s.Dirty)
	if len(s.Pending) == 0 {
		b.WriteString("pending: none\n")
		return b.String()
	}
	pending := make([]string, len(s.Pending))
	for i, v := range s.Pending {
		pending[i] = strconv.FormatUint(uint64(v), 10)
	}
	fmt.Fprintf(&b, "pending: %s\n", strings.Join(pending, ", "))
	return b.String()
}
