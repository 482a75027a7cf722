// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyward/keyward/internal/auth/memory"
	"github.com/keyward/keyward/internal/config"
	"github.com/keyward/keyward/internal/store"
)

// cli runs the command tree against an in-memory store and a fake migrator.
type cli struct {
	users    *memory.UserStore
	migrator *fakeMigrator
	dbURL    string
	openErr  error

	stdout bytes.Buffer
	stderr bytes.Buffer
	logs   bytes.Buffer
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return &cli{
		users:    memory.NewUserStore(),
		migrator: &fakeMigrator{version: 2},
	}
}

func (c *cli) run(stdin string, args ...string) int {
	c.stdout.Reset()
	c.stderr.Reset()
	c.logs.Reset()

	deps := Deps{
		OpenStore: func(_ context.Context, _ *config.Config) (UserStore, func(), error) {
			if c.openErr != nil {
				return nil, nil, c.openErr
			}
			return c.users, func() {}, nil
		},
		NewMigrator: func(databaseURL string) (Migrator, error) {
			c.dbURL = databaseURL
			return c.migrator, nil
		},
		Stdin:     strings.NewReader(stdin),
		Stdout:    &c.stdout,
		Stderr:    &c.stderr,
		LogOutput: &c.logs,
	}
	return run(context.Background(), append([]string{"--auth-bcrypt-cost", "4"}, args...), deps)
}

func TestRegisterAndLogin(t *testing.T) {
	c := newCLI(t)

	require.Equal(t, 0, c.run("", "register", "alice@example.com", "--password", "s3cret"))
	assert.Contains(t, c.stdout.String(), "registered ")
	assert.Equal(t, 1, c.users.Len())

	assert.Equal(t, 0, c.run("", "login", "alice@example.com", "--password", "s3cret"))
	assert.Equal(t, "valid\n", c.stdout.String())

	assert.Equal(t, 1, c.run("", "login", "alice@example.com", "--password", "wrong"))
	assert.Equal(t, "invalid\n", c.stdout.String())
	assert.Empty(t, c.stderr.String())

	assert.Equal(t, 1, c.run("", "login", "nobody@example.com", "--password", "s3cret"))
	assert.Equal(t, "invalid\n", c.stdout.String())
}

func TestRegister_PasswordFromStdin(t *testing.T) {
	c := newCLI(t)

	require.Equal(t, 0, c.run("from-stdin\nignored\n", "register", "bob@example.com"))
	assert.Equal(t, 0, c.run("from-stdin\r\n", "login", "bob@example.com"))
	assert.Equal(t, "valid\n", c.stdout.String())
}

func TestRegister_NoPassword(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, 1, c.run("", "register", "bob@example.com"))
	assert.Contains(t, c.stderr.String(), "no password given")
	assert.Zero(t, c.users.Len())
}

func TestRegister_Duplicate(t *testing.T) {
	c := newCLI(t)

	require.Equal(t, 0, c.run("", "register", "alice@example.com", "--password", "one"))
	assert.Equal(t, 1, c.run("", "register", "ALICE@example.com", "--password", "two"))
	assert.Contains(t, c.stderr.String(), "user already exists")
	assert.Equal(t, 1, c.users.Len())

	assert.Equal(t, 0, c.run("", "login", "alice@example.com", "--password", "one"))
}

func TestRegister_InvalidEmail(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, 1, c.run("", "register", "   ", "--password", "pw"))
	assert.Contains(t, c.stderr.String(), "Error:")
	assert.Zero(t, c.users.Len())
}

func TestSessionAndWhoami(t *testing.T) {
	c := newCLI(t)
	require.Equal(t, 0, c.run("", "register", "alice@example.com", "--password", "pw"))

	require.Equal(t, 0, c.run("", "session", "alice@example.com"))
	first := strings.TrimSpace(c.stdout.String())
	assert.Len(t, first, 36)

	require.Equal(t, 0, c.run("", "whoami", first))
	assert.Contains(t, c.stdout.String(), "alice@example.com")

	require.Equal(t, 0, c.run("", "session", "alice@example.com"))
	second := strings.TrimSpace(c.stdout.String())
	assert.NotEqual(t, first, second)

	assert.Equal(t, 1, c.run("", "whoami", first), "replaced token no longer resolves")
	assert.Equal(t, "no active session\n", c.stderr.String())
}

func TestSession_UnknownUser(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, 1, c.run("", "session", "ghost@example.com"))
	assert.Empty(t, c.stdout.String())
	assert.Equal(t, "no such user\n", c.stderr.String())
}

func TestStoreOpenFailure(t *testing.T) {
	c := newCLI(t)
	c.openErr = errors.New("connection refused")

	assert.Equal(t, 1, c.run("", "session", "alice@example.com"))
	assert.Contains(t, c.stderr.String(), "connection refused")
	assert.Contains(t, c.logs.String(), "command failed")
}

func TestUsersDump_RedactsRecords(t *testing.T) {
	c := newCLI(t)
	require.Equal(t, 0, c.run("", "register", "alice@example.com", "--password", "pw"))
	require.Equal(t, 0, c.run("", "session", "alice@example.com"))
	token := strings.TrimSpace(c.stdout.String())

	require.Equal(t, 0, c.run("", "users", "dump"))
	assert.Equal(t, "dumped 1 users\n", c.stdout.String())

	logs := c.logs.String()
	assert.Contains(t, logs, "email=***;")
	assert.Contains(t, logs, "hashed_password=***;")
	assert.Contains(t, logs, "session_token=***;")
	assert.Contains(t, logs, "id=")
	assert.NotContains(t, logs, "alice@example.com")
	assert.NotContains(t, logs, token)
}

func TestConfigShow_MasksPassword(t *testing.T) {
	c := newCLI(t)

	require.Equal(t, 0, c.run("", "--db-password", "hunter2", "--db-host", "db.internal", "config", "show"))
	out := c.stdout.String()
	assert.Contains(t, out, "host: db.internal")
	assert.Contains(t, out, "***")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigShow_FromFileAndEnv(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "keyward.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db:\n  name: from_file\n  port: 6543\n"), 0o600))
	t.Setenv("KEYWARD_DB_PORT", "7000")

	require.Equal(t, 0, c.run("", "--config", path, "config", "show"))
	out := c.stdout.String()
	assert.Contains(t, out, "name: from_file")
	assert.Contains(t, out, "port: 7000")
}

func TestConfig_MissingExplicitFile(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, 1, c.run("", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "config", "show"))
	assert.Contains(t, c.stderr.String(), "Error:")
}

func TestConfig_InvalidFlagValue(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, 1, c.run("", "--log-format", "xml", "config", "show"))
	assert.Contains(t, c.stderr.String(), "log.format")
}

func TestConfigSchema(t *testing.T) {
	c := newCLI(t)

	require.Equal(t, 0, c.run("", "config", "schema"))
	assert.Contains(t, c.stdout.String(), config.SchemaID)
}

func TestMetricsTextfile(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join(t.TempDir(), "keyward.prom")

	require.Equal(t, 0, c.run("", "--metrics-textfile", path, "register", "alice@example.com", "--password", "pw"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "keyward_auth_operations_total")
}

func TestMigrate(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     string
		wantCall string
	}{
		{"default runs up", []string{"migrate"}, "Schema at version 2\n", "up"},
		{"up", []string{"migrate", "up"}, "Schema at version 2\n", "up"},
		{"down one step", []string{"migrate", "down"}, "Rolled back 1 migration(s)\n", "steps:-1"},
		{"down steps", []string{"migrate", "down", "--steps", "2"}, "Rolled back 2 migration(s)\n", "steps:-2"},
		{"down all", []string{"migrate", "down", "--all"}, "Rolled back all migrations\n", "down"},
		{"version", []string{"migrate", "version"}, "2\n", ""},
		{"force", []string{"migrate", "force", "1"}, "Forced version to 1\n", "force:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCLI(t)

			require.Equal(t, 0, c.run("", tt.args...), c.stderr.String())
			assert.Equal(t, tt.want, c.stdout.String())
			if tt.wantCall != "" {
				assert.Equal(t, []string{tt.wantCall}, c.migrator.calls)
			}
			assert.True(t, c.migrator.closed)
			assert.Equal(t, "postgres://root@localhost:5432/my_db?sslmode=disable", c.dbURL)
		})
	}
}

func TestMigrate_VersionDirty(t *testing.T) {
	c := newCLI(t)
	c.migrator.dirty = true

	require.Equal(t, 0, c.run("", "migrate", "version"))
	assert.Equal(t, "2 (dirty)\n", c.stdout.String())
}

func TestMigrate_Status(t *testing.T) {
	c := newCLI(t)
	c.migrator.status = store.MigrationStatus{Version: 1, Name: "000001_create_users", Pending: []uint{2}}

	require.Equal(t, 0, c.run("", "migrate", "status"))
	assert.Equal(t, "version: 1 (000001_create_users)\ndirty: false\npending: 2\n", c.stdout.String())
}

func TestMigrate_ForceInvalidVersion(t *testing.T) {
	for _, arg := range []string{"abc", "-1"} {
		t.Run(arg, func(t *testing.T) {
			c := newCLI(t)

			assert.Equal(t, 1, c.run("", "migrate", "force", "--", arg))
			assert.Empty(t, c.dbURL, "migrator is not opened for a bad version")
		})
	}
}

func TestMigrate_DownInvalidSteps(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, 1, c.run("", "migrate", "down", "--steps", "0"))
	assert.Contains(t, c.stderr.String(), "--steps must be at least 1")
}

func TestMigrate_Failure(t *testing.T) {
	c := newCLI(t)
	c.migrator.err = errors.New("dirty database version 2")

	assert.Equal(t, 1, c.run("", "migrate", "up"))
	assert.Contains(t, c.stderr.String(), "dirty database version 2")
	assert.True(t, c.migrator.closed)
}

func TestMigrate_CloseFailure(t *testing.T) {
	c := newCLI(t)
	c.migrator.closeErr = errors.New("close failed")

	assert.Equal(t, 1, c.run("", "migrate", "version"))
	assert.Contains(t, c.stderr.String(), "close failed")
}

func TestVersionFlag(t *testing.T) {
	c := newCLI(t)

	require.Equal(t, 0, c.run("", "--version"))
	assert.Contains(t, c.stdout.String(), version)
}

func TestExitError(t *testing.T) {
	err := &exitError{code: 3}
	assert.Equal(t, "exit status 3", err.Error())
}
