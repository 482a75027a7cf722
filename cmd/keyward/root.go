// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/keyward/keyward/internal/auth"
	"github.com/keyward/keyward/internal/config"
	"github.com/keyward/keyward/internal/logging"
	"github.com/keyward/keyward/internal/xdg"
)

// app holds state shared by all subcommands for one invocation.
type app struct {
	deps       Deps
	configFile string
	envFile    string

	cfg    *config.Config
	logger *slog.Logger
}

func newApp(deps Deps) *app {
	return &app{deps: deps.withDefaults()}
}

// NewRootCmd creates the root command for the keyward CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp(Deps{}))
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyward",
		Short: "Keyward - user credentials and sessions",
		Long: `Keyward registers users with salted password hashes, validates
logins and issues opaque session tokens, backed by PostgreSQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	cmd.SetIn(a.deps.Stdin)
	cmd.SetOut(a.deps.Stdout)
	cmd.SetErr(a.deps.Stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/keyward/config.yaml)")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file path (default $XDG_CONFIG_HOME/keyward/keyward.env)")

	defaults := config.Defaults()
	flags.String("log-format", stringDefault(defaults, "log.format"), "log format (json or text)")
	flags.String("log-level", stringDefault(defaults, "log.level"), "log level (debug, info, warn, error)")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file on exit")
	flags.String("db-host", stringDefault(defaults, "db.host"), "database host")
	flags.Int("db-port", intDefault(defaults, "db.port"), "database port")
	flags.String("db-user", stringDefault(defaults, "db.user"), "database user")
	flags.String("db-password", "", "database password")
	flags.String("db-name", stringDefault(defaults, "db.name"), "database name")
	flags.String("db-sslmode", stringDefault(defaults, "db.sslmode"), "database sslmode")
	flags.Int("db-connect-attempts", intDefault(defaults, "db.connect_attempts"), "database connection attempts")
	flags.String("auth-hasher", stringDefault(defaults, "auth.hasher"), "password hasher (bcrypt or argon2id)")
	flags.Int("auth-bcrypt-cost", intDefault(defaults, "auth.bcrypt_cost"), "bcrypt work factor")
	flags.Bool("auth-equalize-login-timing", false, "verify against a placeholder hash for unknown emails")

	cmd.AddCommand(newRegisterCmd(a))
	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newSessionCmd(a))
	cmd.AddCommand(newWhoamiCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newUsersCmd(a))
	cmd.AddCommand(newConfigCmd(a))

	return cmd
}

// setup loads configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	file, required := a.configFile, a.configFile != ""
	if !required {
		file = xdg.ConfigFile()
	}
	envFile := a.envFile
	if envFile == "" {
		envFile = xdg.EnvFile()
	}

	cfg, err := config.Load(config.LoadOptions{
		File:         file,
		FileRequired: required,
		EnvFile:      envFile,
		Flags:        cmd.Root().PersistentFlags(),
		SkipFlags:    []string{"config", "env-file"},
	})
	if err != nil {
		return err
	}

	logger, err := logging.Setup(logging.Options{
		Service: "keyward",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Redact:  cfg.Log.Redact,
	}, a.deps.LogOutput)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

// service opens the user store and builds an auth.Service over it.
// The returned function releases the store.
func (a *app) service(ctx context.Context) (*auth.Service, UserStore, func(), error) {
	users, release, err := a.deps.OpenStore(ctx, a.cfg)
	if err != nil {
		return nil, nil, nil, oops.With("operation", "open user store").Wrap(err)
	}

	hasher, err := auth.NewHasher(a.cfg.Auth.Hasher, a.cfg.Auth.BcryptCost)
	if err != nil {
		release()
		return nil, nil, nil, err
	}

	svc, err := auth.NewService(users, hasher,
		auth.WithLogger(a.logger),
		auth.WithEqualizedLoginTiming(a.cfg.Auth.EqualizeLoginTiming))
	if err != nil {
		release()
		return nil, nil, nil, err
	}
	return svc, users, release, nil
}

// writeMetrics writes the metrics textfile if one is configured.
func (a *app) writeMetrics() error {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return nil
	}
	return auth.WriteMetricsTextfile(a.cfg.Metrics.Textfile)
}

func stringDefault(defaults map[string]any, key string) string {
	s, _ := defaults[key].(string) //nolint:errcheck // missing key yields ""
	return s
}

func intDefault(defaults map[string]any, key string) int {
	n, _ := defaults[key].(int) //nolint:errcheck // missing key yields 0
	return n
}
