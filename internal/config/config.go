// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

// Package config loads Keyward configuration from defaults, a YAML file,
// a dotenv file, KEYWARD_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"net"
	"net/url"
	"slices"
	"strconv"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyward/keyward/internal/auth"
)

// Config is the complete Keyward configuration.
type Config struct {
	DB      DatabaseConfig `koanf:"db" json:"db,omitempty" yaml:"db"`
	Log     LogConfig      `koanf:"log" json:"log,omitempty" yaml:"log"`
	Auth    AuthConfig     `koanf:"auth" json:"auth,omitempty" yaml:"auth"`
	Metrics MetricsConfig  `koanf:"metrics" json:"metrics,omitempty" yaml:"metrics"`
}

// DatabaseConfig holds the user store connection parameters.
type DatabaseConfig struct {
	Host            string `koanf:"host" json:"host,omitempty" yaml:"host" jsonschema:"description=Database host"`
	Port            int    `koanf:"port" json:"port,omitempty" yaml:"port" jsonschema:"minimum=1,maximum=65535"`
	User            string `koanf:"user" json:"user,omitempty" yaml:"user"`
	Password        string `koanf:"password" json:"password,omitempty" yaml:"password"`
	Name            string `koanf:"name" json:"name,omitempty" yaml:"name" jsonschema:"description=Database name"`
	SSLMode         string `koanf:"sslmode" json:"sslmode,omitempty" yaml:"sslmode" jsonschema:"enum=disable,enum=allow,enum=prefer,enum=require,enum=verify-ca,enum=verify-full"`
	ConnectAttempts int    `koanf:"connect_attempts" json:"connect_attempts,omitempty" yaml:"connect_attempts" jsonschema:"minimum=1"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Format string   `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text"`
	Level  string   `koanf:"level" json:"level,omitempty" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Redact []string `koanf:"redact" json:"redact,omitempty" yaml:"redact" jsonschema:"description=Glob patterns of log attribute keys whose values are redacted"`
}

// AuthConfig controls password hashing and login behavior.
type AuthConfig struct {
	Hasher              string `koanf:"hasher" json:"hasher,omitempty" yaml:"hasher" jsonschema:"enum=bcrypt,enum=argon2id"`
	BcryptCost          int    `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" yaml:"bcrypt_cost" jsonschema:"minimum=4,maximum=31"`
	EqualizeLoginTiming bool   `koanf:"equalize_login_timing" json:"equalize_login_timing,omitempty" yaml:"equalize_login_timing"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Textfile string `koanf:"textfile" json:"textfile,omitempty" yaml:"textfile" jsonschema:"description=Write Prometheus metrics to this file on exit"`
}

// DefaultRedactPatterns are the log attribute keys treated as PII.
var DefaultRedactPatterns = []string{
	"name", "email", "phone", "ssn", "password",
	"*password*", "*hash*", "session_token",
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"db.host":                    "localhost",
		"db.port":                    5432,
		"db.user":                    "root",
		"db.password":                "",
		"db.name":                    "my_db",
		"db.sslmode":                 "disable",
		"db.connect_attempts":        5,
		"log.format":                 "json",
		"log.level":                  "info",
		"log.redact":                 slices.Clone(DefaultRedactPatterns),
		"auth.hasher":                auth.HasherBcrypt,
		"auth.bcrypt_cost":           auth.DefaultBcryptCost,
		"auth.equalize_login_timing": false,
		"metrics.textfile":           "",
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DB.Host == "" {
		return invalid("db.host is required")
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		return invalid("db.port must be between 1 and 65535, got %d", c.DB.Port)
	}
	if c.DB.Name == "" {
		return invalid("db.name is required")
	}
	if c.DB.ConnectAttempts < 1 {
		return invalid("db.connect_attempts must be at least 1, got %d", c.DB.ConnectAttempts)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	switch c.Auth.Hasher {
	case auth.HasherBcrypt:
		if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
			return invalid("auth.bcrypt_cost must be between %d and %d, got %d",
				bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
		}
	case auth.HasherArgon2id:
	default:
		return invalid("auth.hasher must be 'bcrypt' or 'argon2id', got %q", c.Auth.Hasher)
	}
	return nil
}

// DSN returns the postgres:// connection URL for the database settings.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else if d.User != "" {
		u.User = url.User(d.User)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
	}
	return u.String()
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	if c.DB.Password != "" {
		c.DB.Password = "***"
	}
	c.Log.Redact = slices.Clone(c.Log.Redact)
	return c
}

func invalid(format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").Errorf(format, args...)
}
