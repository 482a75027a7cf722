// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by Load.
// KEYWARD_DB_HOST maps to db.host, KEYWARD_DB_CONNECT_ATTEMPTS to db.connect_attempts.
const EnvPrefix = "KEYWARD_"

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File is a YAML config file. When FileRequired is false a missing
	// file is skipped.
	File         string
	FileRequired bool

	// EnvFile is a dotenv file whose variables are exported before the
	// environment is read. Variables already set are not overridden.
	// A missing EnvFile is skipped.
	EnvFile string

	// Flags are command-line flags. Changed flags take precedence over
	// every other source. Flag names map to keys by turning the first
	// dash into a dot and the rest into underscores (db-connect-attempts
	// becomes db.connect_attempts). Flags listed in SkipFlags are ignored.
	Flags     *pflag.FlagSet
	SkipFlags []string
}

// Load builds a Config from all sources and validates it.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	for key, val := range Defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if err := loadFile(k, opts.File, opts.FileRequired); err != nil {
		return nil, err
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load env file").
				With("path", opts.EnvFile).
				Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load environment").Wrap(err)
	}

	if opts.Flags != nil {
		skip := make(map[string]bool, len(opts.SkipFlags))
		for _, name := range opts.SkipFlags {
			skip[name] = true
		}
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			if skip[f.Name] {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFile validates the YAML file against the config schema and merges it.
func loadFile(k *koanf.Koanf, path string, required bool) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "read config file").
			With("path", path).
			Wrap(err)
	}

	if err := ValidateYAML(data); err != nil {
		return oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "parse config file").
			With("path", path).
			Wrap(err)
	}
	return nil
}

// envKey maps KEYWARD_SECTION_SOME_KEY to section.some_key. List values
// are comma separated.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.Replace(key, "_", ".", 1)
	if key == "log.redact" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return key, out
	}
	return key, value
}

// flagKey maps a flag name such as db-connect-attempts to db.connect_attempts.
func flagKey(name string) string {
	key := strings.Replace(name, "-", ".", 1)
	return strings.ReplaceAll(key, "-", "_")
}
