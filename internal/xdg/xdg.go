// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

// Package xdg provides XDG Base Directory paths for Keyward.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "keyward"

// ConfigDir returns the XDG config directory for keyward.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	return dir("XDG_CONFIG_HOME", ".config")
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// EnvFile returns the default dotenv file path.
func EnvFile() string {
	return filepath.Join(ConfigDir(), "keyward.env")
}

func dir(envVar, homeRel string) string {
	base := os.Getenv(envVar)
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), homeRel)
	}
	return filepath.Join(base, appName)
}
