// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package xdg

import (
	"testing"
)

func TestConfigDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := ConfigDir(), "/custom/config/keyward"; got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigDir_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/testuser")
	if got, want := ConfigDir(), "/home/testuser/.config/keyward"; got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg")
	if got, want := ConfigFile(), "/etc/xdg/keyward/config.yaml"; got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}
	if got, want := EnvFile(), "/etc/xdg/keyward/keyward.env"; got != want {
		t.Errorf("EnvFile() = %q, want %q", got, want)
	}
}
