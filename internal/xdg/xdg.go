// Package xdg provides XDG Base Directory paths for Gatewarden.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "gatewarden"

// ConfigDir returns the XDG config directory for gatewarden.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns the conventional config file location, or "" if
// no file exists there. Callers treat an empty result as "run on defaults".
func DefaultConfigFile() string {
	path := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
