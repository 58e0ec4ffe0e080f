// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/config"
)

func serveFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen-addr", config.DefaultListenAddr, "")
	flags.String("metrics-addr", config.DefaultMetricsAddr, "")
	flags.String("log-format", config.DefaultLogFormat, "")
	flags.Duration("token-ttl", config.DefaultTokenTTL, "")
	flags.Duration("store-timeout", config.DefaultStoreTimeout, "")
	flags.Int("hash-time", 0, "")
	flags.Int("hash-memory", 0, "")
	flags.Int("hash-threads", 0, "")
	return flags
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, config.DefaultMetricsAddr, cfg.MetricsAddr)
	assert.Equal(t, config.DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, config.DefaultTokenTTL, cfg.TokenTTL)
	assert.Equal(t, config.DefaultStoreTimeout, cfg.StoreTimeout)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"listen-addr: 0.0.0.0:9000\nlog-format: text\ntoken-ttl: 30m\n",
	), 0o600))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
}

func TestLoad_DiscoversXDGConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	appDir := filepath.Join(dir, "gatewarden")
	require.NoError(t, os.MkdirAll(appDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "config.yaml"),
		[]byte("log-format: text\n"), 0o600))

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen-addr: 0.0.0.0:9000\n"), 0o600))

	flags := serveFlags()
	require.NoError(t, flags.Parse([]string{"--listen-addr", "10.0.0.1:7000", "--hash-time", "3"}))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:7000", cfg.ListenAddr)
	assert.Equal(t, uint32(3), cfg.HashTime)
}

func TestLoad_SecretsFromEnvironment(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvDatabaseURL, "postgres://localhost/gatewarden")
	t.Setenv(config.EnvSigningSecret, "0123456789abcdef0123456789abcdef")
	t.Setenv(config.EnvSecondaryKeys, "old-key-aaaaaaaaaaaaaaaaaaaaaaaa, older-key-bbbbbbbbbbbbbbbbbbbbbb")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/gatewarden", cfg.DatabaseURL)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), cfg.SigningSecret)
	require.Len(t, cfg.SecondaryKeys, 2)
	assert.Equal(t, []byte("old-key-aaaaaaaaaaaaaaaaaaaaaaaa"), cfg.SecondaryKeys[0])
	assert.Equal(t, []byte("older-key-bbbbbbbbbbbbbbbbbbbbbb"), cfg.SecondaryKeys[1])
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			ListenAddr:    config.DefaultListenAddr,
			LogFormat:     "json",
			TokenTTL:      config.DefaultTokenTTL,
			SigningSecret: []byte("0123456789abcdef0123456789abcdef"),
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty listen address", func(c *config.Config) { c.ListenAddr = "" }},
		{"bad log format", func(c *config.Config) { c.LogFormat = "xml" }},
		{"zero token TTL", func(c *config.Config) { c.TokenTTL = 0 }},
		{"missing signing secret", func(c *config.Config) { c.SigningSecret = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
