// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package config loads service configuration from a YAML file, command-line
// flags and the environment. Precedence, lowest to highest: defaults, file,
// flags, environment. Secrets (signing keys, database URL) are environment
// only so they never land in a config file by accident.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/gatewarden/gatewarden/internal/xdg"
)

// Environment variables holding secrets and connection parameters.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvSigningSecret = "GATEWARDEN_SIGNING_SECRET"
	EnvSecondaryKeys = "GATEWARDEN_VERIFICATION_KEYS"
)

// Defaults.
const (
	DefaultListenAddr   = "127.0.0.1:8420"
	DefaultMetricsAddr  = "127.0.0.1:9420"
	DefaultLogFormat    = "json"
	DefaultTokenTTL     = 2 * time.Hour
	DefaultStoreTimeout = 5 * time.Second
)

// Config is the full configuration surface of the service.
type Config struct {
	ListenAddr  string
	MetricsAddr string
	LogFormat   string

	DatabaseURL  string
	StoreTimeout time.Duration

	TokenTTL      time.Duration
	SigningSecret []byte
	// SecondaryKeys are accepted during token verification only, for key
	// rotation.
	SecondaryKeys [][]byte

	HashTime    uint32
	HashMemory  uint32
	HashThreads uint8
}

// Validate checks that the configuration is usable for serving.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen address is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token TTL must be positive")
	}
	if len(c.SigningSecret) == 0 {
		return oops.Code("CONFIG_INVALID").Errorf("%s environment variable is required", EnvSigningSecret)
	}
	return nil
}

// Load assembles configuration from the optional YAML file at path, the
// given flag set, and the environment. An empty path falls back to the XDG
// config location when a file exists there.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = xdg.DefaultConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := &Config{
		ListenAddr:   stringOr(k, "listen-addr", DefaultListenAddr),
		MetricsAddr:  stringOr(k, "metrics-addr", DefaultMetricsAddr),
		LogFormat:    stringOr(k, "log-format", DefaultLogFormat),
		DatabaseURL:  os.Getenv(EnvDatabaseURL),
		StoreTimeout: durationOr(k, "store-timeout", DefaultStoreTimeout),
		TokenTTL:     durationOr(k, "token-ttl", DefaultTokenTTL),
		HashTime:     uint32(k.Int("hash-time")),
		HashMemory:   uint32(k.Int("hash-memory")),
		HashThreads:  uint8(k.Int("hash-threads")),
	}

	if secret := os.Getenv(EnvSigningSecret); secret != "" {
		cfg.SigningSecret = []byte(secret)
	}
	if keys := os.Getenv(EnvSecondaryKeys); keys != "" {
		for _, key := range strings.Split(keys, ",") {
			if key = strings.TrimSpace(key); key != "" {
				cfg.SecondaryKeys = append(cfg.SecondaryKeys, []byte(key))
			}
		}
	}

	return cfg, nil
}

func stringOr(k *koanf.Koanf, key, fallback string) string {
	if v := k.String(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(k *koanf.Koanf, key string, fallback time.Duration) time.Duration {
	if v := k.Duration(key); v > 0 {
		return v
	}
	return fallback
}
