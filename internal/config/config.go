// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

// Package config loads and validates Signet runtime configuration from
// defaults, an optional YAML file, SIGNET_-prefixed environment variables,
// and command-line flags, in that order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/signet-auth/signet/internal/auth"
)

// Default values for optional settings.
const (
	DefaultListenAddr      = ":8080"
	DefaultMetricsAddr     = "127.0.0.1:9100"
	DefaultTokenTTLMinutes = 30
	DefaultLogFormat       = "json"

	envPrefix = "SIGNET_"
)

// Argon2Config carries the password hashing cost parameters.
type Argon2Config struct {
	Time      uint32 `koanf:"time" json:"time,omitempty"`
	MemoryKiB uint32 `koanf:"memory_kib" json:"memory_kib,omitempty"`
	Threads   uint8  `koanf:"threads" json:"threads,omitempty"`
}

// Config holds runtime settings for the Signet server.
type Config struct {
	// ListenAddr is the bind address for the public HTTP API.
	ListenAddr string `koanf:"listen_addr" json:"listen_addr,omitempty"`

	// MetricsAddr is the metrics/health HTTP address (empty = disabled).
	MetricsAddr string `koanf:"metrics_addr" json:"metrics_addr,omitempty"`

	// DatabaseURL is the PostgreSQL DSN (pgx). Ignored in dev mode.
	DatabaseURL string `koanf:"database_url" json:"database_url,omitempty"`

	// SigningSecret is the HMAC secret for signing tokens (HS256).
	// Required; must be at least 32 bytes. There is no default on purpose.
	SigningSecret string `koanf:"signing_secret" json:"signing_secret,omitempty"`

	// TokenTTLMinutes is the bearer token lifetime in minutes.
	TokenTTLMinutes int `koanf:"token_ttl_minutes" json:"token_ttl_minutes,omitempty"`

	// Argon2 tunes the password hashing cost for the deployment hardware.
	Argon2 Argon2Config `koanf:"argon2" json:"argon2,omitempty"`

	// CORSOrigins are allowed origin patterns (glob syntax, e.g.
	// "https://*.example.com"). Empty means same-origin only.
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins,omitempty"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format" json:"log_format,omitempty"`

	// Dev runs with the in-memory account store instead of Postgres.
	// Registered accounts do not survive a restart.
	Dev bool `koanf:"dev" json:"dev,omitempty"`
}

// Default returns a Config populated with development defaults. The signing
// secret deliberately has no default; Validate fails until one is provided.
func Default() Config {
	return Config{
		ListenAddr:      DefaultListenAddr,
		MetricsAddr:     DefaultMetricsAddr,
		TokenTTLMinutes: DefaultTokenTTLMinutes,
		Argon2: Argon2Config{
			Time:      auth.DefaultHashParams.Time,
			MemoryKiB: auth.DefaultHashParams.Memory,
			Threads:   auth.DefaultHashParams.Threads,
		},
		LogFormat: DefaultLogFormat,
	}
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional YAML file, SIGNET_-prefixed environment variables, and finally
// the given flag set (nil to skip flags).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := ValidateFile(path); err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	// SIGNET_DATABASE_URL -> database_url, SIGNET_ARGON2_MEMORY_KIB -> argon2.memory_kib
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if strings.HasPrefix(key, "argon2_") {
			return "argon2." + strings.TrimPrefix(key, "argon2_")
		}
		return key
	}), nil)
	if err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load environment").Wrap(err)
	}

	if flags != nil {
		// --listen-addr -> listen_addr
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}

	return &cfg, nil
}

// TokenTTL returns the configured token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// HashParams returns the configured argon2 parameters.
func (c *Config) HashParams() auth.HashParams {
	return auth.HashParams{
		Time:    c.Argon2.Time,
		Memory:  c.Argon2.MemoryKiB,
		Threads: c.Argon2.Threads,
	}
}

// Validate checks the configuration. Any error here is fatal at startup:
// the service refuses to run with a missing or weak signing secret rather
// than degrade silently.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen_addr is required")
	}
	if c.SigningSecret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("signing_secret is required")
	}
	if len(c.SigningSecret) < auth.MinSigningKeyLen {
		return oops.Code("CONFIG_INVALID").
			With("min_bytes", auth.MinSigningKeyLen).
			Errorf("signing_secret must be at least %d bytes", auth.MinSigningKeyLen)
	}
	if !c.Dev && c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required outside dev mode")
	}
	if c.TokenTTLMinutes <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token_ttl_minutes must be positive")
	}
	if err := c.HashParams().Validate(); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	for _, pattern := range c.CORSOrigins {
		if _, err := glob.Compile(pattern); err != nil {
			return oops.Code("CONFIG_INVALID").
				With("pattern", pattern).
				Errorf("cors_origins pattern does not compile: %v", err)
		}
	}
	return nil
}
