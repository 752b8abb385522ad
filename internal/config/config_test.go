// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-auth/signet/internal/auth"
	"github.com/signet-auth/signet/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, 30, cfg.TokenTTLMinutes)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.SigningSecret, "signing secret must not have a default")
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.Dev)
	assert.Equal(t, auth.DefaultHashParams.Time, cfg.Argon2.Time)
	assert.Equal(t, auth.DefaultHashParams.Memory, cfg.Argon2.MemoryKiB)
	assert.Equal(t, auth.DefaultHashParams.Threads, cfg.Argon2.Threads)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
listen_addr: ":9999"
signing_secret: "`+testSecret+`"
token_ttl_minutes: 15
log_format: text
cors_origins:
  - "https://*.example.com"
argon2:
  time: 2
  memory_kib: 131072
  threads: 8
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, testSecret, cfg.SigningSecret)
	assert.Equal(t, 15, cfg.TokenTTLMinutes)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"https://*.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, uint32(2), cfg.Argon2.Time)
	assert.Equal(t, uint32(131072), cfg.Argon2.MemoryKiB)
	assert.Equal(t, uint8(8), cfg.Argon2.Threads)

	// Unset fields keep their defaults.
	assert.Equal(t, DefaultMetricsAddr, cfg.MetricsAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfigFile(t, `listne_addr: ":9999"`)

	_, err := Load(path, nil)
	require.Error(t, err, "typoed keys should fail schema validation, not be dropped")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SIGNET_SIGNING_SECRET", testSecret)
	t.Setenv("SIGNET_DATABASE_URL", "postgres://localhost:5432/signet")
	t.Setenv("SIGNET_LOG_FORMAT", "text")
	t.Setenv("SIGNET_ARGON2_TIME", "5")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.SigningSecret)
	assert.Equal(t, "postgres://localhost:5432/signet", cfg.DatabaseURL)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, uint32(5), cfg.Argon2.Time)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `listen_addr: ":9999"`)
	t.Setenv("SIGNET_LISTEN_ADDR", ":7777")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.ListenAddr)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	path := writeConfigFile(t, `listen_addr: ":9999"`)
	t.Setenv("SIGNET_LISTEN_ADDR", ":7777")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen-addr", DefaultListenAddr, "")
	flags.Bool("dev", false, "")
	require.NoError(t, flags.Parse([]string{"--listen-addr", ":5555", "--dev"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, ":5555", cfg.ListenAddr, "dashed flag names map onto underscore keys")
	assert.True(t, cfg.Dev)
}

func TestLoad_UnchangedFlagKeepsLowerLayers(t *testing.T) {
	t.Setenv("SIGNET_LISTEN_ADDR", ":7777")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen-addr", DefaultListenAddr, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.ListenAddr, "a flag left at its default must not mask the environment")
}

func TestConfig_TokenTTL(t *testing.T) {
	cfg := Config{TokenTTLMinutes: 45}
	assert.Equal(t, 45*time.Minute, cfg.TokenTTL())
}

func TestConfig_HashParams(t *testing.T) {
	cfg := Config{Argon2: Argon2Config{Time: 2, MemoryKiB: 1024, Threads: 3}}
	assert.Equal(t, auth.HashParams{Time: 2, Memory: 1024, Threads: 3}, cfg.HashParams())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.SigningSecret = testSecret
		cfg.DatabaseURL = "postgres://localhost:5432/signet"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
	})

	t.Run("dev mode without database", func(t *testing.T) {
		cfg := valid()
		cfg.DatabaseURL = ""
		cfg.Dev = true
		require.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"missing listen addr", func(c *Config) { c.ListenAddr = "" }, "listen_addr"},
		{"missing signing secret", func(c *Config) { c.SigningSecret = "" }, "signing_secret"},
		{"short signing secret", func(c *Config) { c.SigningSecret = "too-short" }, "at least"},
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, "database_url"},
		{"zero token ttl", func(c *Config) { c.TokenTTLMinutes = 0 }, "token_ttl_minutes"},
		{"negative token ttl", func(c *Config) { c.TokenTTLMinutes = -5 }, "token_ttl_minutes"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad cors glob", func(c *Config) { c.CORSOrigins = []string{"https://[invalid"} }, "cors_origins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	t.Run("invalid argon2 params", func(t *testing.T) {
		cfg := valid()
		cfg.Argon2.Time = 0
		err := cfg.Validate()
		require.Error(t, err)
	})
}
