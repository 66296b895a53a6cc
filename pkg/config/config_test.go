package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuterturk/mcp-proto/pkg/observability"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Index.ProtoRoot)
	assert.Equal(t, 512, cfg.Index.CacheEntries)
	assert.Equal(t, 5*time.Minute, cfg.Index.CacheTTL.Std())
	assert.False(t, cfg.Watch.Enabled)
	assert.False(t, cfg.Admin.Enabled)
	assert.Equal(t, "9090", cfg.Admin.Port)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MCPPROTO_PROTO_ROOT", "/srv/protos")
	t.Setenv("MCPPROTO_CACHE_TTL", "30s")
	t.Setenv("MCPPROTO_WATCH_ENABLED", "true")
	t.Setenv("MCPPROTO_ADMIN_ENABLED", "1")
	t.Setenv("MCPPROTO_ADMIN_PORT", "8088")
	t.Setenv("MCPPROTO_LOG_LEVEL", "debug")
	t.Setenv("MCPPROTO_METRICS_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/srv/protos", cfg.Index.ProtoRoot)
	assert.Equal(t, 30*time.Second, cfg.Index.CacheTTL.Std())
	assert.True(t, cfg.Watch.Enabled)
	assert.True(t, cfg.Admin.Enabled)
	assert.Equal(t, "8088", cfg.Admin.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
index:
  proto_root: /data/protos
  cache_entries: 64
  cache_ttl: 1m
watch:
  enabled: true
  debounce: 500ms
  rescan_schedule: "@every 10m"
admin:
  enabled: true
  port: "8081"
observability:
  log_level: warn
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/protos", cfg.Index.ProtoRoot)
	assert.Equal(t, 64, cfg.Index.CacheEntries)
	assert.Equal(t, time.Minute, cfg.Index.CacheTTL.Std())
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce.Std())
	assert.Equal(t, "@every 10m", cfg.Watch.RescanSchedule)
	assert.Equal(t, "8081", cfg.Admin.Port)
	assert.Equal(t, observability.WarnLevel, cfg.Observability.LogLevel)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  proto_root: /from/file\n"), 0o644))
	t.Setenv("MCPPROTO_PROTO_ROOT", "/from/env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Index.ProtoRoot)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty proto root",
			mutate:  func(c *Config) { c.Index.ProtoRoot = "" },
			wantErr: "proto root is required",
		},
		{
			name:    "zero cache entries",
			mutate:  func(c *Config) { c.Index.CacheEntries = 0 },
			wantErr: "cache entries must be positive",
		},
		{
			name: "watch enabled without debounce",
			mutate: func(c *Config) {
				c.Watch.Enabled = true
				c.Watch.Debounce = 0
			},
			wantErr: "watch debounce must be positive",
		},
		{
			name: "admin enabled with bad port",
			mutate: func(c *Config) {
				c.Admin.Enabled = true
				c.Admin.Port = "http"
			},
			wantErr: "invalid admin port",
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "OpenTelemetry endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("MCPPROTO_TEST_STR", "value")
	t.Setenv("MCPPROTO_TEST_BOOL", "TRUE")
	t.Setenv("MCPPROTO_TEST_INT", "42")
	t.Setenv("MCPPROTO_TEST_DUR", "90s")
	t.Setenv("MCPPROTO_TEST_BAD_INT", "nope")

	assert.Equal(t, "value", getEnv("MCPPROTO_TEST_STR", "default"))
	assert.Equal(t, "default", getEnv("MCPPROTO_TEST_UNSET", "default"))
	assert.True(t, getEnvBool("MCPPROTO_TEST_BOOL", false))
	assert.False(t, getEnvBool("MCPPROTO_TEST_UNSET", false))
	assert.Equal(t, 42, getEnvInt("MCPPROTO_TEST_INT", 7))
	assert.Equal(t, 7, getEnvInt("MCPPROTO_TEST_BAD_INT", 7))
	assert.Equal(t, 90*time.Second, getEnvDuration("MCPPROTO_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("MCPPROTO_TEST_UNSET", time.Second))
}
