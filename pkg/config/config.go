package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umuterturk/mcp-proto/pkg/observability"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all application configuration
type Config struct {
	// Index configuration
	Index IndexConfig `yaml:"index"`

	// Watch configuration
	Watch WatchConfig `yaml:"watch"`

	// Admin server configuration
	Admin AdminConfig `yaml:"admin"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// IndexConfig holds indexing configuration
type IndexConfig struct {
	// Root directory scanned for .proto files
	ProtoRoot string `yaml:"proto_root"`

	// Resolution cache sizing
	CacheEntries int      `yaml:"cache_entries"`
	CacheTTL     Duration `yaml:"cache_ttl"`
}

// WatchConfig holds filesystem watch configuration
type WatchConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Debounce Duration `yaml:"debounce"`

	// Cron schedule for periodic full rescans; empty disables them
	RescanSchedule string `yaml:"rescan_schedule"`
}

// AdminConfig holds the HTTP admin server configuration (health probes,
// metrics, and read-only query endpoints)
type AdminConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Host         string   `yaml:"host"`
	Port         string   `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging. LogLevelName is the YAML-facing value; LogLevel is
	// derived from it after loading.
	LogLevel     observability.LogLevel `yaml:"-"`
	LogLevelName string                 `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Load builds the configuration: defaults, then the YAML file at path if
// one is given, then environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if cfg.Observability.LogLevelName != "" {
			cfg.Observability.LogLevel = observability.ParseLogLevel(cfg.Observability.LogLevelName)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			ProtoRoot:    ".",
			CacheEntries: 512,
			CacheTTL:     Duration(5 * time.Minute),
		},
		Watch: WatchConfig{
			Enabled:        false,
			Debounce:       Duration(250 * time.Millisecond),
			RescanSchedule: "",
		},
		Admin: AdminConfig{
			Enabled:      false,
			Host:         "0.0.0.0",
			Port:         "9090",
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(15 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "mcp-proto",
			OTelServiceVersion: "2.0.0",
			OTelInsecure:       true,
		},
	}
}

func (c *Config) applyEnv() {
	if root := getEnv("MCPPROTO_PROTO_ROOT", ""); root != "" {
		c.Index.ProtoRoot = root
	}
	if entries := getEnvInt("MCPPROTO_CACHE_ENTRIES", 0); entries > 0 {
		c.Index.CacheEntries = entries
	}
	if ttl := getEnvDuration("MCPPROTO_CACHE_TTL", 0); ttl > 0 {
		c.Index.CacheTTL = Duration(ttl)
	}

	if v := os.Getenv("MCPPROTO_WATCH_ENABLED"); v != "" {
		c.Watch.Enabled = getEnvBool("MCPPROTO_WATCH_ENABLED", false)
	}
	if debounce := getEnvDuration("MCPPROTO_WATCH_DEBOUNCE", 0); debounce > 0 {
		c.Watch.Debounce = Duration(debounce)
	}
	if schedule := getEnv("MCPPROTO_RESCAN_SCHEDULE", ""); schedule != "" {
		c.Watch.RescanSchedule = schedule
	}

	if v := os.Getenv("MCPPROTO_ADMIN_ENABLED"); v != "" {
		c.Admin.Enabled = getEnvBool("MCPPROTO_ADMIN_ENABLED", false)
	}
	if host := getEnv("MCPPROTO_ADMIN_HOST", ""); host != "" {
		c.Admin.Host = host
	}
	if port := getEnv("MCPPROTO_ADMIN_PORT", ""); port != "" {
		c.Admin.Port = port
	}
	if timeout := getEnvDuration("MCPPROTO_READ_TIMEOUT", 0); timeout > 0 {
		c.Admin.ReadTimeout = Duration(timeout)
	}
	if timeout := getEnvDuration("MCPPROTO_WRITE_TIMEOUT", 0); timeout > 0 {
		c.Admin.WriteTimeout = Duration(timeout)
	}
	if timeout := getEnvDuration("MCPPROTO_IDLE_TIMEOUT", 0); timeout > 0 {
		c.Admin.IdleTimeout = Duration(timeout)
	}

	if level := getEnv("MCPPROTO_LOG_LEVEL", ""); level != "" {
		c.Observability.LogLevel = observability.ParseLogLevel(level)
	}
	if v := os.Getenv("MCPPROTO_METRICS_ENABLED"); v != "" {
		c.Observability.MetricsEnabled = getEnvBool("MCPPROTO_METRICS_ENABLED", true)
	}
	if v := os.Getenv("MCPPROTO_OTEL_ENABLED"); v != "" {
		c.Observability.OTelEnabled = getEnvBool("MCPPROTO_OTEL_ENABLED", false)
	}
	if endpoint := getEnv("MCPPROTO_OTEL_ENDPOINT", ""); endpoint != "" {
		c.Observability.OTelEndpoint = endpoint
	}
	if name := getEnv("MCPPROTO_OTEL_SERVICE_NAME", ""); name != "" {
		c.Observability.OTelServiceName = name
	}
	if version := getEnv("MCPPROTO_OTEL_SERVICE_VERSION", ""); version != "" {
		c.Observability.OTelServiceVersion = version
	}
	if v := os.Getenv("MCPPROTO_OTEL_INSECURE"); v != "" {
		c.Observability.OTelInsecure = getEnvBool("MCPPROTO_OTEL_INSECURE", true)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Index.ProtoRoot == "" {
		return fmt.Errorf("proto root is required")
	}
	if c.Index.CacheEntries <= 0 {
		return fmt.Errorf("cache entries must be positive")
	}
	if c.Index.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	if c.Watch.Enabled && c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch debounce must be positive")
	}

	if c.Admin.Enabled {
		if c.Admin.Port == "" {
			return fmt.Errorf("admin port is required when the admin server is enabled")
		}
		if _, err := strconv.Atoi(c.Admin.Port); err != nil {
			return fmt.Errorf("invalid admin port: %s", c.Admin.Port)
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
