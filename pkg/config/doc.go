// Package config provides application configuration from environment
// variables, optionally layered over a YAML file.
//
// # Configuration Structure
//
// Index settings:
//
//	MCPPROTO_PROTO_ROOT="/path/to/protos"
//	MCPPROTO_CACHE_ENTRIES="512"
//	MCPPROTO_CACHE_TTL="5m"
//
// Watch settings:
//
//	MCPPROTO_WATCH_ENABLED="true"
//	MCPPROTO_WATCH_DEBOUNCE="250ms"
//	MCPPROTO_RESCAN_SCHEDULE="@every 10m"
//
// Admin server settings:
//
//	MCPPROTO_ADMIN_ENABLED="true"
//	MCPPROTO_ADMIN_HOST="0.0.0.0"
//	MCPPROTO_ADMIN_PORT="9090"
//	MCPPROTO_READ_TIMEOUT="15s"
//	MCPPROTO_WRITE_TIMEOUT="15s"
//
// Observability settings:
//
//	MCPPROTO_LOG_LEVEL="info"  # debug, info, warn, error
//	MCPPROTO_METRICS_ENABLED="true"
//	MCPPROTO_OTEL_ENABLED="true"
//	MCPPROTO_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Proto root: %s\n", cfg.Index.ProtoRoot)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
package config
