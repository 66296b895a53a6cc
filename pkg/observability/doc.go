// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure including JSON logging, metrics
// collection, health checks, and distributed tracing integration. Because the serving
// process speaks its protocol on stdout, all logging goes to stderr.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stderr)
//	logger.WithField("root", protoRoot).Info("catalog ready")
//
// Request-scoped logging:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	observability.FromContext(ctx).WithError(err).Error("request failed")
//
// # Prometheus Metrics
//
// Initialize metrics against a registry:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.FilesIndexedTotal.WithLabelValues("success").Inc()
//	metrics.SearchDuration.Observe(0.004)
//
// Expose them on the admin surface with MetricsHandler(registry).
//
// # Health Checks
//
// Register named readiness checks:
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("catalog", func(ctx context.Context) error { ... })
//
// Liveness and Readiness are http.HandlerFunc-shaped probe endpoints.
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:        true,
//		Endpoint:       "otel-collector:4317",
//		ServiceName:    "mcp-proto",
//		ServiceVersion: version,
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/api: Admin HTTP surface serving the probe and metrics endpoints
package observability
