package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/umuterturk/mcp-proto/pkg/api"
	"github.com/umuterturk/mcp-proto/pkg/catalog"
	"github.com/umuterturk/mcp-proto/pkg/config"
	"github.com/umuterturk/mcp-proto/pkg/observability"
	"github.com/umuterturk/mcp-proto/pkg/server"
	"github.com/umuterturk/mcp-proto/pkg/watch"
)

var (
	version = "2.0.0-dev"
	commit  = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	protoRoot := flag.String("root", "", "Root directory containing .proto files (overrides config)")
	watchFlag := flag.Bool("watch", false, "Watch for file changes and re-index automatically")
	adminFlag := flag.Bool("admin", false, "Serve health probes and metrics over HTTP")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("mcp-proto version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *protoRoot != "" {
		cfg.Index.ProtoRoot = *protoRoot
	}
	if *watchFlag {
		cfg.Watch.Enabled = true
	}
	if *adminFlag {
		cfg.Admin.Enabled = true
	}
	if *verbose {
		cfg.Observability.LogLevel = observability.DebugLevel
	}

	// Stdout carries the protocol, so all logging goes to stderr.
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stderr)

	root, err := resolveRoot(cfg.Index.ProtoRoot)
	if err != nil {
		logger.WithError(err).Error("failed to resolve proto root")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize OpenTelemetry")
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := observability.ShutdownOTel(shutdownCtx, providers, logger); err != nil {
			logger.WithError(err).Warn("OpenTelemetry shutdown failed")
		}
	}()

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	catalogOpts := []catalog.Option{
		catalog.WithCache(cfg.Index.CacheEntries, cfg.Index.CacheTTL.Std()),
	}
	if metrics != nil {
		catalogOpts = append(catalogOpts, catalog.WithMetrics(metrics))
	}
	cat := catalog.New(logger, catalogOpts...)

	logger.WithField("root", root).Info("indexing proto files")
	count, err := cat.IndexDirectory(ctx, root)
	if err != nil {
		logger.WithError(err).Error("failed to index directory")
		os.Exit(1)
	}

	stats := cat.GetStats()
	logger.WithFields(map[string]interface{}{
		"files":    count,
		"services": stats.TotalServices,
		"messages": stats.TotalMessages,
		"enums":    stats.TotalEnums,
	}).Info("indexing complete")

	if cfg.Watch.Enabled {
		watchOpts := []watch.Option{
			watch.WithLogger(newWatchLogger(cfg.Observability.LogLevel)),
			watch.WithDebounce(cfg.Watch.Debounce.Std()),
		}
		if metrics != nil {
			watchOpts = append(watchOpts, watch.WithMetrics(metrics))
		}
		if cfg.Watch.RescanSchedule != "" {
			watchOpts = append(watchOpts, watch.WithRescanSchedule(cfg.Watch.RescanSchedule))
		}

		watcher, err := watch.New(cat, root, watchOpts...)
		if err != nil {
			logger.WithError(err).Error("failed to start file watcher")
			os.Exit(1)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				logger.WithError(err).Error("file watcher stopped")
			}
		}()
	}

	if cfg.Admin.Enabled {
		admin := api.NewServer(cat, cfg.Admin, logger, metrics, registry, version)
		go func() {
			if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("admin server stopped")
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := admin.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("admin server shutdown failed")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	srvOpts := []server.Option{}
	if metrics != nil {
		srvOpts = append(srvOpts, server.WithMetrics(metrics))
	}
	srv := server.New(cat, logger, srvOpts...)

	logger.Info("server ready, waiting for requests on stdio")
	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// resolveRoot expands env vars and a leading tilde, then validates the
// directory exists.
func resolveRoot(root string) (string, error) {
	expanded := os.ExpandEnv(root)
	if len(expanded) > 0 && expanded[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(expanded) == 1 {
				expanded = home
			} else {
				expanded = filepath.Join(home, expanded[1:])
			}
		}
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("proto root %s: %w", abs, err)
	}
	return abs, nil
}

// newWatchLogger builds the logrus logger the watcher uses, matched to
// the configured level and pointed at stderr.
func newWatchLogger(level observability.LogLevel) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	switch level {
	case observability.DebugLevel:
		log.SetLevel(logrus.DebugLevel)
	case observability.WarnLevel:
		log.SetLevel(logrus.WarnLevel)
	case observability.ErrorLevel:
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
