// Package api exposes the admin HTTP surface: health probes, Prometheus
// metrics, and read-only query endpoints over the catalog. It runs
// alongside the stdio protocol server on a separate port.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/umuterturk/mcp-proto/pkg/catalog"
	"github.com/umuterturk/mcp-proto/pkg/config"
	"github.com/umuterturk/mcp-proto/pkg/httputil"
	"github.com/umuterturk/mcp-proto/pkg/observability"
)

// Server is the admin HTTP server.
type Server struct {
	catalog *catalog.Catalog
	router  *mux.Router
	logger  *observability.Logger
	health  *observability.HealthChecker

	httpServer *http.Server
}

// NewServer creates the admin server and wires its routes.
func NewServer(cat *catalog.Catalog, cfg config.AdminConfig, logger *observability.Logger, metrics *observability.Metrics, registry *prometheus.Registry, version string) *Server {
	s := &Server{
		catalog: cat,
		router:  mux.NewRouter(),
		logger:  logger,
		health:  observability.NewHealthChecker(version),
	}

	// Ready once at least one file has been indexed.
	s.health.AddCheck("catalog", func(ctx context.Context) error {
		if s.catalog.Empty() {
			return errors.New("no files indexed yet")
		}
		return nil
	})

	s.setupRoutes(registry)

	handler := http.Handler(s.router)
	handler = httputil.RecoveryMiddleware(logger)(handler)
	if metrics != nil {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
		IdleTimeout:  cfg.IdleTimeout.Std(),
	}

	return s
}

func (s *Server) setupRoutes(registry *prometheus.Registry) {
	s.router.HandleFunc("/healthz", s.health.Liveness).Methods("GET")
	s.router.HandleFunc("/readyz", s.health.Readiness).Methods("GET")
	if registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(registry)).Methods("GET")
	}

	s.router.HandleFunc("/v1/search", s.search).Methods("GET")
	s.router.HandleFunc("/v1/stats", s.getStats).Methods("GET")
	s.router.HandleFunc("/v1/services/{name}", s.getService).Methods("GET")
	s.router.HandleFunc("/v1/messages/{name}", s.getMessage).Methods("GET")
	s.router.HandleFunc("/v1/enums/{name}", s.getEnum).Methods("GET")
	s.router.HandleFunc("/v1/types/{name}/usages", s.getTypeUsages).Methods("GET")
	s.router.HandleFunc("/v1/files", s.listFiles).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("admin server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
