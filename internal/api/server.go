package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

// ServerConfig configures the compiler service's HTTP listener.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns sane defaults for local/dev use.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server is the compiler's HTTP surface: trigger a compilation, fetch the
// manifest it produced, and health/ready probes.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  ServerConfig
}

// NewServer wires a Server against catalog and the optional store used for
// the health probe.
func NewServer(cfg ServerConfig, catalog *domain.SensorCatalog, defaultGroupSize int, store domain.SensorStore, version string) *Server {
	handler := NewHandler(catalog, defaultGroupSize, store, version)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Post("/compile", handler.Compile)
	router.Get("/manifest", handler.Manifest)

	return &Server{router: router, handler: handler, config: cfg}
}

// Start runs the HTTP server until it is shut down or fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
