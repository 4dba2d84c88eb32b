// Package web provides the HTTP API of the oedatamodel format service.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/oedatamodel/internal/config"
	"github.com/JonMunkholm/oedatamodel/internal/core"
	"github.com/JonMunkholm/oedatamodel/internal/metrics"
	"github.com/JonMunkholm/oedatamodel/internal/web/middleware"
)

// Mapper applies a named mapping to a raw response.
type Mapper interface {
	Apply(raw *core.RawResponse, name string) (any, error)
}

// MappingLister lists the custom mappings available to Mapper.
type MappingLister interface {
	Names() ([]string, error)
}

// Server is the HTTP server for the format service.
type Server struct {
	cfg      *config.Config
	mapper   Mapper
	mappings MappingLister
	metrics  *metrics.Metrics
	limiter  *middleware.RateLimiter
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server. m may be nil to disable instrumentation.
func NewServer(cfg *config.Config, mapper Mapper, mappings MappingLister, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		mapper:   mapper,
		mappings: mappings,
		metrics:  m,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.limiter = middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(s.limiter.Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))

		r.Get("/formats", s.handleListFormats)
		r.Post("/format/{format}", s.handleFormat)

		r.Get("/mappings", s.handleListMappings)
		r.Post("/mapping/{name}", s.handleMapping)
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// The API serves no documents, so nothing may be loaded from it.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
