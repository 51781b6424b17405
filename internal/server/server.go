// Package server exposes the Author engine over HTTP: thread CRUD, message
// send, abort, and an SSE event feed bridged from the relay.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/author-ai/author/internal/relay"
	"github.com/author-ai/author/internal/session"
	"github.com/author-ai/author/internal/storage"
	"github.com/author-ai/author/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Port         int
	Directory    string
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE responses stay open indefinitely
	}
}

// Server is the HTTP server.
type Server struct {
	config    *Config
	appConfig *types.Config
	router    *chi.Mux
	httpSrv   *http.Server

	threads  *storage.ThreadStore
	registry *session.Registry
	runner   *session.Runner
	relay    *relay.Relay
}

// New creates a server over the given collaborators.
func New(cfg *Config, appConfig *types.Config, threads *storage.ThreadStore, registry *session.Registry, runner *session.Runner, bus *relay.Relay) *Server {
	s := &Server{
		config:    cfg,
		appConfig: appConfig,
		router:    chi.NewRouter(),
		threads:   threads,
		registry:  registry,
		runner:    runner,
		relay:     bus,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
