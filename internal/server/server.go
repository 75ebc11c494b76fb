// Package server provides the HTTP server and routing for the agent.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/config"
	"github.com/rwagpt/agent/internal/di"
	agenthandlers "github.com/rwagpt/agent/internal/modules/agent/handlers"
	ledgerhandlers "github.com/rwagpt/agent/internal/modules/ledger/handlers"
	messagehandlers "github.com/rwagpt/agent/internal/modules/messages/handlers"
)

// Endpoints advertised by the discovery route
var Endpoints = []string{
	"/health",
	"/ask-agent",
	"/recommendations",
	"/update-transaction",
	"/store-transaction",
	"/transactions",
	"/messages",
	"/api/system/status",
}

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	c := cfg.Container

	deps := SystemDeps{
		DataDir:   cfg.Config.DataDir,
		Ledger:    c.Ledger,
		Databases: c.Databases(),
	}
	if c.Scheduler != nil {
		deps.Jobs = c.Scheduler
	}
	if c.BackupService != nil {
		deps.Backups = c.BackupService
	}

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		container:      c,
		systemHandlers: NewSystemHandlers(deps, cfg.Log),
	}

	s.setupMiddleware(cfg.Config.DevMode, cfg.Config.AllowedOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool, allowedOrigins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(25 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/", s.handleRoot)

	// Agent, ledger and transcript live at the root for the web client
	agenthandlers.NewHandler(s.container.AgentService, s.log).RegisterRoutes(s.router)
	ledgerhandlers.NewHandler(s.container.Ledger, s.log).RegisterRoutes(s.router)
	messagehandlers.NewHandler(s.container.MessageStore, s.log).RegisterRoutes(s.router)

	s.router.Route("/api", func(r chi.Router) {
		s.systemHandlers.RegisterRoutes(r)
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
