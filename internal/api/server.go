// Package api provides the HTTP API for managing followed artists, title skip
// sequences and on-demand reconciliation runs.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storewatch/internal/reconcile"
	"storewatch/internal/storage"
)

// Runner triggers a reconciliation run on demand.
type Runner interface {
	Run(ctx context.Context) (*reconcile.Summary, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  storage.Storage
	runner Runner
	router *chi.Mux
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// runner may be nil, in which case POST /api/runs answers 503.
func NewServer(store storage.Storage, runner Runner, logger *slog.Logger) *Server {
	s := &Server{
		store:  store,
		runner: runner,
		router: chi.NewRouter(),
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/artists", func(r chi.Router) {
			r.Get("/", s.handleListArtists)
			r.Post("/", s.handleFollowArtist)
			r.Delete("/{id}", s.handleUnfollowArtist)
		})

		r.Get("/items", s.handleListItems)

		r.Route("/title-skip-sequences", func(r chi.Router) {
			r.Get("/", s.handleListSequences)
			r.Post("/", s.handleAddSequence)
			r.Delete("/{sequence}", s.handleDeleteSequence)
		})

		r.Post("/runs", s.handleTriggerRun)
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	success(w, map[string]string{"status": "healthy"}, s.logger)
}
