package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/pitwall/internal/config"
	"github.com/me/pitwall/internal/engine"
)

// Server is the Pitwall REST API server.
type Server struct {
	router      chi.Router
	logger      *slog.Logger
	config      config.ServerConfig
	startTime   time.Time
	engine      *engine.Engine
	sseInterval time.Duration
}

// Option configures optional Server behavior.
type Option func(*Server)

// WithSSEInterval overrides how often the event stream polls the arena.
func WithSSEInterval(d time.Duration) Option {
	return func(s *Server) {
		s.sseInterval = d
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, eng *engine.Engine, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger.With("component", "server"),
		config:      cfg,
		startTime:   time.Now(),
		engine:      eng,
		sseInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	// API routes (JSON)
	r.Route("/api/v1", func(r chi.Router) {
		// Discovery
		r.Get("/", s.handleDiscovery)

		// Health
		r.Get("/health", s.handleHealth)

		// Waiting queue and review stage
		r.Route("/queue", func(r chi.Router) {
			r.Get("/", s.handleGetQueue)
			r.Post("/", s.handleJoinQueue)
		})

		// Slots and run lifecycle
		r.Route("/slots", func(r chi.Router) {
			r.Get("/", s.handleListSlots)
			r.Route("/{slotID}", func(r chi.Router) {
				r.Get("/", s.handleGetSlot)
				r.Post("/start", s.handleStartRun)
				r.Post("/pause", s.handlePauseRun)
				r.Post("/resume", s.handleResumeRun)
				r.Post("/dysfunctional", s.handleMarkDysfunctional)
				r.Post("/end", s.handleEndRun)
			})
		})

		// Review resolutions
		r.Route("/review/{teamID}", func(r chi.Router) {
			r.Post("/success", s.handleReviewSuccess)
			r.Post("/failure", s.handleReviewFailure)
			r.Post("/cancel", s.handleReviewCancel)
		})

		// Run duration configuration
		r.Route("/config/run-duration", func(r chi.Router) {
			r.Get("/", s.handleGetRunDuration)
			r.Put("/", s.handleSetRunDuration)
		})

		// Full arena snapshot
		r.Get("/arena", s.handleArena)

		// SSE endpoint for real-time updates
		r.Route("/sse", func(r chi.Router) {
			r.Get("/arena", s.handleSSEArena)
		})
	})
}
