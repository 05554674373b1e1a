package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/code-validator/internal/config"
	"github.com/terra-clan/code-validator/internal/health"
	"github.com/terra-clan/code-validator/internal/models"
	"github.com/terra-clan/code-validator/internal/submission"
)

// Store is the persistence the API reads directly: API clients for
// authentication and the submission event log.
type Store interface {
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error
	ListEvents(ctx context.Context, sessionID string, limit, offset int) ([]*models.Event, error)
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	submissions    *submission.Service
	checks         *health.Registry
	store          Store
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	svc *submission.Service,
	checks *health.Registry,
	store Store,
) *Server {
	if checks == nil {
		checks = health.NewRegistry()
	}
	s := &Server{
		config:         cfg,
		submissions:    svc,
		checks:         checks,
		store:          store,
		authMiddleware: NewAuthMiddleware(store),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Websocket upgrades must not sit behind the request timeout
		r.With(s.authMiddleware.RequirePermission("submissions:write")).Get("/stages/{id}/live", s.handleLiveLint)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.With(s.authMiddleware.RequirePermission("stages:read")).Get("/stages", s.handleListStages)
			r.With(s.authMiddleware.RequirePermission("stages:read")).Get("/stages/{id}", s.handleGetStage)

			r.With(s.authMiddleware.RequirePermission("submissions:write")).Post("/submissions", s.handleSubmit)
			r.With(s.authMiddleware.RequirePermission("submissions:write")).Post("/validate", s.handleValidate)

			r.With(s.authMiddleware.RequirePermission("events:read")).Get("/sessions/{sessionId}/events", s.handleListEvents)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
