// Package server provides the HTTP servers for the ledger service.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/devrev/promptledger/internal/config"
	"github.com/devrev/promptledger/internal/handler"
	"github.com/devrev/promptledger/internal/health"
	"github.com/devrev/promptledger/internal/middleware"
	"github.com/devrev/promptledger/internal/service"
)

// Server represents the ledger HTTP server.
type Server struct {
	router      *mux.Router
	httpServer  *http.Server
	handlers    *handler.Handlers
	healthCheck *health.HealthCheck
	logger      *zap.Logger
	cfg         *config.Config
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Config, svc *service.LedgerService, logger *zap.Logger) *Server {
	router := mux.NewRouter()
	handlers := handler.NewHandlers(svc, logger)
	healthCheck := health.NewHealthCheck(svc, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		router:      router,
		httpServer:  httpServer,
		handlers:    handlers,
		healthCheck: healthCheck,
		logger:      logger,
		cfg:         cfg,
	}
}

// SetupRoutes configures all HTTP routes.
func (s *Server) SetupRoutes() {
	middlewareChain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
	}

	if s.cfg.RateLimiter.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			s.cfg.RateLimiter.RequestsPerSecond,
			s.cfg.RateLimiter.Burst,
			s.logger,
		)
		middlewareChain = append(middlewareChain, rateLimiter.Limit)
	}

	chain := middleware.Chain(middlewareChain...)
	s.router.Use(func(next http.Handler) http.Handler {
		return chain(next)
	})

	// Health check endpoints
	s.router.HandleFunc("/health", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)

	// API v1 routes
	v1 := s.router.PathPrefix("/v1").Subrouter()

	// Prompt submissions. The /count route must precede /{id}.
	v1.HandleFunc("/prompts", s.handlers.SubmitPrompt).Methods(http.MethodPost)
	v1.HandleFunc("/prompts", s.handlers.RequestAt).Methods(http.MethodGet)
	v1.HandleFunc("/prompts/count", s.handlers.RequestCount).Methods(http.MethodGet)
	v1.HandleFunc("/prompts/{id}", s.handlers.GetPrompt).Methods(http.MethodGet)

	// Response commitments
	v1.HandleFunc("/responses", s.handlers.SetResponse).Methods(http.MethodPost)
	v1.HandleFunc("/responses/batch", s.handlers.SetResponseBatch).Methods(http.MethodPost)
	v1.HandleFunc("/responses/{id}", s.handlers.GetResponse).Methods(http.MethodGet)

	// Sessions
	v1.HandleFunc("/sessions", s.handlers.CreateSession).Methods(http.MethodPost)
	v1.HandleFunc("/sessions", s.handlers.SessionAt).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/count", s.handlers.SessionCount).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}/requests", s.handlers.AppendSessionRequest).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/requests/count", s.handlers.SessionRequestCount).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}/requests/{index}", s.handlers.SessionRequestAt).Methods(http.MethodGet)

	// Admin
	admin := v1.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/pause", s.handlers.SetPaused).Methods(http.MethodPut)
	admin.HandleFunc("/pause", s.handlers.GetPaused).Methods(http.MethodGet)

	// Event log
	v1.HandleFunc("/events", s.handlers.Events).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":"error","error_code":"INVALID_REQUEST","message":"endpoint not found"}`))
	})

	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"status":"error","error_code":"INVALID_REQUEST","message":"method not allowed"}`))
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// GetRouter returns the router for testing purposes.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}
