// Package api provides the REST surface serving dashboard statistics and
// the cached AI analysis.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tpotops/threatbrief/internal/analysis"
)

// Server is the REST API server.
type Server struct {
	cache     *analysis.Cache
	dashboard *Dashboard
	router    *chi.Mux
	server    *http.Server
	logger    *slog.Logger
}

// NewServer creates the API server. The gatherer may be nil, in which
// case /metrics is not mounted.
func NewServer(addr string, dashboard *Dashboard, cache *analysis.Cache, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cache:     cache,
		dashboard: dashboard,
		router:    chi.NewRouter(),
		logger:    logger,
	}

	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// The dashboard frontend is served from a different origin.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.HandleHealth)
	s.router.Get("/api/dashboard", s.handleDashboard)
	s.router.Get("/api/ai-analysis", s.handleAIAnalysis)
	if gatherer != nil {
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	return s
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP lets the server be used as a plain http.Handler in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleRoot is the liveness endpoint the frontend polls.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "T-Pot threat briefing API is running.",
	})
}

// handleDashboard serves the pre-shaped trailing-day statistics. Store
// failures surface to the caller as an explicit error payload.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := s.dashboard.Load(r.Context())
	if err != nil {
		s.logger.Error("dashboard query failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

// handleAIAnalysis returns the current cache contents verbatim. The cache
// is always populated (placeholder or a prior briefing), so this path
// never errors and never blocks on a running refresh.
func (s *Server) handleAIAnalysis(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.cache.Get())
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
