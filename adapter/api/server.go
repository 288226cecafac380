// Package api provides the HTTP API: auth, calendars, events,
// categories, reports, and settings.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Server is the HTTP API server.
type Server struct {
	mux    *http.ServeMux
	server *http.Server
	logger *slog.Logger

	auth       *AuthHandler
	calendars  *CalendarHandler
	events     *EventHandler
	categories *CategoryHandler
	reports    *ReportHandler
	settings   *SettingsHandler

	frontendURL string
	sessions    SessionStore
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	FrontendURL  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		FrontendURL:  "http://localhost:5173",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Handlers bundles the route handlers the server mounts.
type Handlers struct {
	Auth       *AuthHandler
	Calendars  *CalendarHandler
	Events     *EventHandler
	Categories *CategoryHandler
	Reports    *ReportHandler
	Settings   *SettingsHandler
}

// NewServer creates the API server.
func NewServer(cfg ServerConfig, handlers Handlers, sessions SessionStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		auth:        handlers.Auth,
		calendars:   handlers.Calendars,
		events:      handlers.Events,
		categories:  handlers.Categories,
		reports:     handlers.Reports,
		settings:    handlers.Settings,
		frontendURL: cfg.FrontendURL,
		sessions:    sessions,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.corsMiddleware(s.requestLogMiddleware(s.mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// OAuth flows. The callback serves both login and link.
	s.mux.HandleFunc("GET /api/auth/login", s.auth.Login)
	s.mux.HandleFunc("GET /api/auth/callback", s.auth.Callback)
	s.mux.Handle("GET /api/auth/link", s.requireAuth(s.auth.Link))
	s.mux.Handle("DELETE /api/auth/link/{id}", s.requireAuth(s.auth.Unlink))
	s.mux.HandleFunc("GET /api/auth/me", s.auth.Me)
	s.mux.Handle("GET /api/auth/accounts", s.requireAuth(s.auth.Accounts))
	s.mux.HandleFunc("POST /api/auth/logout", s.auth.Logout)

	s.mux.Handle("GET /api/calendars", s.requireAuth(s.calendars.List))
	s.mux.Handle("PUT /api/calendars/{id}", s.requireAuth(s.calendars.SetEnabled))

	s.mux.Handle("GET /api/events", s.requireAuth(s.events.List))
	s.mux.Handle("PUT /api/events/{eventId}/category", s.requireAuth(s.events.AssignCategory))

	s.mux.Handle("GET /api/categories", s.requireAuth(s.categories.List))
	s.mux.Handle("POST /api/categories", s.requireAuth(s.categories.Create))
	s.mux.Handle("PUT /api/categories/{id}", s.requireAuth(s.categories.Update))
	s.mux.Handle("DELETE /api/categories/{id}", s.requireAuth(s.categories.Delete))
	s.mux.Handle("GET /api/categories/{id}/rules", s.requireAuth(s.categories.ListRules))
	s.mux.Handle("POST /api/categories/{id}/rules", s.requireAuth(s.categories.AddRule))
	s.mux.Handle("DELETE /api/categories/{id}/rules/{ruleId}", s.requireAuth(s.categories.DeleteRule))
	s.mux.Handle("POST /api/categories/generate", s.requireAuth(s.categories.Generate))

	s.mux.Handle("POST /api/categorize", s.requireAuth(s.categories.Categorize))

	s.mux.Handle("GET /api/report", s.requireAuth(s.reports.Get))
	s.mux.Handle("GET /api/report/preview", s.requireAuth(s.reports.Preview))
	s.mux.Handle("POST /api/report/send", s.requireAuth(s.reports.Send))

	s.mux.Handle("GET /api/settings", s.requireAuth(s.settings.Get))
	s.mux.Handle("PUT /api/settings", s.requireAuth(s.settings.Update))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting api server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down api server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
