package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/timelens/timelens/pkg/observability"
)

// sessionCookie names the cookie that carries the session ID.
const sessionCookie = "timelens_session"

// SessionStore resolves session cookies to user IDs.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (uuid.UUID, error)
	Delete(ctx context.Context, sessionID string) error
}

type authenticatedHandler func(w http.ResponseWriter, r *http.Request, userID uuid.UUID)

// requireAuth resolves the session cookie and rejects requests without
// a valid session.
func (s *Server) requireAuth(next authenticatedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.sessionUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := observability.WithUserID(r.Context(), userID.String())
		next(w, r.WithContext(ctx), userID)
	})
}

// sessionUser resolves the request's session cookie, if any.
func (s *Server) sessionUser(r *http.Request) (uuid.UUID, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return uuid.Nil, false
	}

	userID, err := s.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// corsMiddleware allows the frontend origin with credentials.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.frontendURL)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogMiddleware tags each request with an ID and logs it.
func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := observability.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		s.logger.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
			observability.RequestIDKey, observability.RequestIDFromContext(ctx),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
