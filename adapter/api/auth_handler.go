package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/identity/application/oauth"
	"github.com/timelens/timelens/internal/identity/application/session"
	identitydomain "github.com/timelens/timelens/internal/identity/domain"
)

// OAuthService drives the Google OAuth flows.
type OAuthService interface {
	AuthURL(state string) string
	CompleteLogin(ctx context.Context, code string) (*oauth.LoginResult, error)
	CompleteLink(ctx context.Context, userID uuid.UUID, code string) (*oauth.LinkResult, error)
	Unlink(ctx context.Context, userID, accountID uuid.UUID) error
	Accounts(ctx context.Context, userID uuid.UUID) ([]*identitydomain.LinkedAccount, error)
}

// AuthSessionStore is the session store surface the auth flows need.
type AuthSessionStore interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Get(ctx context.Context, sessionID string) (uuid.UUID, error)
	Delete(ctx context.Context, sessionID string) error
	PutOAuthState(ctx context.Context, state, purpose string) error
	TakeOAuthState(ctx context.Context, state string) (string, error)
}

// CalendarImporter registers an account's calendars after it is
// connected.
type CalendarImporter interface {
	ImportCalendars(ctx context.Context, accountID uuid.UUID, accessToken string, enabled bool) error
}

// SettingsInitializer creates default report settings for new users.
type SettingsInitializer interface {
	EnsureDefaults(ctx context.Context, userID uuid.UUID) error
}

// AuthHandler serves login, account linking, and session endpoints.
type AuthHandler struct {
	oauth          OAuthService
	sessions       AuthSessionStore
	users          identitydomain.UserRepository
	calendars      CalendarImporter
	reportSettings SettingsInitializer
	frontendURL    string
	secureCookies  bool
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(
	oauthService OAuthService,
	sessions AuthSessionStore,
	users identitydomain.UserRepository,
	calendars CalendarImporter,
	reportSettings SettingsInitializer,
	frontendURL string,
	secureCookies bool,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		oauth:          oauthService,
		sessions:       sessions,
		users:          users,
		calendars:      calendars,
		reportSettings: reportSettings,
		frontendURL:    strings.TrimRight(frontendURL, "/"),
		secureCookies:  secureCookies,
		sessionTTL:     sessionTTL,
		logger:         logger,
	}
}

// Login starts the Google sign-in flow.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	if err := h.sessions.PutOAuthState(r.Context(), state, session.PurposeLogin); err != nil {
		h.logger.Error("storing oauth state failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not start login")
		return
	}
	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusFound)
}

// Link starts the flow that attaches another Google account to the
// signed-in user.
func (h *AuthHandler) Link(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	state := uuid.NewString()
	purpose := session.PurposeLink + ":" + userID.String()
	if err := h.sessions.PutOAuthState(r.Context(), state, purpose); err != nil {
		h.logger.Error("storing oauth state failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not start account linking")
		return
	}
	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusFound)
}

// Callback finishes both the login and the link flow, telling them
// apart by the stored state purpose.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		h.redirectWithError(w, r, "missing_code")
		return
	}

	purpose, err := h.sessions.TakeOAuthState(r.Context(), state)
	if err != nil {
		h.redirectWithError(w, r, "invalid_state")
		return
	}

	if userIDStr, ok := strings.CutPrefix(purpose, session.PurposeLink+":"); ok {
		h.completeLink(w, r, userIDStr, code)
		return
	}
	h.completeLogin(w, r, code)
}

func (h *AuthHandler) completeLogin(w http.ResponseWriter, r *http.Request, code string) {
	ctx := r.Context()

	result, err := h.oauth.CompleteLogin(ctx, code)
	if err != nil {
		h.logger.Error("login failed", "error", err)
		h.redirectWithError(w, r, "auth_failed")
		return
	}

	if result.NewUser {
		// Calendars from the primary account start enabled.
		if err := h.calendars.ImportCalendars(ctx, result.Account.ID(), result.AccessToken, true); err != nil {
			h.logger.Warn("importing calendars failed", "user_id", result.User.ID(), "error", err)
		}
		if err := h.reportSettings.EnsureDefaults(ctx, result.User.ID()); err != nil {
			h.logger.Warn("creating default report settings failed", "user_id", result.User.ID(), "error", err)
		}
	}

	sessionID, err := h.sessions.Create(ctx, result.User.ID())
	if err != nil {
		h.logger.Error("creating session failed", "error", err)
		h.redirectWithError(w, r, "auth_failed")
		return
	}

	h.setSessionCookie(w, sessionID, h.sessionTTL)
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

func (h *AuthHandler) completeLink(w http.ResponseWriter, r *http.Request, userIDStr, code string) {
	ctx := r.Context()

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.redirectWithError(w, r, "invalid_state")
		return
	}

	result, err := h.oauth.CompleteLink(ctx, userID, code)
	if err != nil {
		if errors.Is(err, identitydomain.ErrAccountAlreadyLinked) {
			http.Redirect(w, r, h.frontendURL+"/settings?error=already_linked", http.StatusFound)
			return
		}
		h.logger.Error("account linking failed", "user_id", userID, "error", err)
		h.redirectWithError(w, r, "link_failed")
		return
	}

	// Calendars from linked accounts start disabled.
	if err := h.calendars.ImportCalendars(ctx, result.Account.ID(), result.AccessToken, false); err != nil {
		h.logger.Warn("importing calendars failed", "user_id", userID, "error", err)
	}

	http.Redirect(w, r, h.frontendURL+"/settings?linked=true", http.StatusFound)
}

// Unlink removes a linked account. The primary account cannot be
// removed.
func (h *AuthHandler) Unlink(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	switch err := h.oauth.Unlink(r.Context(), userID, accountID); {
	case errors.Is(err, identitydomain.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, identitydomain.ErrUnlinkPrimary):
		writeError(w, http.StatusBadRequest, "primary account cannot be unlinked")
	case err != nil:
		h.logger.Error("unlinking account failed", "account_id", accountID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not unlink account")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// Me returns the signed-in user, or a null user without a session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	userID, err := h.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{
			"id":    user.ID().String(),
			"email": user.Email(),
			"name":  user.Name(),
		},
	})
}

// Accounts lists the user's linked Google accounts.
func (h *AuthHandler) Accounts(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	accounts, err := h.oauth.Accounts(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing accounts failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list accounts")
		return
	}

	payload := make([]map[string]any, 0, len(accounts))
	for _, account := range accounts {
		payload = append(payload, map[string]any{
			"id":          account.ID().String(),
			"googleEmail": account.GoogleEmail(),
			"isPrimary":   account.IsPrimary(),
			"createdAt":   account.CreatedAt().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": payload})
}

// Logout ends the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("deleting session failed", "error", err)
		}
	}

	h.setSessionCookie(w, "", -time.Hour)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+code, http.StatusFound)
}
