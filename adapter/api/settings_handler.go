package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	reportingdomain "github.com/timelens/timelens/internal/reporting/domain"
)

// SettingsService reads and updates report delivery settings.
type SettingsService interface {
	Get(ctx context.Context, userID uuid.UUID) (*reportingdomain.ReportSettings, error)
	Update(ctx context.Context, userID uuid.UUID, update reportingdomain.SettingsUpdate) (*reportingdomain.ReportSettings, error)
}

// SettingsHandler serves the report settings endpoints.
type SettingsHandler struct {
	settings SettingsService
	logger   *slog.Logger
}

// NewSettingsHandler creates the settings handler.
func NewSettingsHandler(settings SettingsService, logger *slog.Logger) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{settings: settings, logger: logger}
}

// Get returns the user's report settings, defaults included.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	settings, err := h.settings.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("loading settings failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settingsPayload(settings)})
}

// Update applies a partial settings update.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	var body struct {
		IsEnabled *bool   `json:"isEnabled"`
		SendDay   *int    `json:"sendDay"`
		SendHour  *int    `json:"sendHour"`
		Timezone  *string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := reportingdomain.SettingsUpdate{
		Enabled:  body.IsEnabled,
		SendDay:  body.SendDay,
		SendHour: body.SendHour,
		Timezone: body.Timezone,
	}

	settings, err := h.settings.Update(r.Context(), userID, update)
	switch {
	case errors.Is(err, reportingdomain.ErrInvalidSendDay),
		errors.Is(err, reportingdomain.ErrInvalidSendHour),
		errors.Is(err, reportingdomain.ErrInvalidTimezone):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("updating settings failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update settings")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"settings": settingsPayload(settings)})
	}
}

func settingsPayload(settings *reportingdomain.ReportSettings) map[string]any {
	return map[string]any{
		"isEnabled": settings.Enabled(),
		"sendDay":   settings.SendDay(),
		"sendHour":  settings.SendHour(),
		"timezone":  settings.Timezone(),
	}
}
