package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	calendardomain "github.com/timelens/timelens/internal/calendar/domain"
)

// CalendarService manages the user's selected calendars.
type CalendarService interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]calendardomain.CalendarListing, error)
	SetEnabled(ctx context.Context, userID, calendarID uuid.UUID, enabled bool) error
}

// CalendarHandler serves the calendar selection endpoints.
type CalendarHandler struct {
	calendars CalendarService
	logger    *slog.Logger
}

// NewCalendarHandler creates the calendar handler.
func NewCalendarHandler(calendars CalendarService, logger *slog.Logger) *CalendarHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarHandler{calendars: calendars, logger: logger}
}

// List returns all calendars across the user's linked accounts.
func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	listings, err := h.calendars.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing calendars failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list calendars")
		return
	}

	payload := make([]map[string]any, 0, len(listings))
	for _, listing := range listings {
		payload = append(payload, map[string]any{
			"id":           listing.Calendar.ID().String(),
			"calendarId":   listing.Calendar.CalendarID(),
			"name":         listing.Calendar.Name(),
			"isEnabled":    listing.Calendar.IsEnabled(),
			"accountEmail": listing.AccountEmail,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"calendars": payload})
}

// SetEnabled toggles whether a calendar participates in aggregation.
func (h *CalendarHandler) SetEnabled(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	calendarID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	var body struct {
		IsEnabled *bool `json:"isEnabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IsEnabled == nil {
		writeError(w, http.StatusBadRequest, "isEnabled is required")
		return
	}

	switch err := h.calendars.SetEnabled(r.Context(), userID, calendarID, *body.IsEnabled); {
	case errors.Is(err, calendardomain.ErrCalendarNotFound):
		writeError(w, http.StatusNotFound, "calendar not found")
	case err != nil:
		h.logger.Error("toggling calendar failed", "calendar_id", calendarID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update calendar")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
