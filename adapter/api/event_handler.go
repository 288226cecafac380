package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	calendardomain "github.com/timelens/timelens/internal/calendar/domain"
	categorizationdomain "github.com/timelens/timelens/internal/categorization/domain"
)

// EventFetcher aggregates events across the user's enabled calendars.
type EventFetcher interface {
	FetchRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]calendardomain.Event, error)
}

// AssignmentService reads and writes event-category assignments.
type AssignmentService interface {
	AssignmentsForUser(ctx context.Context, userID uuid.UUID) (map[string]uuid.UUID, error)
	Assign(ctx context.Context, userID uuid.UUID, eventID string, categoryID uuid.UUID) error
}

// EventHandler serves the event listing and manual assignment
// endpoints.
type EventHandler struct {
	events      EventFetcher
	assignments AssignmentService
	logger      *slog.Logger
}

// NewEventHandler creates the event handler.
func NewEventHandler(events EventFetcher, assignments AssignmentService, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{events: events, assignments: assignments, logger: logger}
}

// List returns events in the requested range, each with its assigned
// category when one exists.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.events.FetchRange(r.Context(), userID, start, end)
	if err != nil {
		h.logger.Error("fetching events failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not fetch events")
		return
	}

	assignments, err := h.assignments.AssignmentsForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("loading assignments failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load assignments")
		return
	}

	payload := make([]map[string]any, 0, len(events))
	for _, event := range events {
		entry := map[string]any{
			"id":           event.ID,
			"title":        event.Title,
			"start":        event.Start.Format(time.RFC3339),
			"end":          event.End.Format(time.RFC3339),
			"allDay":       event.AllDay,
			"calendarName": event.CalendarName,
			"attendees":    event.Attendees,
		}
		if categoryID, ok := assignments[event.ID]; ok {
			entry["categoryId"] = categoryID.String()
		}
		payload = append(payload, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": payload})
}

// AssignCategory records a manual assignment for one event.
func (h *EventHandler) AssignCategory(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	eventID := r.PathValue("eventId")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "event id is required")
		return
	}

	var body struct {
		CategoryID string `json:"categoryId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	categoryID, err := uuid.Parse(body.CategoryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	switch err := h.assignments.Assign(r.Context(), userID, eventID, categoryID); {
	case errors.Is(err, categorizationdomain.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case err != nil:
		h.logger.Error("manual assignment failed", "event_id", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not assign category")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// parseRange reads the start and end query parameters.
func parseRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errors.New("start and end are required")
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start must be RFC 3339")
	}
	end, err = time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end must be RFC 3339")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("end must be after start")
	}
	return start, end, nil
}
