// Package application provides calendar management and the multi-account
// event fetcher.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/calendar/domain"
	"github.com/timelens/timelens/internal/calendar/infrastructure/google"
)

// CalendarLister fetches the calendar list for an account.
type CalendarLister interface {
	ListCalendars(ctx context.Context, accessToken string) ([]google.CalendarEntry, error)
}

// Service manages the user's selected calendars.
type Service struct {
	calendars domain.SelectedCalendarRepository
	client    CalendarLister
	logger    *slog.Logger
}

// NewService creates a calendar service.
func NewService(calendars domain.SelectedCalendarRepository, client CalendarLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{calendars: calendars, client: client, logger: logger}
}

// ImportCalendars fetches the account's calendar list and registers each
// calendar. Calendars from a primary account start enabled, linked
// accounts start disabled.
func (s *Service) ImportCalendars(ctx context.Context, accountID uuid.UUID, accessToken string, enabled bool) error {
	entries, err := s.client.ListCalendars(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("list calendars: %w", err)
	}

	for _, entry := range entries {
		calendar, err := domain.NewSelectedCalendar(accountID, entry.ID, entry.Name, enabled)
		if err != nil {
			s.logger.Warn("skipping invalid calendar entry", "calendar_id", entry.ID, "error", err)
			continue
		}
		if err := s.calendars.Save(ctx, calendar); err != nil {
			return fmt.Errorf("save calendar %s: %w", entry.ID, err)
		}
	}
	return nil
}

// ListForUser lists all calendars with account emails.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.CalendarListing, error) {
	return s.calendars.ListByUser(ctx, userID)
}

// SetEnabled toggles a calendar after verifying ownership.
func (s *Service) SetEnabled(ctx context.Context, userID, calendarID uuid.UUID, enabled bool) error {
	owned, err := s.calendars.OwnedByUser(ctx, calendarID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return domain.ErrCalendarNotFound
	}
	return s.calendars.SetEnabled(ctx, calendarID, enabled)
}
