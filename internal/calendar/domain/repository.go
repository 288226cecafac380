package domain

import (
	"context"

	"github.com/google/uuid"
)

// CalendarListing pairs a selected calendar with the email of the
// account it belongs to, for display.
type CalendarListing struct {
	Calendar     *SelectedCalendar
	AccountEmail string
}

// SelectedCalendarRepository persists selected calendars.
type SelectedCalendarRepository interface {
	Save(ctx context.Context, calendar *SelectedCalendar) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	FindByID(ctx context.Context, id uuid.UUID) (*SelectedCalendar, error)
	FindEnabledByUser(ctx context.Context, userID uuid.UUID) ([]*SelectedCalendar, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]CalendarListing, error)
	// OwnedByUser reports whether the calendar belongs to one of the
	// user's linked accounts.
	OwnedByUser(ctx context.Context, id, userID uuid.UUID) (bool, error)
}
