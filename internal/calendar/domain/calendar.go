// Package domain contains the calendar aggregates and the event model.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCalendarNotFound = errors.New("calendar not found")
	ErrEmptyCalendarID  = errors.New("calendar id cannot be empty")
)

// SelectedCalendar is a calendar from a linked account that the user
// can include in aggregation. Calendars imported from a secondarily
// linked account start disabled.
type SelectedCalendar struct {
	id              uuid.UUID
	linkedAccountID uuid.UUID
	calendarID      string
	name            string
	enabled         bool
	createdAt       time.Time
}

// NewSelectedCalendar registers a calendar from a linked account.
func NewSelectedCalendar(linkedAccountID uuid.UUID, calendarID, name string, enabled bool) (*SelectedCalendar, error) {
	if calendarID == "" {
		return nil, ErrEmptyCalendarID
	}

	return &SelectedCalendar{
		id:              uuid.New(),
		linkedAccountID: linkedAccountID,
		calendarID:      calendarID,
		name:            name,
		enabled:         enabled,
		createdAt:       time.Now().UTC(),
	}, nil
}

// RehydrateSelectedCalendar reconstructs a calendar from persisted state.
func RehydrateSelectedCalendar(id, linkedAccountID uuid.UUID, calendarID, name string, enabled bool, createdAt time.Time) *SelectedCalendar {
	return &SelectedCalendar{
		id:              id,
		linkedAccountID: linkedAccountID,
		calendarID:      calendarID,
		name:            name,
		enabled:         enabled,
		createdAt:       createdAt,
	}
}

// Getters
func (c *SelectedCalendar) ID() uuid.UUID              { return c.id }
func (c *SelectedCalendar) LinkedAccountID() uuid.UUID { return c.linkedAccountID }
func (c *SelectedCalendar) CalendarID() string         { return c.calendarID }
func (c *SelectedCalendar) Name() string               { return c.name }
func (c *SelectedCalendar) IsEnabled() bool            { return c.enabled }
func (c *SelectedCalendar) CreatedAt() time.Time       { return c.createdAt }

// SetEnabled toggles whether the calendar participates in aggregation.
func (c *SelectedCalendar) SetEnabled(enabled bool) {
	c.enabled = enabled
}
