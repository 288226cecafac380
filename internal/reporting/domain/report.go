// Package domain contains time-allocation reports and delivery
// settings.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is how report dates appear in periods and daily buckets.
const DateLayout = "2006-01-02"

// Report is a time-allocation summary over a period. All-day events
// carry no duration and are excluded from every total.
type Report struct {
	Period       Period          `json:"period"`
	TotalMinutes int             `json:"totalMinutes"`
	EventCount   int             `json:"eventCount"`
	Categories   []CategoryTotal `json:"categories"`
	DailyData    []DailyEntry    `json:"dailyData"`
	Events       []ReportEvent   `json:"events"`
	TopAttendees []AttendeeTotal `json:"topAttendees"`
}

// Period is the reported date range, inclusive.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CategoryTotal is the time spent in one category. Categories with no
// events appear with zero minutes.
type CategoryTotal struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Minutes    int       `json:"minutes"`
	Percentage float64   `json:"percentage"`
}

// DailyEntry buckets categorized minutes by day.
type DailyEntry struct {
	Date       string         `json:"date"`
	Categories map[string]int `json:"categories"`
}

// ReportEvent is one timed event in the period. Category fields are
// empty for uncategorized events.
type ReportEvent struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	Minutes       int        `json:"durationMinutes"`
	Attendees     []string   `json:"attendees"`
	CalendarName  string     `json:"calendarName"`
	CategoryID    *uuid.UUID `json:"categoryId,omitempty"`
	CategoryName  string     `json:"categoryName,omitempty"`
	CategoryColor string     `json:"categoryColor,omitempty"`
}

// AttendeeTotal is the time shared with one attendee. Each attendee is
// credited the full duration of every event they appear on.
type AttendeeTotal struct {
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	Minutes    int     `json:"minutes"`
	Percentage float64 `json:"percentage"`
}
