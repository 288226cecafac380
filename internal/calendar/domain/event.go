package domain

import "time"

// UntitledEvent is the display title for events without a summary.
const UntitledEvent = "(No title)"

// Event is a calendar event fetched from a provider. Events are not
// persisted; they are read fresh for each aggregation.
type Event struct {
	ID           string
	Title        string
	Start        time.Time
	End          time.Time
	AllDay       bool
	CalendarID   string
	CalendarName string
	Attendees    []string
}

// AttendeeCount returns the number of attendees, counting a solo event
// as one participant.
func (e Event) AttendeeCount() int {
	if len(e.Attendees) == 0 {
		return 1
	}
	return len(e.Attendees)
}

// DurationMinutes returns the event duration rounded to whole minutes.
func (e Event) DurationMinutes() int {
	return int(e.End.Sub(e.Start).Round(time.Minute) / time.Minute)
}
