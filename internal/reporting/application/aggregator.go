// Package application builds time-allocation reports and schedules
// their delivery.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	calendardomain "github.com/timelens/timelens/internal/calendar/domain"
	categorizationapp "github.com/timelens/timelens/internal/categorization/application"
	categorizationdomain "github.com/timelens/timelens/internal/categorization/domain"
	"github.com/timelens/timelens/internal/reporting/domain"
)

// topAttendeeCount caps how many attendees a report lists.
const topAttendeeCount = 10

// EventSource fetches a user's events across all enabled calendars.
type EventSource interface {
	FetchRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]calendardomain.Event, error)
}

// CategoryResolver looks up categories and assignments, and runs the
// categorization pipeline for events that have none yet.
type CategoryResolver interface {
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*categorizationdomain.Category, error)
	AssignmentsForUser(ctx context.Context, userID uuid.UUID) (map[string]uuid.UUID, error)
	Categorize(ctx context.Context, userID uuid.UUID, eventIDs []string) ([]categorizationapp.ClassifiedEvent, error)
}

// Aggregator builds time-allocation reports.
type Aggregator struct {
	events     EventSource
	categories CategoryResolver
	logger     *slog.Logger
}

// NewAggregator creates a report aggregator.
func NewAggregator(events EventSource, categories CategoryResolver, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{events: events, categories: categories, logger: logger}
}

// BuildReport aggregates the user's events over the period. Events
// without an assignment are run through the categorization pipeline
// first; when that fails they are reported as uncategorized.
func (a *Aggregator) BuildReport(ctx context.Context, userID uuid.UUID, start, end time.Time) (*domain.Report, error) {
	events, err := a.events.FetchRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	assignments, err := a.categories.AssignmentsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	a.backfillAssignments(ctx, userID, events, assignments)

	categories, err := a.categories.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	report := &domain.Report{
		Period: domain.Period{
			Start: start.Format(domain.DateLayout),
			End:   end.Format(domain.DateLayout),
		},
	}

	categoryByID := make(map[uuid.UUID]*categorizationdomain.Category, len(categories))
	for _, category := range categories {
		categoryByID[category.ID()] = category
	}

	categoryMinutes := make(map[uuid.UUID]int)
	dailyMinutes := make(map[string]map[string]int)
	attendeeMinutes := make(map[string]int)
	attendeeOrder := make(map[string]int)

	for _, event := range events {
		if event.AllDay {
			continue
		}

		minutes := event.DurationMinutes()
		date := event.Start.Format(domain.DateLayout)

		attendees := event.Attendees
		if attendees == nil {
			attendees = []string{}
		}
		reportEvent := domain.ReportEvent{
			ID:           event.ID,
			Title:        event.Title,
			Start:        event.Start,
			End:          event.End,
			Minutes:      minutes,
			Attendees:    attendees,
			CalendarName: event.CalendarName,
		}
		if categoryID, ok := assignments[event.ID]; ok {
			id := categoryID
			reportEvent.CategoryID = &id
			if category, ok := categoryByID[categoryID]; ok {
				reportEvent.CategoryName = category.Name()
				reportEvent.CategoryColor = category.Color()
			}

			categoryMinutes[categoryID] += minutes
			if dailyMinutes[date] == nil {
				dailyMinutes[date] = make(map[string]int)
			}
			dailyMinutes[date][categoryID.String()] += minutes
		}
		report.Events = append(report.Events, reportEvent)

		for _, attendee := range event.Attendees {
			if _, seen := attendeeMinutes[attendee]; !seen {
				attendeeOrder[attendee] = len(attendeeOrder)
			}
			attendeeMinutes[attendee] += minutes
		}
	}

	report.EventCount = len(report.Events)
	sort.Slice(report.Events, func(i, j int) bool {
		return report.Events[i].Start.Before(report.Events[j].Start)
	})

	for _, minutes := range categoryMinutes {
		report.TotalMinutes += minutes
	}

	report.Categories = make([]domain.CategoryTotal, 0, len(categories))
	for _, category := range categories {
		minutes := categoryMinutes[category.ID()]
		report.Categories = append(report.Categories, domain.CategoryTotal{
			ID:         category.ID(),
			Name:       category.Name(),
			Color:      category.Color(),
			Minutes:    minutes,
			Percentage: percentage(minutes, report.TotalMinutes),
		})
	}

	report.DailyData = make([]domain.DailyEntry, 0, len(dailyMinutes))
	for date, minutes := range dailyMinutes {
		report.DailyData = append(report.DailyData, domain.DailyEntry{Date: date, Categories: minutes})
	}
	sort.Slice(report.DailyData, func(i, j int) bool {
		return report.DailyData[i].Date < report.DailyData[j].Date
	})

	report.TopAttendees = topAttendees(attendeeMinutes, attendeeOrder, report.TotalMinutes)
	return report, nil
}

// backfillAssignments categorizes events that have no assignment yet.
// Failures are logged; the report falls back to what is stored.
func (a *Aggregator) backfillAssignments(ctx context.Context, userID uuid.UUID, events []calendardomain.Event, assignments map[string]uuid.UUID) {
	var pending []string
	for _, event := range events {
		if event.AllDay {
			continue
		}
		if _, ok := assignments[event.ID]; !ok {
			pending = append(pending, event.ID)
		}
	}
	if len(pending) == 0 {
		return
	}

	classified, err := a.categories.Categorize(ctx, userID, pending)
	if err != nil {
		a.logger.Warn("categorizing report events failed",
			"user_id", userID,
			"events", len(pending),
			"error", err,
		)
		return
	}
	for _, result := range classified {
		assignments[result.EventID] = result.CategoryID
	}
}

// topAttendees ranks attendees by minutes; ties keep the order in which
// attendees were first encountered in the period.
func topAttendees(attendeeMinutes, firstSeen map[string]int, totalMinutes int) []domain.AttendeeTotal {
	attendees := make([]domain.AttendeeTotal, 0, len(attendeeMinutes))
	for email, minutes := range attendeeMinutes {
		attendees = append(attendees, domain.AttendeeTotal{
			Email:      email,
			Name:       strings.SplitN(email, "@", 2)[0],
			Minutes:    minutes,
			Percentage: percentage(minutes, totalMinutes),
		})
	}

	sort.Slice(attendees, func(i, j int) bool {
		if attendees[i].Minutes != attendees[j].Minutes {
			return attendees[i].Minutes > attendees[j].Minutes
		}
		return firstSeen[attendees[i].Email] < firstSeen[attendees[j].Email]
	})

	if len(attendees) > topAttendeeCount {
		attendees = attendees[:topAttendeeCount]
	}
	return attendees
}

func percentage(minutes, totalMinutes int) float64 {
	if totalMinutes == 0 {
		return 0
	}
	return float64(minutes) / float64(totalMinutes) * 100
}
