// Package application implements the categorization pipeline: rule
// matching, title-cache resolution, and AI classification.
package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/categorization/domain"
)

// EventSummary is the slice of a calendar event the pipeline needs.
type EventSummary struct {
	ID            string
	Title         string
	AttendeeCount int
	CalendarName  string
}

// ClassifiedEvent pairs an event with its resolved category.
type ClassifiedEvent struct {
	EventID    string
	CategoryID uuid.UUID
}

// Classifier assigns categories to events that rules and the title
// cache could not resolve.
type Classifier interface {
	ClassifyEvents(ctx context.Context, events []EventSummary, categories []*domain.Category, rules []*domain.Rule) ([]ClassifiedEvent, error)
}

// CategorySuggestion is an AI-proposed category.
type CategorySuggestion struct {
	Name        string
	Description string
	Color       string
}

// CategoryGenerator proposes a category set from a sample of events.
type CategoryGenerator interface {
	GenerateCategories(ctx context.Context, events []EventSummary) ([]CategorySuggestion, error)
}
