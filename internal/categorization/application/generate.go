package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/categorization/domain"
)

// ErrNoEvents is returned when category generation finds nothing to
// sample from.
var ErrNoEvents = errors.New("no events found")

// generateSampleSize caps how many recent events are shown to the model.
const generateSampleSize = 50

// GenerateCategorySet samples the user's recent events, asks the model
// for a category set, and replaces all previously generated system
// categories. User-created categories are kept.
func (s *Service) GenerateCategorySet(ctx context.Context, userID uuid.UUID) ([]*domain.Category, error) {
	end := time.Now()
	events, err := s.events.FetchRange(ctx, userID, end.Add(-fetchWindow), end)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	sample := make([]EventSummary, 0, generateSampleSize)
	for _, event := range events {
		if len(sample) == generateSampleSize {
			break
		}
		sample = append(sample, EventSummary{
			ID:            event.ID,
			Title:         event.Title,
			AttendeeCount: event.AttendeeCount(),
			CalendarName:  event.CalendarName,
		})
	}

	suggestions, err := s.generator.GenerateCategories(ctx, sample)
	if err != nil {
		return nil, fmt.Errorf("generate categories: %w", err)
	}

	if err := s.categories.DeleteSystemByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("delete system categories: %w", err)
	}

	created := make([]*domain.Category, 0, len(suggestions))
	for i, suggestion := range suggestions {
		category, err := domain.NewCategory(userID, suggestion.Name, suggestion.Color, i, true)
		if err != nil {
			s.logger.Warn("skipping invalid category suggestion", "name", suggestion.Name, "error", err)
			continue
		}
		if err := s.categories.Save(ctx, category); err != nil {
			return nil, fmt.Errorf("save category: %w", err)
		}
		created = append(created, category)
	}
	return created, nil
}
