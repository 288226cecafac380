package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	calendardomain "github.com/timelens/timelens/internal/calendar/domain"
	"github.com/timelens/timelens/internal/categorization/domain"
)

// fetchWindow is how far back events are fetched when resolving event
// IDs to titles during categorization.
const fetchWindow = 30 * 24 * time.Hour

// EventSource fetches a user's events across all enabled calendars.
type EventSource interface {
	FetchRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]calendardomain.Event, error)
}

// Service orchestrates the categorization pipeline. Events run through
// three tiers: matching rules, the normalized-title cache, and finally
// the AI classifier. Manual assignments pass through untouched.
type Service struct {
	categories  domain.CategoryRepository
	rules       domain.RuleRepository
	assignments domain.AssignmentRepository
	titleCache  domain.TitleCacheRepository
	events      EventSource
	classifier  Classifier
	generator   CategoryGenerator
	logger      *slog.Logger
}

// NewService creates a categorization service.
func NewService(
	categories domain.CategoryRepository,
	rules domain.RuleRepository,
	assignments domain.AssignmentRepository,
	titleCache domain.TitleCacheRepository,
	events EventSource,
	classifier Classifier,
	generator CategoryGenerator,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		categories:  categories,
		rules:       rules,
		assignments: assignments,
		titleCache:  titleCache,
		events:      events,
		classifier:  classifier,
		generator:   generator,
		logger:      logger,
	}
}

// Categorize resolves categories for the given event IDs and persists
// the results. Events already assigned manually keep their category.
// Events the AI cannot classify stay unassigned.
func (s *Service) Categorize(ctx context.Context, userID uuid.UUID, eventIDs []string) ([]ClassifiedEvent, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	categories, err := s.categories.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if len(categories) == 0 {
		return nil, domain.ErrNoCategories
	}

	manual, err := s.assignments.FindManualByUserAndEvents(ctx, userID, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("load manual assignments: %w", err)
	}
	manualByEvent := make(map[string]uuid.UUID, len(manual))
	for _, assignment := range manual {
		manualByEvent[assignment.EventID] = assignment.CategoryID
	}

	var pendingIDs []string
	for _, id := range eventIDs {
		if _, ok := manualByEvent[id]; !ok {
			pendingIDs = append(pendingIDs, id)
		}
	}

	pending, err := s.resolveEventSummaries(ctx, userID, pendingIDs)
	if err != nil {
		return nil, err
	}

	var results []ClassifiedEvent

	if len(pending) > 0 {
		rules, err := s.rules.FindByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}

		// Tier 1: matching rules.
		ruleMatches := MatchRules(pending, rules)
		for eventID, categoryID := range ruleMatches {
			if err := s.storeAutomatic(ctx, userID, eventID, categoryID); err != nil {
				return nil, err
			}
			s.cacheTitle(ctx, userID, titleOf(pending, eventID), categoryID)
			results = append(results, ClassifiedEvent{EventID: eventID, CategoryID: categoryID})
		}

		// Tier 2: normalized-title cache.
		remaining := without(pending, ruleMatches)
		cache, err := s.titleCache.FindByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load title cache: %w", err)
		}
		cacheMatches := ResolveFromCache(remaining, cache)
		for eventID, categoryID := range cacheMatches {
			if err := s.storeAutomatic(ctx, userID, eventID, categoryID); err != nil {
				return nil, err
			}
			results = append(results, ClassifiedEvent{EventID: eventID, CategoryID: categoryID})
		}

		// Tier 3: AI classification. A failed batch leaves the events
		// unassigned; the next categorization attempt retries them.
		remaining = without(remaining, cacheMatches)
		if len(remaining) > 0 {
			classified, err := s.classifier.ClassifyEvents(ctx, remaining, categories, rules)
			if err != nil {
				s.logger.Warn("ai classification failed",
					"user_id", userID,
					"events", len(remaining),
					"error", err,
				)
			} else {
				for _, result := range classified {
					if err := s.storeAutomatic(ctx, userID, result.EventID, result.CategoryID); err != nil {
						return nil, err
					}
					s.cacheTitle(ctx, userID, titleOf(remaining, result.EventID), result.CategoryID)
					results = append(results, result)
				}
			}
		}
	}

	for eventID, categoryID := range manualByEvent {
		results = append(results, ClassifiedEvent{EventID: eventID, CategoryID: categoryID})
	}
	return results, nil
}

// Assign records a manual assignment, overriding any automatic one.
func (s *Service) Assign(ctx context.Context, userID uuid.UUID, eventID string, categoryID uuid.UUID) error {
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	if category == nil || category.UserID() != userID {
		return domain.ErrCategoryNotFound
	}

	return s.assignments.UpsertManual(ctx, domain.NewAssignment(userID, eventID, categoryID, true))
}

// AssignmentsForUser returns all stored assignments as an event to
// category lookup.
func (s *Service) AssignmentsForUser(ctx context.Context, userID uuid.UUID) (map[string]uuid.UUID, error) {
	assignments, err := s.assignments.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byEvent := make(map[string]uuid.UUID, len(assignments))
	for _, assignment := range assignments {
		byEvent[assignment.EventID] = assignment.CategoryID
	}
	return byEvent, nil
}

// resolveEventSummaries maps event IDs to their details by scanning the
// trailing fetch window. IDs outside the window are dropped.
func (s *Service) resolveEventSummaries(ctx context.Context, userID uuid.UUID, eventIDs []string) ([]EventSummary, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	wanted := make(map[string]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = struct{}{}
	}

	end := time.Now()
	events, err := s.events.FetchRange(ctx, userID, end.Add(-fetchWindow), end)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	byID := make(map[string]EventSummary)
	for _, event := range events {
		if _, ok := wanted[event.ID]; !ok {
			continue
		}
		byID[event.ID] = EventSummary{
			ID:            event.ID,
			Title:         event.Title,
			AttendeeCount: event.AttendeeCount(),
			CalendarName:  event.CalendarName,
		}
	}

	// Preserve request order.
	summaries := make([]EventSummary, 0, len(byID))
	for _, id := range eventIDs {
		if summary, ok := byID[id]; ok {
			summaries = append(summaries, summary)
		}
	}
	return summaries, nil
}

func (s *Service) storeAutomatic(ctx context.Context, userID uuid.UUID, eventID string, categoryID uuid.UUID) error {
	if err := s.assignments.UpsertAutomatic(ctx, domain.NewAssignment(userID, eventID, categoryID, false)); err != nil {
		return fmt.Errorf("store assignment for %s: %w", eventID, err)
	}
	return nil
}

// cacheTitle records a title-category pairing. Cache writes are
// best-effort and never fail the categorization.
func (s *Service) cacheTitle(ctx context.Context, userID uuid.UUID, title string, categoryID uuid.UUID) {
	if title == "" {
		return
	}
	normalized := domain.NormalizeTitle(title)
	if normalized == "" {
		return
	}
	if err := s.titleCache.Put(ctx, userID, normalized, categoryID); err != nil {
		s.logger.Warn("title cache write failed", "user_id", userID, "error", err)
	}
}

func titleOf(events []EventSummary, eventID string) string {
	for _, event := range events {
		if event.ID == eventID {
			return event.Title
		}
	}
	return ""
}

func without(events []EventSummary, matched map[string]uuid.UUID) []EventSummary {
	remaining := make([]EventSummary, 0, len(events))
	for _, event := range events {
		if _, ok := matched[event.ID]; !ok {
			remaining = append(remaining, event)
		}
	}
	return remaining
}
