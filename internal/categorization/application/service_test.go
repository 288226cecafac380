package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	calendardomain "github.com/timelens/timelens/internal/calendar/domain"
	"github.com/timelens/timelens/internal/categorization/domain"
)

type mockCategoryRepo struct {
	mock.Mock
}

func (m *mockCategoryRepo) Save(ctx context.Context, category *domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *mockCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if category := args.Get(0); category != nil {
		return category.(*domain.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCategoryRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Category, error) {
	args := m.Called(ctx, userID)
	if categories := args.Get(0); categories != nil {
		return categories.([]*domain.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCategoryRepo) MaxSortOrder(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCategoryRepo) DeleteSystemByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockRuleRepo struct {
	mock.Mock
}

func (m *mockRuleRepo) Save(ctx context.Context, rule *domain.Rule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *mockRuleRepo) FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Rule, error) {
	args := m.Called(ctx, categoryID)
	if rules := args.Get(0); rules != nil {
		return rules.([]*domain.Rule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRuleRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Rule, error) {
	args := m.Called(ctx, userID)
	if rules := args.Get(0); rules != nil {
		return rules.([]*domain.Rule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRuleRepo) Delete(ctx context.Context, id, categoryID uuid.UUID) error {
	args := m.Called(ctx, id, categoryID)
	return args.Error(0)
}

type mockAssignmentRepo struct {
	mock.Mock
}

func (m *mockAssignmentRepo) UpsertAutomatic(ctx context.Context, assignment domain.Assignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *mockAssignmentRepo) UpsertManual(ctx context.Context, assignment domain.Assignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *mockAssignmentRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Assignment, error) {
	args := m.Called(ctx, userID)
	if assignments := args.Get(0); assignments != nil {
		return assignments.([]domain.Assignment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAssignmentRepo) FindManualByUserAndEvents(ctx context.Context, userID uuid.UUID, eventIDs []string) ([]domain.Assignment, error) {
	args := m.Called(ctx, userID, eventIDs)
	if assignments := args.Get(0); assignments != nil {
		return assignments.([]domain.Assignment), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTitleCacheRepo struct {
	mock.Mock
}

func (m *mockTitleCacheRepo) Put(ctx context.Context, userID uuid.UUID, normalizedTitle string, categoryID uuid.UUID) error {
	args := m.Called(ctx, userID, normalizedTitle, categoryID)
	return args.Error(0)
}

func (m *mockTitleCacheRepo) FindByUser(ctx context.Context, userID uuid.UUID) (map[string]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if cache := args.Get(0); cache != nil {
		return cache.(map[string]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEventSource struct {
	mock.Mock
}

func (m *mockEventSource) FetchRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]calendardomain.Event, error) {
	args := m.Called(ctx, userID, start, end)
	if events := args.Get(0); events != nil {
		return events.([]calendardomain.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) ClassifyEvents(ctx context.Context, events []EventSummary, categories []*domain.Category, rules []*domain.Rule) ([]ClassifiedEvent, error) {
	args := m.Called(ctx, events, categories, rules)
	if classified := args.Get(0); classified != nil {
		return classified.([]ClassifiedEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateCategories(ctx context.Context, events []EventSummary) ([]CategorySuggestion, error) {
	args := m.Called(ctx, events)
	if suggestions := args.Get(0); suggestions != nil {
		return suggestions.([]CategorySuggestion), args.Error(1)
	}
	return nil, args.Error(1)
}

type serviceMocks struct {
	categories  *mockCategoryRepo
	rules       *mockRuleRepo
	assignments *mockAssignmentRepo
	titleCache  *mockTitleCacheRepo
	events      *mockEventSource
	classifier  *mockClassifier
	generator   *mockGenerator
}

func newServiceWithMocks() (*Service, *serviceMocks) {
	m := &serviceMocks{
		categories:  new(mockCategoryRepo),
		rules:       new(mockRuleRepo),
		assignments: new(mockAssignmentRepo),
		titleCache:  new(mockTitleCacheRepo),
		events:      new(mockEventSource),
		classifier:  new(mockClassifier),
		generator:   new(mockGenerator),
	}
	service := NewService(m.categories, m.rules, m.assignments, m.titleCache, m.events, m.classifier, m.generator, nil)
	return service, m
}

func mustCategory(t *testing.T, userID uuid.UUID, name string, sortOrder int) *domain.Category {
	t.Helper()
	category, err := domain.NewCategory(userID, name, "#3b82f6", sortOrder, false)
	require.NoError(t, err)
	return category
}

func calEvent(id, title string, attendees int) calendardomain.Event {
	event := calendardomain.Event{
		ID:           id,
		Title:        title,
		Start:        time.Now().Add(-time.Hour),
		End:          time.Now(),
		CalendarName: "Work",
	}
	for i := 0; i < attendees; i++ {
		event.Attendees = append(event.Attendees, "attendee@example.com")
	}
	return event
}

func TestService_Categorize(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("fails when no categories are defined", func(t *testing.T) {
		service, m := newServiceWithMocks()
		m.categories.On("FindByUser", ctx, userID).Return([]*domain.Category{}, nil)

		_, err := service.Categorize(ctx, userID, []string{"e1"})

		assert.ErrorIs(t, err, domain.ErrNoCategories)
	})

	t.Run("returns nothing for an empty request", func(t *testing.T) {
		service, _ := newServiceWithMocks()

		results, err := service.Categorize(ctx, userID, nil)

		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("cascades through rules, cache, and classifier", func(t *testing.T) {
		service, m := newServiceWithMocks()

		meetings := mustCategory(t, userID, "Meetings", 0)
		focus := mustCategory(t, userID, "Focus", 1)
		categories := []*domain.Category{meetings, focus}

		rule, err := domain.NewRule(meetings.ID(), domain.RuleKeyword, "sync")
		require.NoError(t, err)
		rules := []*domain.Rule{rule}

		eventIDs := []string{"by-rule", "by-cache", "by-ai"}

		m.categories.On("FindByUser", ctx, userID).Return(categories, nil)
		m.assignments.On("FindManualByUserAndEvents", ctx, userID, eventIDs).Return([]domain.Assignment{}, nil)
		m.events.On("FetchRange", ctx, userID, mock.Anything, mock.Anything).Return([]calendardomain.Event{
			calEvent("by-rule", "Weekly Sync", 3),
			calEvent("by-cache", "Deep Work Block", 0),
			calEvent("by-ai", "Mystery Meeting", 2),
		}, nil)
		m.rules.On("FindByUser", ctx, userID).Return(rules, nil)
		m.titleCache.On("FindByUser", ctx, userID).Return(map[string]uuid.UUID{
			"deep work block": focus.ID(),
		}, nil)
		m.classifier.On("ClassifyEvents", ctx, mock.MatchedBy(func(events []EventSummary) bool {
			return len(events) == 1 && events[0].ID == "by-ai"
		}), categories, rules).Return([]ClassifiedEvent{
			{EventID: "by-ai", CategoryID: meetings.ID()},
		}, nil)
		m.assignments.On("UpsertAutomatic", ctx, mock.Anything).Return(nil)
		m.titleCache.On("Put", ctx, userID, mock.Anything, mock.Anything).Return(nil)

		results, err := service.Categorize(ctx, userID, eventIDs)

		require.NoError(t, err)
		got := make(map[string]uuid.UUID, len(results))
		for _, result := range results {
			got[result.EventID] = result.CategoryID
		}
		assert.Equal(t, meetings.ID(), got["by-rule"])
		assert.Equal(t, focus.ID(), got["by-cache"])
		assert.Equal(t, meetings.ID(), got["by-ai"])
		m.assignments.AssertNumberOfCalls(t, "UpsertAutomatic", 3)
	})

	t.Run("manual assignments pass through untouched", func(t *testing.T) {
		service, m := newServiceWithMocks()

		meetings := mustCategory(t, userID, "Meetings", 0)
		manualCategory := uuid.New()
		eventIDs := []string{"manual-event"}

		m.categories.On("FindByUser", ctx, userID).Return([]*domain.Category{meetings}, nil)
		m.assignments.On("FindManualByUserAndEvents", ctx, userID, eventIDs).Return([]domain.Assignment{
			{UserID: userID, EventID: "manual-event", CategoryID: manualCategory, IsManual: true},
		}, nil)

		results, err := service.Categorize(ctx, userID, eventIDs)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, manualCategory, results[0].CategoryID)
		m.events.AssertNotCalled(t, "FetchRange")
		m.assignments.AssertNotCalled(t, "UpsertAutomatic")
	})

	t.Run("classifier failure leaves events unassigned", func(t *testing.T) {
		service, m := newServiceWithMocks()

		meetings := mustCategory(t, userID, "Meetings", 0)
		eventIDs := []string{"e1"}

		m.categories.On("FindByUser", ctx, userID).Return([]*domain.Category{meetings}, nil)
		m.assignments.On("FindManualByUserAndEvents", ctx, userID, eventIDs).Return([]domain.Assignment{}, nil)
		m.events.On("FetchRange", ctx, userID, mock.Anything, mock.Anything).Return([]calendardomain.Event{
			calEvent("e1", "Mystery Meeting", 2),
		}, nil)
		m.rules.On("FindByUser", ctx, userID).Return([]*domain.Rule{}, nil)
		m.titleCache.On("FindByUser", ctx, userID).Return(map[string]uuid.UUID{}, nil)
		m.classifier.On("ClassifyEvents", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("model unavailable"))

		results, err := service.Categorize(ctx, userID, eventIDs)

		require.NoError(t, err)
		assert.Empty(t, results)
		m.assignments.AssertNotCalled(t, "UpsertAutomatic")
	})

	t.Run("drops event ids outside the fetch window", func(t *testing.T) {
		service, m := newServiceWithMocks()

		meetings := mustCategory(t, userID, "Meetings", 0)
		eventIDs := []string{"known", "long-gone"}

		rule, err := domain.NewRule(meetings.ID(), domain.RuleKeyword, "sync")
		require.NoError(t, err)

		m.categories.On("FindByUser", ctx, userID).Return([]*domain.Category{meetings}, nil)
		m.assignments.On("FindManualByUserAndEvents", ctx, userID, eventIDs).Return([]domain.Assignment{}, nil)
		m.events.On("FetchRange", ctx, userID, mock.Anything, mock.Anything).Return([]calendardomain.Event{
			calEvent("known", "Weekly Sync", 3),
		}, nil)
		m.rules.On("FindByUser", ctx, userID).Return([]*domain.Rule{rule}, nil)
		m.titleCache.On("FindByUser", ctx, userID).Return(map[string]uuid.UUID{}, nil)
		m.assignments.On("UpsertAutomatic", ctx, mock.Anything).Return(nil)
		m.titleCache.On("Put", ctx, userID, "weekly sync", meetings.ID()).Return(nil)

		results, err := service.Categorize(ctx, userID, eventIDs)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "known", results[0].EventID)
	})

	t.Run("title cache write failure does not fail the request", func(t *testing.T) {
		service, m := newServiceWithMocks()

		meetings := mustCategory(t, userID, "Meetings", 0)
		eventIDs := []string{"e1"}

		rule, err := domain.NewRule(meetings.ID(), domain.RuleKeyword, "sync")
		require.NoError(t, err)

		m.categories.On("FindByUser", ctx, userID).Return([]*domain.Category{meetings}, nil)
		m.assignments.On("FindManualByUserAndEvents", ctx, userID, eventIDs).Return([]domain.Assignment{}, nil)
		m.events.On("FetchRange", ctx, userID, mock.Anything, mock.Anything).Return([]calendardomain.Event{
			calEvent("e1", "Weekly Sync", 3),
		}, nil)
		m.rules.On("FindByUser", ctx, userID).Return([]*domain.Rule{rule}, nil)
		m.titleCache.On("FindByUser", ctx, userID).Return(map[string]uuid.UUID{}, nil)
		m.assignments.On("UpsertAutomatic", ctx, mock.Anything).Return(nil)
		m.titleCache.On("Put", ctx, userID, "weekly sync", meetings.ID()).Return(errors.New("disk full"))

		results, err := service.Categorize(ctx, userID, eventIDs)

		require.NoError(t, err)
		require.Len(t, results, 1)
	})
}

func TestService_Assign(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("stores a manual assignment", func(t *testing.T) {
		service, m := newServiceWithMocks()
		category := mustCategory(t, userID, "Meetings", 0)

		m.categories.On("FindByID", ctx, category.ID()).Return(category, nil)
		m.assignments.On("UpsertManual", ctx, mock.MatchedBy(func(a domain.Assignment) bool {
			return a.EventID == "e1" && a.CategoryID == category.ID() && a.IsManual
		})).Return(nil)

		err := service.Assign(ctx, userID, "e1", category.ID())

		require.NoError(t, err)
		m.assignments.AssertExpectations(t)
	})

	t.Run("rejects categories of other users", func(t *testing.T) {
		service, m := newServiceWithMocks()
		other := mustCategory(t, uuid.New(), "Meetings", 0)

		m.categories.On("FindByID", ctx, other.ID()).Return(other, nil)

		err := service.Assign(ctx, userID, "e1", other.ID())

		assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
		m.assignments.AssertNotCalled(t, "UpsertManual")
	})
}

func TestService_GenerateCategorySet(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("replaces system categories with suggestions", func(t *testing.T) {
		service, m := newServiceWithMocks()

		m.events.On("FetchRange", ctx, userID, mock.Anything, mock.Anything).Return([]calendardomain.Event{
			calEvent("e1", "Weekly Sync", 3),
			calEvent("e2", "Deep Work", 0),
		}, nil)
		m.generator.On("GenerateCategories", ctx, mock.Anything).Return([]CategorySuggestion{
			{Name: "1on1", Color: "#ef4444"},
			{Name: "チームMTG", Color: "#f97316"},
		}, nil)
		m.categories.On("DeleteSystemByUser", ctx, userID).Return(nil)
		m.categories.On("Save", ctx, mock.Anything).Return(nil)

		created, err := service.GenerateCategorySet(ctx, userID)

		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.True(t, created[0].IsSystem())
		assert.Equal(t, 0, created[0].SortOrder())
		assert.Equal(t, 1, created[1].SortOrder())
		m.categories.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("fails when there are no events", func(t *testing.T) {
		service, m := newServiceWithMocks()

		m.events.On("FetchRange", ctx, userID, mock.Anything, mock.Anything).Return([]calendardomain.Event{}, nil)

		_, err := service.GenerateCategorySet(ctx, userID)

		assert.ErrorIs(t, err, ErrNoEvents)
	})
}
