package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	categorizationapp "github.com/timelens/timelens/internal/categorization/application"
	categorizationdomain "github.com/timelens/timelens/internal/categorization/domain"
)

type mockCategorizationService struct {
	mock.Mock
}

func (m *mockCategorizationService) ListCategories(ctx context.Context, userID uuid.UUID) ([]*categorizationdomain.Category, error) {
	args := m.Called(ctx, userID)
	if categories := args.Get(0); categories != nil {
		return categories.([]*categorizationdomain.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCategorizationService) CreateCategory(ctx context.Context, userID uuid.UUID, name, color string) (*categorizationdomain.Category, error) {
	args := m.Called(ctx, userID, name, color)
	if category := args.Get(0); category != nil {
		return category.(*categorizationdomain.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCategorizationService) UpdateCategory(ctx context.Context, userID, categoryID uuid.UUID, update categorizationapp.CategoryUpdate) error {
	args := m.Called(ctx, userID, categoryID, update)
	return args.Error(0)
}

func (m *mockCategorizationService) DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	args := m.Called(ctx, userID, categoryID)
	return args.Error(0)
}

func (m *mockCategorizationService) ListRules(ctx context.Context, userID, categoryID uuid.UUID) ([]*categorizationdomain.Rule, error) {
	args := m.Called(ctx, userID, categoryID)
	if rules := args.Get(0); rules != nil {
		return rules.([]*categorizationdomain.Rule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCategorizationService) AddRule(ctx context.Context, userID, categoryID uuid.UUID, ruleType categorizationdomain.RuleType, ruleValue string) (*categorizationdomain.Rule, error) {
	args := m.Called(ctx, userID, categoryID, ruleType, ruleValue)
	if rule := args.Get(0); rule != nil {
		return rule.(*categorizationdomain.Rule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCategorizationService) DeleteRule(ctx context.Context, userID, categoryID, ruleID uuid.UUID) error {
	args := m.Called(ctx, userID, categoryID, ruleID)
	return args.Error(0)
}

func (m *mockCategorizationService) GenerateCategorySet(ctx context.Context, userID uuid.UUID) ([]*categorizationdomain.Category, error) {
	args := m.Called(ctx, userID)
	if categories := args.Get(0); categories != nil {
		return categories.([]*categorizationdomain.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCategorizationService) Categorize(ctx context.Context, userID uuid.UUID, eventIDs []string) ([]categorizationapp.ClassifiedEvent, error) {
	args := m.Called(ctx, userID, eventIDs)
	if results := args.Get(0); results != nil {
		return results.([]categorizationapp.ClassifiedEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCategoryHandler_Categorize(t *testing.T) {
	userID := uuid.New()

	t.Run("returns the pipeline results", func(t *testing.T) {
		service := new(mockCategorizationService)
		handler := NewCategoryHandler(service, nil)

		categoryID := uuid.New()
		service.On("Categorize", mock.Anything, userID, []string{"e1", "e2"}).Return([]categorizationapp.ClassifiedEvent{
			{EventID: "e1", CategoryID: categoryID},
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/categorize", strings.NewReader(`{"eventIds": ["e1", "e2"]}`))
		rec := httptest.NewRecorder()

		handler.Categorize(rec, req, userID)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"eventId":"e1"`)
		assert.Contains(t, rec.Body.String(), categoryID.String())
	})

	t.Run("rejects users without categories", func(t *testing.T) {
		service := new(mockCategorizationService)
		handler := NewCategoryHandler(service, nil)

		service.On("Categorize", mock.Anything, userID, mock.Anything).Return(nil, categorizationdomain.ErrNoCategories)

		req := httptest.NewRequest(http.MethodPost, "/api/categorize", strings.NewReader(`{"eventIds": ["e1"]}`))
		rec := httptest.NewRecorder()

		handler.Categorize(rec, req, userID)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCategoryHandler_Create(t *testing.T) {
	userID := uuid.New()

	t.Run("creates a category", func(t *testing.T) {
		service := new(mockCategorizationService)
		handler := NewCategoryHandler(service, nil)

		category, err := categorizationdomain.NewCategory(userID, "Meetings", "#3b82f6", 0, false)
		require.NoError(t, err)
		service.On("CreateCategory", mock.Anything, userID, "Meetings", "#3b82f6").Return(category, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name": "Meetings", "color": "#3b82f6"}`))
		rec := httptest.NewRecorder()

		handler.Create(rec, req, userID)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"Meetings"`)
	})

	t.Run("rejects empty names", func(t *testing.T) {
		service := new(mockCategorizationService)
		handler := NewCategoryHandler(service, nil)

		service.On("CreateCategory", mock.Anything, userID, "", "").Return(nil, categorizationdomain.ErrEmptyName)

		req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		handler.Create(rec, req, userID)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCategoryHandler_Update(t *testing.T) {
	userID := uuid.New()

	t.Run("passes only the provided fields", func(t *testing.T) {
		service := new(mockCategorizationService)
		handler := NewCategoryHandler(service, nil)

		categoryID := uuid.New()
		service.On("UpdateCategory", mock.Anything, userID, categoryID, mock.MatchedBy(func(update categorizationapp.CategoryUpdate) bool {
			return update.Name != nil && *update.Name == "Syncs" && update.Color == nil
		})).Return(nil)

		req := httptest.NewRequest(http.MethodPut, "/api/categories/"+categoryID.String(), strings.NewReader(`{"name": "Syncs"}`))
		req.SetPathValue("id", categoryID.String())
		rec := httptest.NewRecorder()

		handler.Update(rec, req, userID)

		assert.Equal(t, http.StatusOK, rec.Code)
		service.AssertExpectations(t)
	})

	t.Run("maps missing categories to 404", func(t *testing.T) {
		service := new(mockCategorizationService)
		handler := NewCategoryHandler(service, nil)

		categoryID := uuid.New()
		service.On("UpdateCategory", mock.Anything, userID, categoryID, mock.Anything).Return(categorizationdomain.ErrCategoryNotFound)

		req := httptest.NewRequest(http.MethodPut, "/api/categories/"+categoryID.String(), strings.NewReader(`{"name": "X"}`))
		req.SetPathValue("id", categoryID.String())
		rec := httptest.NewRecorder()

		handler.Update(rec, req, userID)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
