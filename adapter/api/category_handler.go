package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	categorizationapp "github.com/timelens/timelens/internal/categorization/application"
	categorizationdomain "github.com/timelens/timelens/internal/categorization/domain"
)

// CategorizationService manages categories, rules, and the
// categorization pipeline.
type CategorizationService interface {
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*categorizationdomain.Category, error)
	CreateCategory(ctx context.Context, userID uuid.UUID, name, color string) (*categorizationdomain.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID uuid.UUID, update categorizationapp.CategoryUpdate) error
	DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) error
	ListRules(ctx context.Context, userID, categoryID uuid.UUID) ([]*categorizationdomain.Rule, error)
	AddRule(ctx context.Context, userID, categoryID uuid.UUID, ruleType categorizationdomain.RuleType, ruleValue string) (*categorizationdomain.Rule, error)
	DeleteRule(ctx context.Context, userID, categoryID, ruleID uuid.UUID) error
	GenerateCategorySet(ctx context.Context, userID uuid.UUID) ([]*categorizationdomain.Category, error)
	Categorize(ctx context.Context, userID uuid.UUID, eventIDs []string) ([]categorizationapp.ClassifiedEvent, error)
}

// CategoryHandler serves category, rule, and categorization endpoints.
type CategoryHandler struct {
	service CategorizationService
	logger  *slog.Logger
}

// NewCategoryHandler creates the category handler.
func NewCategoryHandler(service CategorizationService, logger *slog.Logger) *CategoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryHandler{service: service, logger: logger}
}

// List returns the user's categories in sort order.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	categories, err := h.service.ListCategories(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing categories failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categoriesPayload(categories)})
}

// Create adds a user category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	var body struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.service.CreateCategory(r.Context(), userID, body.Name, body.Color)
	switch {
	case errors.Is(err, categorizationdomain.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "name is required")
	case err != nil:
		h.logger.Error("creating category failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not create category")
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"category": categoryPayload(category)})
	}
}

// Update applies a partial category update.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	categoryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var body struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := categorizationapp.CategoryUpdate{Name: body.Name, Color: body.Color}
	switch err := h.service.UpdateCategory(r.Context(), userID, categoryID, update); {
	case errors.Is(err, categorizationdomain.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, categorizationdomain.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "name cannot be empty")
	case err != nil:
		h.logger.Error("updating category failed", "category_id", categoryID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update category")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// Delete removes a category with its rules and assignments.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	categoryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	switch err := h.service.DeleteCategory(r.Context(), userID, categoryID); {
	case errors.Is(err, categorizationdomain.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case err != nil:
		h.logger.Error("deleting category failed", "category_id", categoryID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete category")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// ListRules returns a category's matching rules.
func (h *CategoryHandler) ListRules(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	categoryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	rules, err := h.service.ListRules(r.Context(), userID, categoryID)
	switch {
	case errors.Is(err, categorizationdomain.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case err != nil:
		h.logger.Error("listing rules failed", "category_id", categoryID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list rules")
	default:
		payload := make([]map[string]any, 0, len(rules))
		for _, rule := range rules {
			payload = append(payload, rulePayload(rule))
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": payload})
	}
}

// AddRule attaches a matching rule to a category.
func (h *CategoryHandler) AddRule(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	categoryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var body struct {
		RuleType  string `json:"ruleType"`
		RuleValue string `json:"ruleValue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.service.AddRule(r.Context(), userID, categoryID, categorizationdomain.RuleType(body.RuleType), body.RuleValue)
	switch {
	case errors.Is(err, categorizationdomain.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, categorizationdomain.ErrInvalidRuleType),
		errors.Is(err, categorizationdomain.ErrEmptyRuleValue):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("adding rule failed", "category_id", categoryID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not add rule")
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"rule": rulePayload(rule)})
	}
}

// DeleteRule removes a rule from a category.
func (h *CategoryHandler) DeleteRule(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	categoryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	ruleID, err := uuid.Parse(r.PathValue("ruleId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	switch err := h.service.DeleteRule(r.Context(), userID, categoryID, ruleID); {
	case errors.Is(err, categorizationdomain.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case err != nil:
		h.logger.Error("deleting rule failed", "rule_id", ruleID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete rule")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// Generate replaces the AI-generated categories with a fresh set
// proposed from the user's recent events.
func (h *CategoryHandler) Generate(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	categories, err := h.service.GenerateCategorySet(r.Context(), userID)
	switch {
	case errors.Is(err, categorizationapp.ErrNoEvents):
		writeError(w, http.StatusBadRequest, "no recent events to analyze")
	case err != nil:
		h.logger.Error("generating categories failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not generate categories")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"categories": categoriesPayload(categories)})
	}
}

// Categorize runs the pipeline over the given event IDs.
func (h *CategoryHandler) Categorize(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	var body struct {
		EventIDs []string `json:"eventIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := h.service.Categorize(r.Context(), userID, body.EventIDs)
	switch {
	case errors.Is(err, categorizationdomain.ErrNoCategories):
		writeError(w, http.StatusBadRequest, "no categories defined")
	case err != nil:
		h.logger.Error("categorization failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not categorize events")
	default:
		payload := make([]map[string]string, 0, len(results))
		for _, result := range results {
			payload = append(payload, map[string]string{
				"eventId":    result.EventID,
				"categoryId": result.CategoryID.String(),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": payload})
	}
}

func categoriesPayload(categories []*categorizationdomain.Category) []map[string]any {
	payload := make([]map[string]any, 0, len(categories))
	for _, category := range categories {
		payload = append(payload, categoryPayload(category))
	}
	return payload
}

func categoryPayload(category *categorizationdomain.Category) map[string]any {
	return map[string]any{
		"id":        category.ID().String(),
		"name":      category.Name(),
		"color":     category.Color(),
		"sortOrder": category.SortOrder(),
		"isSystem":  category.IsSystem(),
	}
}

func rulePayload(rule *categorizationdomain.Rule) map[string]any {
	return map[string]any{
		"id":         rule.ID().String(),
		"categoryId": rule.CategoryID().String(),
		"ruleType":   string(rule.Type()),
		"ruleValue":  rule.Value(),
	}
}
