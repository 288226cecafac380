package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/categorization/domain"
)

// CategoryUpdate carries the optional fields of a category update.
// Nil fields are left unchanged.
type CategoryUpdate struct {
	Name  *string
	Color *string
}

// ListCategories returns the user's categories ordered by sort order.
func (s *Service) ListCategories(ctx context.Context, userID uuid.UUID) ([]*domain.Category, error) {
	return s.categories.FindByUser(ctx, userID)
}

// CreateCategory adds a user category after the existing ones.
func (s *Service) CreateCategory(ctx context.Context, userID uuid.UUID, name, color string) (*domain.Category, error) {
	maxOrder, err := s.categories.MaxSortOrder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("max sort order: %w", err)
	}

	category, err := domain.NewCategory(userID, name, color, maxOrder+1, false)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Save(ctx, category); err != nil {
		return nil, fmt.Errorf("save category: %w", err)
	}
	return category, nil
}

// UpdateCategory applies a partial update after verifying ownership.
func (s *Service) UpdateCategory(ctx context.Context, userID, categoryID uuid.UUID, update CategoryUpdate) error {
	category, err := s.ownedCategory(ctx, userID, categoryID)
	if err != nil {
		return err
	}

	if update.Name != nil {
		if err := category.Rename(*update.Name); err != nil {
			return err
		}
	}
	if update.Color != nil {
		category.SetColor(*update.Color)
	}

	return s.categories.Save(ctx, category)
}

// DeleteCategory removes a category and, via the schema, its rules and
// assignments.
func (s *Service) DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	if _, err := s.ownedCategory(ctx, userID, categoryID); err != nil {
		return err
	}
	return s.categories.Delete(ctx, categoryID)
}

// ListRules returns a category's rules in insertion order.
func (s *Service) ListRules(ctx context.Context, userID, categoryID uuid.UUID) ([]*domain.Rule, error) {
	if _, err := s.ownedCategory(ctx, userID, categoryID); err != nil {
		return nil, err
	}
	return s.rules.FindByCategory(ctx, categoryID)
}

// AddRule attaches a matching rule to a category.
func (s *Service) AddRule(ctx context.Context, userID, categoryID uuid.UUID, ruleType domain.RuleType, ruleValue string) (*domain.Rule, error) {
	if _, err := s.ownedCategory(ctx, userID, categoryID); err != nil {
		return nil, err
	}

	rule, err := domain.NewRule(categoryID, ruleType, ruleValue)
	if err != nil {
		return nil, err
	}
	if err := s.rules.Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("save rule: %w", err)
	}
	return rule, nil
}

// DeleteRule removes a rule from a category.
func (s *Service) DeleteRule(ctx context.Context, userID, categoryID, ruleID uuid.UUID) error {
	if _, err := s.ownedCategory(ctx, userID, categoryID); err != nil {
		return err
	}
	return s.rules.Delete(ctx, ruleID, categoryID)
}

func (s *Service) ownedCategory(ctx context.Context, userID, categoryID uuid.UUID) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	if category == nil || category.UserID() != userID {
		return nil, domain.ErrCategoryNotFound
	}
	return category, nil
}
