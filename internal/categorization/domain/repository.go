package domain

import (
	"context"

	"github.com/google/uuid"
)

// CategoryRepository persists categories.
type CategoryRepository interface {
	Save(ctx context.Context, category *Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	// FindByUser returns the user's categories ordered by sort order.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*Category, error)
	MaxSortOrder(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteSystemByUser removes all AI-generated categories, keeping
	// user-created ones.
	DeleteSystemByUser(ctx context.Context, userID uuid.UUID) error
}

// RuleRepository persists category matching rules.
type RuleRepository interface {
	Save(ctx context.Context, rule *Rule) error
	FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]*Rule, error)
	// FindByUser returns all rules across the user's categories in
	// evaluation order: category sort order, then rule insertion order.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*Rule, error)
	Delete(ctx context.Context, id, categoryID uuid.UUID) error
}

// AssignmentRepository persists event-category assignments.
type AssignmentRepository interface {
	// UpsertAutomatic inserts or updates an assignment but never
	// overwrites a manual one.
	UpsertAutomatic(ctx context.Context, assignment Assignment) error
	// UpsertManual inserts or updates an assignment, marking it manual.
	UpsertManual(ctx context.Context, assignment Assignment) error
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Assignment, error)
	FindManualByUserAndEvents(ctx context.Context, userID uuid.UUID, eventIDs []string) ([]Assignment, error)
}

// TitleCacheRepository persists the normalized-title to category cache.
type TitleCacheRepository interface {
	// Put records a title-category pairing; the latest write wins.
	Put(ctx context.Context, userID uuid.UUID, normalizedTitle string, categoryID uuid.UUID) error
	// FindByUser returns the cache as a lookup map.
	FindByUser(ctx context.Context, userID uuid.UUID) (map[string]uuid.UUID, error)
}
