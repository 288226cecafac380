// Package domain contains categories, matching rules, and event
// assignments.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoCategories     = errors.New("no categories defined")
	ErrCategoryNotFound = errors.New("category not found")
	ErrEmptyName        = errors.New("category name cannot be empty")
	ErrEmptyRuleValue   = errors.New("rule value cannot be empty")
	ErrInvalidRuleType  = errors.New("invalid rule type")
)

// Category is a user-defined bucket for time allocation. System
// categories are AI-generated and replaced wholesale on regeneration.
type Category struct {
	id        uuid.UUID
	userID    uuid.UUID
	name      string
	color     string
	sortOrder int
	isSystem  bool
	createdAt time.Time
}

// NewCategory creates a category.
func NewCategory(userID uuid.UUID, name, color string, sortOrder int, isSystem bool) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	return &Category{
		id:        uuid.New(),
		userID:    userID,
		name:      name,
		color:     color,
		sortOrder: sortOrder,
		isSystem:  isSystem,
		createdAt: time.Now().UTC(),
	}, nil
}

// RehydrateCategory reconstructs a category from persisted state.
func RehydrateCategory(id, userID uuid.UUID, name, color string, sortOrder int, isSystem bool, createdAt time.Time) *Category {
	return &Category{
		id:        id,
		userID:    userID,
		name:      name,
		color:     color,
		sortOrder: sortOrder,
		isSystem:  isSystem,
		createdAt: createdAt,
	}
}

// Getters
func (c *Category) ID() uuid.UUID        { return c.id }
func (c *Category) UserID() uuid.UUID    { return c.userID }
func (c *Category) Name() string         { return c.name }
func (c *Category) Color() string        { return c.color }
func (c *Category) SortOrder() int       { return c.sortOrder }
func (c *Category) IsSystem() bool       { return c.isSystem }
func (c *Category) CreatedAt() time.Time { return c.createdAt }

// Rename changes the category name.
func (c *Category) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	c.name = name
	return nil
}

// SetColor changes the display color.
func (c *Category) SetColor(color string) {
	c.color = color
}

// RuleType describes how a rule value is matched against a title.
type RuleType string

const (
	RuleKeyword RuleType = "keyword"
	RuleExact   RuleType = "exact"
	RulePrefix  RuleType = "prefix"
)

// IsValid checks whether the rule type is supported.
func (t RuleType) IsValid() bool {
	switch t {
	case RuleKeyword, RuleExact, RulePrefix:
		return true
	default:
		return false
	}
}

// Rule assigns events to a category by title match. Matching is
// case-insensitive; the first matching rule wins.
type Rule struct {
	id         uuid.UUID
	categoryID uuid.UUID
	ruleType   RuleType
	ruleValue  string
	createdAt  time.Time
}

// NewRule creates a matching rule for a category.
func NewRule(categoryID uuid.UUID, ruleType RuleType, ruleValue string) (*Rule, error) {
	if !ruleType.IsValid() {
		return nil, ErrInvalidRuleType
	}
	ruleValue = strings.TrimSpace(ruleValue)
	if ruleValue == "" {
		return nil, ErrEmptyRuleValue
	}

	return &Rule{
		id:         uuid.New(),
		categoryID: categoryID,
		ruleType:   ruleType,
		ruleValue:  ruleValue,
		createdAt:  time.Now().UTC(),
	}, nil
}

// RehydrateRule reconstructs a rule from persisted state.
func RehydrateRule(id, categoryID uuid.UUID, ruleType RuleType, ruleValue string, createdAt time.Time) *Rule {
	return &Rule{
		id:         id,
		categoryID: categoryID,
		ruleType:   ruleType,
		ruleValue:  ruleValue,
		createdAt:  createdAt,
	}
}

// Getters
func (r *Rule) ID() uuid.UUID         { return r.id }
func (r *Rule) CategoryID() uuid.UUID { return r.categoryID }
func (r *Rule) Type() RuleType        { return r.ruleType }
func (r *Rule) Value() string         { return r.ruleValue }
func (r *Rule) CreatedAt() time.Time  { return r.createdAt }

// Matches reports whether the rule matches the given title.
func (r *Rule) Matches(title string) bool {
	titleLower := strings.ToLower(title)
	valueLower := strings.ToLower(r.ruleValue)

	switch r.ruleType {
	case RuleKeyword:
		return strings.Contains(titleLower, valueLower)
	case RuleExact:
		return titleLower == valueLower
	case RulePrefix:
		return strings.HasPrefix(titleLower, valueLower)
	default:
		return false
	}
}
