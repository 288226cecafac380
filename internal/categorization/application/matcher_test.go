package application

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timelens/timelens/internal/categorization/domain"
)

func mustRule(t *testing.T, categoryID uuid.UUID, ruleType domain.RuleType, value string) *domain.Rule {
	t.Helper()
	rule, err := domain.NewRule(categoryID, ruleType, value)
	require.NoError(t, err)
	return rule
}

func TestMatchRules(t *testing.T) {
	meetings := uuid.New()
	focus := uuid.New()

	t.Run("keyword matches substring case-insensitively", func(t *testing.T) {
		rules := []*domain.Rule{mustRule(t, meetings, domain.RuleKeyword, "sync")}
		events := []EventSummary{{ID: "e1", Title: "Weekly SYNC with team"}}

		matches := MatchRules(events, rules)

		assert.Equal(t, meetings, matches["e1"])
	})

	t.Run("exact requires full title equality", func(t *testing.T) {
		rules := []*domain.Rule{mustRule(t, focus, domain.RuleExact, "focus time")}
		events := []EventSummary{
			{ID: "hit", Title: "Focus Time"},
			{ID: "miss", Title: "Focus Time Block"},
		}

		matches := MatchRules(events, rules)

		assert.Equal(t, focus, matches["hit"])
		assert.NotContains(t, matches, "miss")
	})

	t.Run("prefix matches title start", func(t *testing.T) {
		rules := []*domain.Rule{mustRule(t, meetings, domain.RulePrefix, "1on1")}
		events := []EventSummary{
			{ID: "hit", Title: "1on1 with Kim"},
			{ID: "miss", Title: "Prep for 1on1"},
		}

		matches := MatchRules(events, rules)

		assert.Equal(t, meetings, matches["hit"])
		assert.NotContains(t, matches, "miss")
	})

	t.Run("first matching rule wins", func(t *testing.T) {
		rules := []*domain.Rule{
			mustRule(t, meetings, domain.RuleKeyword, "review"),
			mustRule(t, focus, domain.RuleKeyword, "design review"),
		}
		events := []EventSummary{{ID: "e1", Title: "Design Review"}}

		matches := MatchRules(events, rules)

		assert.Equal(t, meetings, matches["e1"])
	})

	t.Run("unmatched events are absent", func(t *testing.T) {
		rules := []*domain.Rule{mustRule(t, meetings, domain.RuleKeyword, "sync")}
		events := []EventSummary{{ID: "e1", Title: "Dentist"}}

		matches := MatchRules(events, rules)

		assert.Empty(t, matches)
	})
}

func TestResolveFromCache(t *testing.T) {
	meetings := uuid.New()

	t.Run("matches on normalized title", func(t *testing.T) {
		cache := map[string]uuid.UUID{"weekly sync": meetings}
		events := []EventSummary{{ID: "e1", Title: "Weekly Sync 2026/08/24 10:00-11:00"}}

		matches := ResolveFromCache(events, cache)

		assert.Equal(t, meetings, matches["e1"])
	})

	t.Run("misses are absent", func(t *testing.T) {
		cache := map[string]uuid.UUID{"weekly sync": meetings}
		events := []EventSummary{{ID: "e1", Title: "Quarterly Planning"}}

		matches := ResolveFromCache(events, cache)

		assert.Empty(t, matches)
	})
}
