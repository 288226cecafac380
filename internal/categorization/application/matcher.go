package application

import (
	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/categorization/domain"
)

// MatchRules applies the ordered rule list to each event title and
// returns the matches. The first matching rule wins; unmatched events
// are simply absent from the result.
func MatchRules(events []EventSummary, rules []*domain.Rule) map[string]uuid.UUID {
	matches := make(map[string]uuid.UUID)

	for _, event := range events {
		for _, rule := range rules {
			if rule.Matches(event.Title) {
				matches[event.ID] = rule.CategoryID()
				break
			}
		}
	}

	return matches
}

// ResolveFromCache looks up each event's normalized title in the
// title-category cache.
func ResolveFromCache(events []EventSummary, cache map[string]uuid.UUID) map[string]uuid.UUID {
	matches := make(map[string]uuid.UUID)

	for _, event := range events {
		normalized := domain.NormalizeTitle(event.Title)
		if categoryID, ok := cache[normalized]; ok {
			matches[event.ID] = categoryID
		}
	}

	return matches
}
