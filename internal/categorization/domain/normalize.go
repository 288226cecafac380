package domain

import (
	"regexp"
	"strings"
)

// Patterns stripped during normalization so recurring events with
// embedded dates, times, or counters collapse onto one cache key.
var (
	datePattern    = regexp.MustCompile(`\d{2,4}[/\-]\d{1,2}[/\-]\d{1,2}`)
	timePattern    = regexp.MustCompile(`\d{1,2}:\d{2}(\s*[-~]\s*\d{1,2}:\d{2})?`)
	weekPattern    = regexp.MustCompile(`(?i)week\s*\d+`)
	weekJPPattern  = regexp.MustCompile(`第\d+週`)
	counterPattern = regexp.MustCompile(`\(\d+\)`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// NormalizeTitle canonicalizes an event title for cache lookups:
// lowercased, trimmed, with date/time fragments, week numbers, and
// parenthesized counters removed and whitespace collapsed. The result
// may be empty. Normalizing an already normalized title is a no-op.
func NormalizeTitle(title string) string {
	s := strings.TrimSpace(strings.ToLower(title))
	s = datePattern.ReplaceAllString(s, "")
	s = timePattern.ReplaceAllString(s, "")
	s = weekPattern.ReplaceAllString(s, "")
	s = weekJPPattern.ReplaceAllString(s, "")
	s = counterPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
