package search

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"moviefinder/internal/domain"
)

const defaultPage = 1

// Normalize canonicalizes raw search input. Title is trimmed, NFC-normalized
// and case-folded; page defaults to 1. Non-positive pages are passed through
// and left for the movies API to reject.
func Normalize(raw domain.SearchParams) domain.NormalizedQuery {
	title := ""
	if raw.Title != nil {
		title = normalizeTitle(*raw.Title)
	}
	page := defaultPage
	if raw.Page != nil {
		page = *raw.Page
	}
	return domain.NormalizedQuery{Title: title, Page: page}
}

func normalizeTitle(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	// cases.Caser is stateful, so a fresh one is built per call.
	return norm.NFC.String(cases.Fold().String(value))
}

// CacheKey derives the result cache key for q, e.g. "water::1".
func CacheKey(q domain.NormalizedQuery) string {
	return q.Title + "::" + strconv.Itoa(q.Page)
}
