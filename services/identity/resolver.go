package identity

import (
	"strings"
	"unicode"

	"movieverse/models"
)

// Identity captures the identifying fields of a movie record before
// canonicalization, regardless of which upstream API produced it.
type Identity struct {
	TMDBID string // numeric TMDB identifier as a string, "" when absent
	IMDBID string // tt-prefixed (or other upstream) identifier, "" when absent
	Title  string
	Year   string // 4-digit year string, "" when absent
}

// Resolve derives the canonical identifier for a movie. Precedence, first
// match wins:
//
//  1. TMDB numeric identifier, used as its bare string form.
//  2. IMDb-style identifier, used as-is when it is not the unknown sentinel.
//  3. "custom-<slugged title>-<year|unknown>" when only a title is known.
//
// The same film can resolve to different identifiers depending on which
// source supplied the record; callers compensate with title+year matching.
// The second return value is false when no identifier can be derived.
func Resolve(id Identity) (string, bool) {
	if tmdbID := strings.TrimSpace(id.TMDBID); tmdbID != "" {
		return tmdbID, true
	}

	if imdbID := strings.TrimSpace(id.IMDBID); imdbID != "" && imdbID != models.FieldUnknown {
		return imdbID, true
	}

	if title := strings.TrimSpace(id.Title); title != "" {
		year := strings.TrimSpace(id.Year)
		if year == "" || year == models.FieldUnknown {
			year = "unknown"
		}
		return "custom-" + Slug(title) + "-" + year, true
	}

	return "", false
}

// Slug lowercases a title and strips every non-alphanumeric rune.
func Slug(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// YearOf extracts a 4-digit year from a release date ("2010-07-16" -> "2010").
// Returns "" when the date is empty or malformed.
func YearOf(releaseDate string) string {
	releaseDate = strings.TrimSpace(releaseDate)
	if len(releaseDate) < 4 {
		return ""
	}
	year := releaseDate[:4]
	for _, r := range year {
		if !unicode.IsDigit(r) {
			return ""
		}
	}
	return year
}

// IsNumeric reports whether s consists solely of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.FieldUnknown
	}
	return s
}
