package syncer

import (
	"strings"

	"movieverse/models"
)

// Match finds the favorite entry corresponding to a movie record. Exact
// canonical id equality wins; failing that, a case-insensitive title match
// with the same year catches records whose ids were derived from different
// sources. The year must match exactly, including two unknown years.
func Match(entries []models.FavoriteEntry, rec models.MovieRecord) (models.FavoriteEntry, bool) {
	if rec.CanonicalID != "" {
		for _, e := range entries {
			if e.MovieID == rec.CanonicalID {
				return e, true
			}
		}
	}

	title := strings.ToLower(strings.TrimSpace(rec.Title))
	if title == "" {
		return models.FavoriteEntry{}, false
	}
	for _, e := range entries {
		if strings.ToLower(strings.TrimSpace(e.Title)) == title && e.Year == rec.Year {
			return e, true
		}
	}

	return models.FavoriteEntry{}, false
}
