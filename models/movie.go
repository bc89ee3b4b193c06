package models

// FieldUnknown is the sentinel stored in place of any string field an
// upstream source did not supply. Downstream comparisons rely on it being
// a real string rather than an absent value.
const FieldUnknown = "N/A"

// DefaultMediaType is assumed when a source does not classify the record.
const DefaultMediaType = "movie"

// SourceIDs retains the raw upstream identifiers a record arrived with.
// They are kept for diagnostics and re-matching and are never part of
// equality checks.
type SourceIDs struct {
	TMDBID string `json:"tmdbId,omitempty"`
	IMDBID string `json:"imdbId,omitempty"`
}

// MovieRecord is the single normalized shape every upstream source
// (OMDb, TMDB, Jikan) collapses into before the favorites pipeline sees it.
type MovieRecord struct {
	CanonicalID string    `json:"canonicalId"`
	Title       string    `json:"title"`
	Year        string    `json:"year"`
	PosterURL   string    `json:"posterUrl"`
	Genre       string    `json:"genre"`
	Rating      string    `json:"rating"`
	MediaType   string    `json:"mediaType"`
	Runtime     string    `json:"runtime"`
	Plot        string    `json:"plot"`
	SourceIDs   SourceIDs `json:"sourceIds,omitempty"`
}

// FavoriteFor shapes the record as a favorite entry for the given user.
func (m MovieRecord) FavoriteFor(userID string) FavoriteEntry {
	return FavoriteEntry{
		UserID:    userID,
		MovieID:   m.CanonicalID,
		Title:     m.Title,
		Poster:    m.PosterURL,
		Year:      m.Year,
		Rating:    m.Rating,
		Genre:     m.Genre,
		MediaType: m.MediaType,
		Runtime:   m.Runtime,
		Plot:      m.Plot,
	}
}
