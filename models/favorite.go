package models

import "time"

// FavoriteEntry is a persisted favorite, denormalized so the list view
// can render without a second metadata lookup. MovieID is the canonical
// identifier at the time of insertion and may be stale relative to a
// newer canonicalization of the same film.
type FavoriteEntry struct {
	UserID    string    `json:"userId"`
	MovieID   string    `json:"movieId"`
	Title     string    `json:"title"`
	Poster    string    `json:"poster"`
	Year      string    `json:"year"`
	Rating    string    `json:"rating"`
	Genre     string    `json:"genre"`
	MediaType string    `json:"type"`
	Runtime   string    `json:"runtime"`
	Plot      string    `json:"plot"`
	AddedAt   time.Time `json:"addedAt"`
}

// Record converts the entry back into the normalized movie shape.
func (f FavoriteEntry) Record() MovieRecord {
	return MovieRecord{
		CanonicalID: f.MovieID,
		Title:       f.Title,
		Year:        f.Year,
		PosterURL:   f.Poster,
		Genre:       f.Genre,
		Rating:      f.Rating,
		MediaType:   f.MediaType,
		Runtime:     f.Runtime,
		Plot:        f.Plot,
	}
}
