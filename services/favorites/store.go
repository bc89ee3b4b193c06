package favorites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"movieverse/models"
	"movieverse/services/identity"
)

var (
	ErrUserIDRequired  = errors.New("user id is required")
	ErrMovieIDRequired = errors.New("movie id is required")
	ErrTitleRequired   = errors.New("title is required")
	ErrDuplicate       = errors.New("movie already in favorites")
	ErrNotFound        = errors.New("favorite not found")
)

// PosterResolver looks up a replacement poster URL for a favorite whose
// stored poster is missing or broken. An empty return means no better
// poster was found.
type PosterResolver interface {
	ResolvePoster(ctx context.Context, title, year, movieID string) (string, error)
}

// Store persists favorites in SQLite. It is the authoritative copy; the
// local cache layer mirrors it for offline reads.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an open favorites database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

const favoriteColumns = "user_id, movie_id, title, poster, year, rating, genre, media_type, runtime, plot, added_at"

func scanEntry(row interface{ Scan(...any) error }) (models.FavoriteEntry, error) {
	var e models.FavoriteEntry
	err := row.Scan(&e.UserID, &e.MovieID, &e.Title, &e.Poster, &e.Year,
		&e.Rating, &e.Genre, &e.MediaType, &e.Runtime, &e.Plot, &e.AddedAt)
	return e, err
}

// Add stores a favorite for the user. Duplicates are rejected first by
// exact movie id, then by case-insensitive title with the same year; in
// both cases the existing entry comes back alongside ErrDuplicate.
func (s *Store) Add(ctx context.Context, entry models.FavoriteEntry) (models.FavoriteEntry, error) {
	entry.UserID = strings.TrimSpace(entry.UserID)
	entry.MovieID = strings.TrimSpace(entry.MovieID)
	entry.Title = strings.TrimSpace(entry.Title)

	if entry.UserID == "" {
		return models.FavoriteEntry{}, ErrUserIDRequired
	}
	if entry.Title == "" {
		return models.FavoriteEntry{}, ErrTitleRequired
	}
	if entry.MovieID == "" {
		id, ok := identity.Resolve(identity.Identity{Title: entry.Title, Year: entry.Year})
		if !ok {
			return models.FavoriteEntry{}, ErrMovieIDRequired
		}
		entry.MovieID = id
	}

	if existing, err := s.getExact(ctx, entry.UserID, entry.MovieID); err == nil {
		return existing, ErrDuplicate
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.FavoriteEntry{}, fmt.Errorf("check duplicate: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+favoriteColumns+" FROM favorites WHERE user_id = ? AND LOWER(TRIM(title)) = ? AND year = ?",
		entry.UserID, strings.ToLower(entry.Title), entry.Year)
	if existing, err := scanEntry(row); err == nil {
		return existing, ErrDuplicate
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.FavoriteEntry{}, fmt.Errorf("check duplicate title: %w", err)
	}

	if entry.AddedAt.IsZero() {
		entry.AddedAt = s.now().UTC()
	}
	entry = withDefaults(entry)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO favorites ("+favoriteColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.UserID, entry.MovieID, entry.Title, entry.Poster, entry.Year,
		entry.Rating, entry.Genre, entry.MediaType, entry.Runtime, entry.Plot, entry.AddedAt)
	if err != nil {
		return models.FavoriteEntry{}, fmt.Errorf("insert favorite: %w", err)
	}

	return entry, nil
}

// List returns the user's favorites, most recently added first.
func (s *Store) List(ctx context.Context, userID string) ([]models.FavoriteEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+favoriteColumns+" FROM favorites WHERE user_id = ? ORDER BY added_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	entries := make([]models.FavoriteEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Remove deletes a favorite, trying progressively looser id forms. The
// stored id and the requesting client's id can disagree on the "tmdb-"
// prefix, and custom ids are not always reconstructible, so the last
// resort for a custom id is matching on its trailing year.
func (s *Store) Remove(ctx context.Context, userID, movieID string) (models.FavoriteEntry, error) {
	userID = strings.TrimSpace(userID)
	movieID = strings.TrimSpace(movieID)
	if userID == "" {
		return models.FavoriteEntry{}, ErrUserIDRequired
	}
	if movieID == "" {
		return models.FavoriteEntry{}, ErrMovieIDRequired
	}

	candidates := []string{movieID}
	if stripped, ok := strings.CutPrefix(movieID, "tmdb-"); ok {
		candidates = append(candidates, stripped)
	} else if identity.IsNumeric(movieID) {
		candidates = append(candidates, "tmdb-"+movieID)
	}

	for _, candidate := range candidates {
		entry, err := s.deleteExact(ctx, userID, candidate)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return models.FavoriteEntry{}, err
		}
	}

	if year, ok := customIDYear(movieID); ok {
		entry, err := s.deleteByYear(ctx, userID, year)
		if err == nil {
			log.Printf("[favorites] removed %s by year %s for user %s", entry.MovieID, year, userID)
			return entry, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return models.FavoriteEntry{}, err
		}
	}

	return models.FavoriteEntry{}, ErrNotFound
}

// ClearAll removes every favorite for the user and returns how many went.
func (s *Store) ClearAll(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ErrUserIDRequired
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("clear favorites: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared favorites: %w", err)
	}
	return int(n), nil
}

// Deduplicate collapses entries that share a lowercase title and year,
// keeping the oldest of each group. Returns how many duplicates went and
// how many entries were examined.
func (s *Store) Deduplicate(ctx context.Context, userID string) (removed, checked int, err error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, 0, ErrUserIDRequired
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, LOWER(TRIM(title)), year FROM favorites WHERE user_id = ? ORDER BY added_at ASC, id ASC",
		userID)
	if err != nil {
		return 0, 0, fmt.Errorf("scan for duplicates: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var doomed []int64
	for rows.Next() {
		var id int64
		var title, year string
		if err := rows.Scan(&id, &title, &year); err != nil {
			return 0, 0, fmt.Errorf("scan duplicate row: %w", err)
		}
		checked++
		key := title + "|" + year
		if seen[key] {
			doomed = append(doomed, id)
			continue
		}
		seen[key] = true
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	for _, id := range doomed {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE id = ?", id); err != nil {
			return len(doomed), checked, fmt.Errorf("delete duplicate: %w", err)
		}
	}

	if len(doomed) > 0 {
		log.Printf("[favorites] removed %d duplicates for user %s", len(doomed), userID)
	}
	return len(doomed), checked, nil
}

// UpdatePosters re-resolves posters for favorites whose poster is missing
// or marked unavailable; checked counts only those entries. Lookups run
// concurrently; a failed lookup skips that entry rather than failing the
// sweep.
func (s *Store) UpdatePosters(ctx context.Context, userID string, resolver PosterResolver) (updated, checked int, err error) {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	type change struct {
		movieID string
		poster  string
	}
	results := make([]change, len(entries))

	p := pool.New().WithMaxGoroutines(4).WithContext(ctx)
	for i, entry := range entries {
		if entry.Poster != "" && entry.Poster != models.FieldUnknown {
			continue
		}
		checked++
		i, entry := i, entry
		p.Go(func(ctx context.Context) error {
			poster, err := resolver.ResolvePoster(ctx, entry.Title, entry.Year, entry.MovieID)
			if err != nil {
				log.Printf("[favorites] poster lookup failed for %q: %v", entry.Title, err)
				return nil
			}
			if poster != "" && poster != models.FieldUnknown {
				results[i] = change{movieID: entry.MovieID, poster: poster}
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return 0, checked, fmt.Errorf("resolve posters: %w", err)
	}

	for _, c := range results {
		if c.movieID == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			"UPDATE favorites SET poster = ? WHERE user_id = ? AND movie_id = ?",
			c.poster, userID, c.movieID); err != nil {
			return updated, checked, fmt.Errorf("update poster: %w", err)
		}
		updated++
	}

	return updated, checked, nil
}

func (s *Store) getExact(ctx context.Context, userID, movieID string) (models.FavoriteEntry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+favoriteColumns+" FROM favorites WHERE user_id = ? AND movie_id = ?",
		userID, movieID)
	return scanEntry(row)
}

func (s *Store) deleteExact(ctx context.Context, userID, movieID string) (models.FavoriteEntry, error) {
	entry, err := s.getExact(ctx, userID, movieID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FavoriteEntry{}, ErrNotFound
	}
	if err != nil {
		return models.FavoriteEntry{}, fmt.Errorf("find favorite: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = ? AND movie_id = ?", userID, entry.MovieID); err != nil {
		return models.FavoriteEntry{}, fmt.Errorf("delete favorite: %w", err)
	}
	return entry, nil
}

func (s *Store) deleteByYear(ctx context.Context, userID, year string) (models.FavoriteEntry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+favoriteColumns+" FROM favorites WHERE user_id = ? AND year = ? ORDER BY added_at ASC, id ASC LIMIT 1",
		userID, year)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FavoriteEntry{}, ErrNotFound
	}
	if err != nil {
		return models.FavoriteEntry{}, fmt.Errorf("find favorite by year: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = ? AND movie_id = ?", userID, entry.MovieID); err != nil {
		return models.FavoriteEntry{}, fmt.Errorf("delete favorite: %w", err)
	}
	return entry, nil
}

// customIDYear extracts the trailing year segment of a "custom-" id.
func customIDYear(movieID string) (string, bool) {
	if !strings.HasPrefix(movieID, "custom-") {
		return "", false
	}
	idx := strings.LastIndex(movieID, "-")
	year := movieID[idx+1:]
	if len(year) != 4 || !identity.IsNumeric(year) {
		return "", false
	}
	return year, true
}

func withDefaults(entry models.FavoriteEntry) models.FavoriteEntry {
	if entry.Poster == "" {
		entry.Poster = models.FieldUnknown
	}
	if entry.Year == "" {
		entry.Year = models.FieldUnknown
	}
	if entry.Rating == "" {
		entry.Rating = models.FieldUnknown
	}
	if entry.Genre == "" {
		entry.Genre = models.FieldUnknown
	}
	if entry.MediaType == "" {
		entry.MediaType = models.DefaultMediaType
	}
	if entry.Runtime == "" {
		entry.Runtime = models.FieldUnknown
	}
	if entry.Plot == "" {
		entry.Plot = models.FieldUnknown
	}
	return entry
}
