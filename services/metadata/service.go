package metadata

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"movieverse/models"
	"movieverse/services/identity"
	"movieverse/utils/similarity"
)

var ErrQueryRequired = errors.New("search query is required")

// Config carries the upstream API keys and cache lifetime.
type Config struct {
	OMDBAPIKey    string
	TMDBAPIKey    string
	YouTubeAPIKey string
	CacheTTL      time.Duration
}

// Service aggregates the upstream metadata sources behind one normalized
// API. Responses are cached; every source collapses to models.MovieRecord
// before leaving this package.
type Service struct {
	omdb    *omdbClient
	tmdb    *tmdbClient
	jikan   *jikanClient
	youtube *youtubeClient
	cache   *memoryCache
}

// NewService creates a metadata service from the given configuration.
func NewService(cfg Config) *Service {
	httpc := &http.Client{Timeout: 15 * time.Second}
	return &Service{
		omdb:    newOMDBClient(cfg.OMDBAPIKey, httpc),
		tmdb:    newTMDBClient(cfg.TMDBAPIKey, httpc),
		jikan:   newJikanClient(httpc),
		youtube: newYouTubeClient(cfg.YouTubeAPIKey, httpc),
		cache:   newMemoryCache(cfg.CacheTTL),
	}
}

// UpdateAPIKeys swaps the upstream credentials and drops cached responses
// so fresh data is fetched with the new keys.
func (s *Service) UpdateAPIKeys(cfg Config) {
	httpc := &http.Client{Timeout: 15 * time.Second}
	s.omdb = newOMDBClient(cfg.OMDBAPIKey, httpc)
	s.tmdb = newTMDBClient(cfg.TMDBAPIKey, httpc)
	s.youtube = newYouTubeClient(cfg.YouTubeAPIKey, httpc)
	s.cache.clear()
	log.Printf("[metadata] api keys updated, cache cleared")
}

// ClearCache drops all cached upstream responses.
func (s *Service) ClearCache() {
	s.cache.clear()
}

func (s *Service) cachedRecords(key string) ([]models.MovieRecord, bool) {
	v, ok := s.cache.get(key)
	if !ok {
		return nil, false
	}
	records, ok := v.([]models.MovieRecord)
	return records, ok
}

// Trending returns this week's trending movies.
func (s *Service) Trending(ctx context.Context) ([]models.MovieRecord, error) {
	key := cacheKey("tmdb", "trending")
	if records, ok := s.cachedRecords(key); ok {
		return records, nil
	}

	results, err := s.tmdb.trending(ctx)
	if err != nil {
		return nil, err
	}
	records := normalizeTMDB(results)
	s.cache.set(key, records)
	return records, nil
}

// Search looks movies up across OMDb first, falling back to TMDB when OMDb
// has nothing or is not configured.
func (s *Service) Search(ctx context.Context, query string) ([]models.MovieRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}

	key := cacheKey("search", strings.ToLower(query))
	if records, ok := s.cachedRecords(key); ok {
		return records, nil
	}

	var records []models.MovieRecord
	if s.omdb.isConfigured() {
		results, err := s.omdb.search(ctx, query)
		if err != nil {
			log.Printf("[metadata] omdb search failed, trying tmdb: %v", err)
		}
		for _, r := range results {
			records = append(records, r.Normalize())
		}
	}

	if len(records) == 0 && s.tmdb.isConfigured() {
		results, err := s.tmdb.search(ctx, query)
		if err != nil {
			return nil, err
		}
		records = normalizeTMDB(results)
	}

	s.cache.set(key, records)
	return records, nil
}

// MovieDetails fetches a single movie by identifier. IMDb ids go to OMDb,
// numeric ids to TMDB.
func (s *Service) MovieDetails(ctx context.Context, movieID string) (models.MovieRecord, error) {
	movieID = strings.TrimSpace(movieID)
	if movieID == "" {
		return models.MovieRecord{}, errors.New("movie id is required")
	}

	key := cacheKey("details", movieID)
	if v, ok := s.cache.get(key); ok {
		if rec, ok := v.(models.MovieRecord); ok {
			return rec, nil
		}
	}

	var rec models.MovieRecord
	switch {
	case strings.HasPrefix(movieID, "tt"):
		omdbRec, err := s.omdb.byID(ctx, movieID)
		if err != nil {
			return models.MovieRecord{}, err
		}
		rec = omdbRec.Normalize()
	case identity.IsNumeric(movieID):
		id, _ := strconv.ParseInt(movieID, 10, 64)
		tmdbRec, err := s.tmdb.details(ctx, id)
		if err != nil {
			return models.MovieRecord{}, err
		}
		rec = tmdbRec.Normalize()
	default:
		return models.MovieRecord{}, errors.New("unrecognized movie id format")
	}

	s.cache.set(key, rec)
	return rec, nil
}

// AnimeSearch looks anime up on Jikan.
func (s *Service) AnimeSearch(ctx context.Context, query string) ([]models.MovieRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}

	key := cacheKey("jikan", "search", strings.ToLower(query))
	if records, ok := s.cachedRecords(key); ok {
		return records, nil
	}

	results, err := s.jikan.search(ctx, query)
	if err != nil {
		return nil, err
	}
	records := normalizeJikan(results)
	s.cache.set(key, records)
	return records, nil
}

// TopAnime returns the current top-rated anime.
func (s *Service) TopAnime(ctx context.Context) ([]models.MovieRecord, error) {
	key := cacheKey("jikan", "top")
	if records, ok := s.cachedRecords(key); ok {
		return records, nil
	}

	results, err := s.jikan.top(ctx)
	if err != nil {
		return nil, err
	}
	records := normalizeJikan(results)
	s.cache.set(key, records)
	return records, nil
}

// AnimeDetails fetches a single anime by MyAnimeList id.
func (s *Service) AnimeDetails(ctx context.Context, malID int64) (models.MovieRecord, error) {
	key := cacheKey("jikan", "details", strconv.FormatInt(malID, 10))
	if v, ok := s.cache.get(key); ok {
		if rec, ok := v.(models.MovieRecord); ok {
			return rec, nil
		}
	}

	result, err := s.jikan.details(ctx, malID)
	if err != nil {
		return models.MovieRecord{}, err
	}
	rec := result.Normalize()
	s.cache.set(key, rec)
	return rec, nil
}

// FindTrailer finds a playable trailer for the movie.
func (s *Service) FindTrailer(ctx context.Context, title, year string) (Trailer, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Trailer{}, ErrQueryRequired
	}

	key := cacheKey("trailer", strings.ToLower(title), year)
	if v, ok := s.cache.get(key); ok {
		if trailer, ok := v.(Trailer); ok {
			return trailer, nil
		}
	}

	trailer, err := s.youtube.searchTrailer(ctx, title, year)
	if err != nil {
		return Trailer{}, err
	}
	s.cache.set(key, trailer)
	return trailer, nil
}

// ResolvePoster finds a replacement poster: OMDb by title first, then TMDB
// when the stored id is a bare TMDB number. The OMDb result is only trusted
// when its title actually resembles the stored one. Empty means nothing
// better exists upstream.
func (s *Service) ResolvePoster(ctx context.Context, title, year, movieID string) (string, error) {
	if s.omdb.isConfigured() {
		rec, err := s.omdb.byTitle(ctx, title, year)
		if err == nil && rec.Poster != "" && rec.Poster != models.FieldUnknown && similarity.TitleMatches(rec.Title, title) {
			return rec.Poster, nil
		}
	}

	tmdbID := strings.TrimPrefix(movieID, "tmdb-")
	if identity.IsNumeric(tmdbID) && s.tmdb.isConfigured() {
		id, _ := strconv.ParseInt(tmdbID, 10, 64)
		rec, err := s.tmdb.details(ctx, id)
		if err != nil {
			return "", err
		}
		normalized := rec.Normalize()
		if normalized.PosterURL != models.FieldUnknown {
			return normalized.PosterURL, nil
		}
	}

	return "", nil
}

func normalizeTMDB(results []identity.TMDBRecord) []models.MovieRecord {
	records := make([]models.MovieRecord, 0, len(results))
	for _, r := range results {
		records = append(records, r.Normalize())
	}
	return records
}

func normalizeJikan(results []identity.JikanRecord) []models.MovieRecord {
	records := make([]models.MovieRecord, 0, len(results))
	for _, r := range results {
		records = append(records, r.Normalize())
	}
	return records
}
