package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"movieverse/handlers"
	"movieverse/models"
	"movieverse/services/favorites"
	"movieverse/services/localcache"
	"movieverse/services/syncer"
)

type staticPosterResolver string

func (p staticPosterResolver) ResolvePoster(context.Context, string, string, string) (string, error) {
	return string(p), nil
}

type countingPosterResolver struct {
	calls  int
	poster string
	err    error
}

func (r *countingPosterResolver) ResolvePoster(context.Context, string, string, string) (string, error) {
	r.calls++
	return r.poster, r.err
}

func newFavoritesHandler(t *testing.T) *handlers.FavoritesHandler {
	t.Helper()
	h, _ := newFavoritesEnv(t, staticPosterResolver("https://example.com/p.jpg"))
	return h
}

func newFavoritesEnv(t *testing.T, posters favorites.PosterResolver) (*handlers.FavoritesHandler, *favorites.Store) {
	t.Helper()
	dir := t.TempDir()

	db, err := favorites.OpenDB(filepath.Join(dir, "favorites.db"))
	if err != nil {
		t.Fatalf("open favorites db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := favorites.NewStore(db)

	cache, err := localcache.New(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	reconciler := syncer.New(store, cache, time.Minute)
	return handlers.NewFavoritesHandler(reconciler, store, posters), store
}

func addFavorite(t *testing.T, h *handlers.FavoritesHandler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/favorites", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Add(rec, req)
	return rec
}

func TestFavoritesAdd(t *testing.T) {
	h := newFavoritesHandler(t)

	rec := addFavorite(t, h, map[string]any{
		"userId":     "u1",
		"movieId":    "603",
		"title":      "The Matrix",
		"posterPath": "/matrix.jpg",
		"year":       "1999",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success  bool                 `json:"success"`
		Favorite models.FavoriteEntry `json:"favorite"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatal("success = false")
	}
	if resp.Favorite.Poster != "https://image.tmdb.org/t/p/w500/matrix.jpg" {
		t.Fatalf("poster path not expanded: %q", resp.Favorite.Poster)
	}
}

func TestFavoritesAddResolvesMissingPoster(t *testing.T) {
	resolver := &countingPosterResolver{poster: "https://example.com/resolved.jpg"}
	h, store := newFavoritesEnv(t, resolver)

	rec := addFavorite(t, h, map[string]any{
		"userId":  "u1",
		"movieId": "603",
		"title":   "The Matrix",
		"year":    "1999",
		"poster":  "N/A",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver calls = %d, want 1", resolver.calls)
	}

	var resp struct {
		Favorite models.FavoriteEntry `json:"favorite"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Favorite.Poster != "https://example.com/resolved.jpg" {
		t.Fatalf("poster = %q, want resolved url", resp.Favorite.Poster)
	}

	// The resolved poster is what gets persisted, not the placeholder.
	list, err := store.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(list) != 1 || list[0].Poster != "https://example.com/resolved.jpg" {
		t.Fatalf("stored entry = %+v", list)
	}
}

func TestFavoritesAddKeepsPlaceholderWhenLookupFails(t *testing.T) {
	resolver := &countingPosterResolver{err: errors.New("upstream down")}
	h, _ := newFavoritesEnv(t, resolver)

	rec := addFavorite(t, h, map[string]any{
		"userId":  "u1",
		"movieId": "603",
		"title":   "The Matrix",
		"year":    "1999",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver calls = %d, want 1", resolver.calls)
	}

	var resp struct {
		Favorite models.FavoriteEntry `json:"favorite"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Favorite.Poster != "N/A" {
		t.Fatalf("poster = %q, want placeholder", resp.Favorite.Poster)
	}
}

func TestFavoritesAddKeepsProvidedPoster(t *testing.T) {
	resolver := &countingPosterResolver{poster: "https://example.com/resolved.jpg"}
	h, _ := newFavoritesEnv(t, resolver)

	rec := addFavorite(t, h, map[string]any{
		"userId":  "u1",
		"movieId": "603",
		"title":   "The Matrix",
		"year":    "1999",
		"poster":  "https://example.com/original.jpg",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver calls = %d, want 0", resolver.calls)
	}
}

func TestFavoritesAddDuplicate(t *testing.T) {
	h := newFavoritesHandler(t)

	body := map[string]any{"userId": "u1", "movieId": "603", "title": "The Matrix", "year": "1999"}
	if rec := addFavorite(t, h, body); rec.Code != http.StatusCreated {
		t.Fatalf("first add: %d", rec.Code)
	}

	rec := addFavorite(t, h, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate add status = %d", rec.Code)
	}

	var resp struct {
		Success  bool                 `json:"success"`
		Message  string               `json:"message"`
		Favorite models.FavoriteEntry `json:"favorite"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Message != "Movie already in favorites" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Favorite.MovieID != "603" {
		t.Fatalf("existing entry not attached: %+v", resp.Favorite)
	}
}

func TestFavoritesAddMissingUser(t *testing.T) {
	h := newFavoritesHandler(t)

	rec := addFavorite(t, h, map[string]any{"movieId": "603", "title": "The Matrix"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestFavoritesListAndCount(t *testing.T) {
	h := newFavoritesHandler(t)

	addFavorite(t, h, map[string]any{"userId": "u1", "movieId": "603", "title": "The Matrix", "year": "1999"})
	addFavorite(t, h, map[string]any{"userId": "u1", "movieId": "604", "title": "Reloaded", "year": "2003"})

	req := httptest.NewRequest(http.MethodGet, "/api/favorites/u1", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "u1"})
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Success   bool                   `json:"success"`
		Favorites []models.FavoriteEntry `json:"favorites"`
		Count     int                    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Favorites) != 2 {
		t.Fatalf("count = %d, entries = %d", resp.Count, len(resp.Favorites))
	}
}

func TestFavoritesCheck(t *testing.T) {
	h := newFavoritesHandler(t)

	addFavorite(t, h, map[string]any{"userId": "u1", "movieId": "27205", "title": "Inception", "year": "2010"})

	// Different id, same title and year: strategy B reports a match.
	req := httptest.NewRequest(http.MethodGet, "/api/favorites/u1/check/tt1375666?title=Inception&year=2010", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "u1", "movieId": "tt1375666"})
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	var resp struct {
		Success    bool                  `json:"success"`
		IsFavorite bool                  `json:"isFavorite"`
		Favorite   *models.FavoriteEntry `json:"favorite"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.IsFavorite || resp.Favorite == nil || resp.Favorite.MovieID != "27205" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// Unknown movie: favorite is null, not an error.
	req = httptest.NewRequest(http.MethodGet, "/api/favorites/u1/check/999", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "u1", "movieId": "999"})
	rec = httptest.NewRecorder()
	h.Check(rec, req)

	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.IsFavorite || resp.Favorite != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestFavoritesRemove(t *testing.T) {
	h := newFavoritesHandler(t)

	addFavorite(t, h, map[string]any{"userId": "u1", "movieId": "550", "title": "Fight Club", "year": "1999"})

	// Prefixed id removes the bare stored entry.
	req := httptest.NewRequest(http.MethodDelete, "/api/favorites/u1/tmdb-550", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "u1", "movieId": "tmdb-550"})
	rec := httptest.NewRecorder()
	h.Remove(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Removing again is a 404 with the expected envelope.
	rec = httptest.NewRecorder()
	h.Remove(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Message != "Favorite not found" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestFavoritesClear(t *testing.T) {
	h := newFavoritesHandler(t)

	addFavorite(t, h, map[string]any{"userId": "u1", "movieId": "603", "title": "The Matrix", "year": "1999"})

	req := httptest.NewRequest(http.MethodDelete, "/api/favorites/u1/clear", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "u1"})
	rec := httptest.NewRecorder()
	h.Clear(rec, req)

	var resp struct {
		Success      bool `json:"success"`
		DeletedCount int  `json:"deletedCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.DeletedCount != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// Clearing an empty set reports zero.
	rec = httptest.NewRecorder()
	h.Clear(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.DeletedCount != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestFavoritesUpdatePosters(t *testing.T) {
	h, store := newFavoritesEnv(t, staticPosterResolver("https://example.com/p.jpg"))

	addFavorite(t, h, map[string]any{
		"userId": "u1", "movieId": "603", "title": "The Matrix",
		"posterPath": "/matrix.jpg", "year": "1999",
	})
	// Seed a broken entry directly; the handler would repair it at add time.
	_, err := store.Add(context.Background(), models.FavoriteEntry{
		UserID: "u1", MovieID: "604", Title: "Reloaded", Year: "2003", Poster: "N/A",
	})
	if err != nil {
		t.Fatalf("seed favorite: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/favorites/update-posters/u1", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "u1"})
	rec := httptest.NewRecorder()
	h.UpdatePosters(rec, req)

	var resp struct {
		Success      bool `json:"success"`
		UpdatedCount int  `json:"updatedCount"`
		TotalChecked int  `json:"totalChecked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Only the placeholder entry is examined; the intact one is skipped.
	if !resp.Success || resp.UpdatedCount != 1 || resp.TotalChecked != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestFavoritesCleanupDuplicates(t *testing.T) {
	h := newFavoritesHandler(t)

	addFavorite(t, h, map[string]any{"userId": "u1", "movieId": "1", "title": "Dune", "year": "2021"})
	addFavorite(t, h, map[string]any{"userId": "u1", "movieId": "2", "title": "Solaris", "year": "1972"})

	req := httptest.NewRequest(http.MethodPost, "/api/favorites/u1/cleanup-duplicates", nil)
	req = mux.SetURLVars(req, map[string]string{"userId": "u1"})
	rec := httptest.NewRecorder()
	h.CleanupDuplicates(rec, req)

	var resp struct {
		Success      bool `json:"success"`
		RemovedCount int  `json:"removedCount"`
		TotalChecked int  `json:"totalChecked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.RemovedCount != 0 || resp.TotalChecked != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
