package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"movieverse/models"
	"movieverse/services/favorites"
	"movieverse/services/syncer"
)

type favoritesService interface {
	Add(ctx context.Context, entry models.FavoriteEntry) (syncer.Result, error)
	List(ctx context.Context, userID string) ([]models.FavoriteEntry, bool, error)
	Remove(ctx context.Context, userID, movieID string) (syncer.Result, error)
	ClearAll(ctx context.Context, userID string) (int, error)
	IsFavorite(ctx context.Context, userID string, rec models.MovieRecord) (bool, models.FavoriteEntry, error)
}

var _ favoritesService = (*syncer.Reconciler)(nil)

type maintenanceService interface {
	UpdatePosters(ctx context.Context, userID string, resolver favorites.PosterResolver) (updated, checked int, err error)
	Deduplicate(ctx context.Context, userID string) (removed, checked int, err error)
}

var _ maintenanceService = (*favorites.Store)(nil)

type FavoritesHandler struct {
	Service     favoritesService
	Maintenance maintenanceService
	Posters     favorites.PosterResolver
}

func NewFavoritesHandler(service favoritesService, maintenance maintenanceService, posters favorites.PosterResolver) *FavoritesHandler {
	return &FavoritesHandler{Service: service, Maintenance: maintenance, Posters: posters}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

const tmdbPosterBase = "https://image.tmdb.org/t/p/w500"

type addFavoriteRequest struct {
	UserID     string `json:"userId"`
	MovieID    string `json:"movieId"`
	Title      string `json:"title"`
	Poster     string `json:"poster"`
	PosterPath string `json:"posterPath"`
	Year       string `json:"year"`
	Rating     string `json:"rating"`
	Genre      string `json:"genre"`
	Type       string `json:"type"`
	Runtime    string `json:"runtime"`
	Plot       string `json:"plot"`
}

// poster picks the usable poster form: a full URL wins, a bare TMDB path
// gets the image host prefixed.
func (req addFavoriteRequest) poster() string {
	if req.Poster != "" && req.Poster != models.FieldUnknown {
		return req.Poster
	}
	if strings.HasPrefix(req.PosterPath, "/") {
		return tmdbPosterBase + req.PosterPath
	}
	if req.PosterPath != "" {
		return req.PosterPath
	}
	return req.Poster
}

func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	entry := models.FavoriteEntry{
		UserID:    req.UserID,
		MovieID:   req.MovieID,
		Title:     req.Title,
		Poster:    req.poster(),
		Year:      req.Year,
		Rating:    req.Rating,
		Genre:     req.Genre,
		MediaType: req.Type,
		Runtime:   req.Runtime,
		Plot:      req.Plot,
	}
	entry.Poster = h.resolvePoster(r.Context(), entry)

	res, err := h.Service.Add(r.Context(), entry)
	if err != nil {
		switch {
		case errors.Is(err, favorites.ErrDuplicate):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":  false,
				"message":  "Movie already in favorites",
				"favorite": res.Entry,
			})
		case errors.Is(err, favorites.ErrUserIDRequired),
			errors.Is(err, favorites.ErrMovieIDRequired),
			errors.Is(err, favorites.ErrTitleRequired):
			writeFailure(w, http.StatusBadRequest, err.Error())
		default:
			writeFailure(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"message":  "Added to favorites",
		"favorite": res.Entry,
		"queued":   res.Queued,
	})
}

// resolvePoster fills in a missing poster at add time by looking the movie
// up in the metadata sources. A failed lookup keeps the placeholder.
func (h *FavoritesHandler) resolvePoster(ctx context.Context, entry models.FavoriteEntry) string {
	if entry.Poster != "" && entry.Poster != models.FieldUnknown {
		return entry.Poster
	}
	if h.Posters == nil || strings.TrimSpace(entry.Title) == "" {
		return entry.Poster
	}

	poster, err := h.Posters.ResolvePoster(ctx, entry.Title, entry.Year, entry.MovieID)
	if err != nil {
		log.Printf("[favorites] add-time poster lookup failed for %q: %v", entry.Title, err)
		return entry.Poster
	}
	if poster == "" || poster == models.FieldUnknown {
		return entry.Poster
	}
	return poster
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(mux.Vars(r)["userId"])

	entries, fromCache, err := h.Service.List(r.Context(), userID)
	if err != nil {
		if errors.Is(err, favorites.ErrUserIDRequired) {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"favorites": entries,
		"count":     len(entries),
		"fromCache": fromCache,
	})
}

func (h *FavoritesHandler) Check(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := strings.TrimSpace(vars["userId"])
	movieID := strings.TrimSpace(vars["movieId"])

	rec := models.MovieRecord{
		CanonicalID: movieID,
		Title:       r.URL.Query().Get("title"),
		Year:        r.URL.Query().Get("year"),
	}

	found, entry, err := h.Service.IsFavorite(r.Context(), userID, rec)
	if err != nil {
		if errors.Is(err, favorites.ErrUserIDRequired) {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	var favorite *models.FavoriteEntry
	if found {
		favorite = &entry
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"isFavorite": found,
		"favorite":   favorite,
	})
}

func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := strings.TrimSpace(vars["userId"])
	movieID := strings.TrimSpace(vars["movieId"])

	res, err := h.Service.Remove(r.Context(), userID, movieID)
	if err != nil {
		switch {
		case errors.Is(err, favorites.ErrNotFound):
			writeFailure(w, http.StatusNotFound, "Favorite not found")
		case errors.Is(err, favorites.ErrUserIDRequired),
			errors.Is(err, favorites.ErrMovieIDRequired):
			writeFailure(w, http.StatusBadRequest, err.Error())
		default:
			writeFailure(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Removed from favorites",
		"favorite": res.Entry,
		"queued":   res.Queued,
	})
}

func (h *FavoritesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(mux.Vars(r)["userId"])

	deleted, err := h.Service.ClearAll(r.Context(), userID)
	if err != nil {
		if errors.Is(err, favorites.ErrUserIDRequired) {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Favorites cleared",
		"deletedCount": deleted,
	})
}

func (h *FavoritesHandler) UpdatePosters(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(mux.Vars(r)["userId"])

	updated, checked, err := h.Maintenance.UpdatePosters(r.Context(), userID, h.Posters)
	if err != nil {
		if errors.Is(err, favorites.ErrUserIDRequired) {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Poster update complete",
		"updatedCount": updated,
		"totalChecked": checked,
	})
}

func (h *FavoritesHandler) CleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(mux.Vars(r)["userId"])

	removed, checked, err := h.Maintenance.Deduplicate(r.Context(), userID)
	if err != nil {
		if errors.Is(err, favorites.ErrUserIDRequired) {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Duplicate cleanup complete",
		"removedCount": removed,
		"totalChecked": checked,
	})
}
