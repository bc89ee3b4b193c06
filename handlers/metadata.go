package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"movieverse/models"
	"movieverse/services/metadata"
)

type metadataService interface {
	Trending(ctx context.Context) ([]models.MovieRecord, error)
	Search(ctx context.Context, query string) ([]models.MovieRecord, error)
	MovieDetails(ctx context.Context, movieID string) (models.MovieRecord, error)
	AnimeSearch(ctx context.Context, query string) ([]models.MovieRecord, error)
	TopAnime(ctx context.Context) ([]models.MovieRecord, error)
	AnimeDetails(ctx context.Context, malID int64) (models.MovieRecord, error)
	FindTrailer(ctx context.Context, title, year string) (metadata.Trailer, error)
}

var _ metadataService = (*metadata.Service)(nil)

type MetadataHandler struct {
	Service metadataService
}

func NewMetadataHandler(service metadataService) *MetadataHandler {
	return &MetadataHandler{Service: service}
}

func (h *MetadataHandler) Trending(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.Trending(r.Context())
	if err != nil {
		writeFailure(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": records, "count": len(records)})
}

func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		if err == metadata.ErrQueryRequired {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		writeFailure(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": records, "count": len(records)})
}

func (h *MetadataHandler) MovieDetails(w http.ResponseWriter, r *http.Request) {
	movieID := strings.TrimSpace(mux.Vars(r)["movieId"])
	record, err := h.Service.MovieDetails(r.Context(), movieID)
	if err != nil {
		writeFailure(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "movie": record})
}

func (h *MetadataHandler) AnimeSearch(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.AnimeSearch(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		if err == metadata.ErrQueryRequired {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		writeFailure(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": records, "count": len(records)})
}

func (h *MetadataHandler) TopAnime(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.TopAnime(r.Context())
	if err != nil {
		writeFailure(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": records, "count": len(records)})
}

func (h *MetadataHandler) AnimeDetails(w http.ResponseWriter, r *http.Request) {
	malID, err := strconv.ParseInt(mux.Vars(r)["malId"], 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "anime id must be numeric")
		return
	}
	record, err := h.Service.AnimeDetails(r.Context(), malID)
	if err != nil {
		writeFailure(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "anime": record})
}

func (h *MetadataHandler) Trailer(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	year := r.URL.Query().Get("year")

	trailer, err := h.Service.FindTrailer(r.Context(), title, year)
	if err != nil {
		if err == metadata.ErrQueryRequired {
			writeFailure(w, http.StatusBadRequest, "title is required")
			return
		}
		// Lookup failures degrade to an empty result rather than an error page.
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "trailer": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "trailer": trailer})
}
