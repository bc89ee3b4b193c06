package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"movieverse/config"
	"movieverse/services/metadata"
)

// SettingsHandler exposes the persisted configuration. The JWT secret never
// leaves the server and survives updates that omit it.
type SettingsHandler struct {
	Manager         *config.Manager
	MetadataService *metadata.Service
}

func NewSettingsHandler(m *config.Manager, ms *metadata.Service) *SettingsHandler {
	return &SettingsHandler{Manager: m, MetadataService: ms}
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Manager.Load()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "failed to load settings",
		})
		return
	}
	s.Auth.JWTSecret = ""
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.Manager.Load()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "failed to load settings",
		})
		return
	}

	var s config.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "invalid settings payload",
		})
		return
	}

	// Clients never see the secret, so an empty value means "keep".
	if s.Auth.JWTSecret == "" {
		s.Auth.JWTSecret = current.Auth.JWTSecret
	}

	if err := h.Manager.Save(s); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "failed to save settings",
		})
		return
	}

	h.reloadServices(s)

	s.Auth.JWTSecret = ""
	writeJSON(w, http.StatusOK, s)
}

// reloadServices reloads services that cache configuration at startup
func (h *SettingsHandler) reloadServices(s config.Settings) {
	if h.MetadataService != nil {
		h.MetadataService.UpdateAPIKeys(metadata.Config{
			OMDBAPIKey:    s.Metadata.OMDBAPIKey,
			TMDBAPIKey:    s.Metadata.TMDBAPIKey,
			YouTubeAPIKey: s.Metadata.YouTubeAPIKey,
			CacheTTL:      time.Duration(s.Metadata.CacheTTLHours) * time.Hour,
		})
		log.Printf("[settings] reloaded metadata service API keys")
	}
}

// ClearMetadataCache drops all cached upstream metadata responses.
func (h *SettingsHandler) ClearMetadataCache(w http.ResponseWriter, r *http.Request) {
	if h.MetadataService == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "metadata service not available",
		})
		return
	}
	h.MetadataService.ClearCache()
	log.Printf("[settings] metadata cache cleared by user request")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Metadata cache cleared",
	})
}
