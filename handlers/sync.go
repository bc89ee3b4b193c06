package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"movieverse/services/localcache"
	"movieverse/services/syncer"
)

type syncService interface {
	Status(userID string) (syncer.Status, error)
	Replay(ctx context.Context, userID string) (replayed, failed int, err error)
}

var _ syncService = (*syncer.Reconciler)(nil)

type SyncHandler struct {
	Service syncService
}

func NewSyncHandler(service syncService) *SyncHandler {
	return &SyncHandler{Service: service}
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(mux.Vars(r)["userId"])
	if userID == "" {
		writeFailure(w, http.StatusBadRequest, localcache.ErrUserIDRequired.Error())
		return
	}

	status, err := h.Service.Status(userID)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sync":    status,
	})
}

func (h *SyncHandler) Replay(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(mux.Vars(r)["userId"])
	if userID == "" {
		writeFailure(w, http.StatusBadRequest, localcache.ErrUserIDRequired.Error())
		return
	}

	replayed, failed, err := h.Service.Replay(r.Context(), userID)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	status, err := h.Service.Status(userID)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"replayed": replayed,
		"failed":   failed,
		"sync":     status,
	})
}
