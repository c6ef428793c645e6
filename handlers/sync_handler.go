package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	synctypes "fastTrackAPI/internal/types/sync"
	"fastTrackAPI/middleware"
	"fastTrackAPI/services"
)

type SyncHandler struct {
	syncService *services.SyncService
}

func NewSyncHandler(syncService *services.SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
	}
}

// Push merges the client's offline changes and returns everything that
// changed server-side since the client's last sync.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	// Batches can be large after a long offline stretch.
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req synctypes.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.syncService.Push(ctx, clerkID, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Sync failed")
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// Snapshot returns the full server state, used on fresh installs.
func (h *SyncHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	snapshot, err := h.syncService.Snapshot(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Snapshot failed")
		return
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}
