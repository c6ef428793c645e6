package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"fastTrackAPI/internal/types/coach"
	"fastTrackAPI/middleware"
	"fastTrackAPI/services"
)

// CoachHandler fronts the AI coach. Chat and insights are FastTrack Plus
// features; history is readable by anyone who had Plus before.
type CoachHandler struct {
	coachService *services.CoachService
	userService  *services.UserService
}

func NewCoachHandler(coachService *services.CoachService, userService *services.UserService) *CoachHandler {
	return &CoachHandler{
		coachService: coachService,
		userService:  userService,
	}
}

func (h *CoachHandler) requirePlus(ctx context.Context, w http.ResponseWriter, clerkID string) bool {
	isPlus, err := h.userService.IsPlus(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return false
	}
	if !isPlus {
		respondWithError(w, http.StatusPaymentRequired, "FastTrack Plus required")
		return false
	}
	return true
}

func (h *CoachHandler) Chat(w http.ResponseWriter, r *http.Request) {
	// The model round trip can take well over the usual 5s.
	ctx, cancel := context.WithTimeout(r.Context(), 35*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	if !h.requirePlus(ctx, w, clerkID) {
		return
	}

	var req coach.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.coachService.Chat(ctx, clerkID, &req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *CoachHandler) DailyInsight(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 35*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	if !h.requirePlus(ctx, w, clerkID) {
		return
	}

	insight, err := h.coachService.DailyInsight(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to generate insight")
		return
	}

	respondWithJSON(w, http.StatusOK, insight)
}

func (h *CoachHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	history, err := h.coachService.GetHistory(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}
