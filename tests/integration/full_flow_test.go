package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastTrackAPI/handlers"
	"fastTrackAPI/internal/types/fast"
	modelUser "fastTrackAPI/internal/types/user"
	"fastTrackAPI/middleware"
	"fastTrackAPI/services"
	"fastTrackAPI/tests/helpers"
)

// TestFullFastingFlow walks the core loop: sign up via webhook, start a
// fast, end it 16 hours later, and check the streak and badges that fall out.
func TestFullFastingFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	userService := services.NewUserService(pool, notificationService)
	fastService := services.NewFastService(pool, notificationService)
	userHandler := handlers.NewUserHandler(userService)
	fastHandler := handlers.NewFastHandler(fastService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_" + time.Now().Format("20060102150405")

	t.Log("Step 1: User signs up via Clerk webhook")

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req1 := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload))
	rr1 := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr1, req1)
	assert.Equal(t, http.StatusOK, rr1.Code, "Webhook should succeed")

	ctx := context.Background()
	created, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "test.user@example.com", created.Email)

	t.Log("Step 2: User starts a 16h fast")

	startTime := time.Now().Add(-16 * time.Hour).UnixMilli()
	startBody := fmt.Sprintf(`{"startTime": %d, "targetHours": 16, "planId": "16-8", "planName": "16:8"}`, startTime)
	req2 := authedRequest(http.MethodPost, "/api/v1/fasts", strings.NewReader(startBody), clerkID)
	rr2 := httptest.NewRecorder()

	fastHandler.StartFast(rr2, req2)
	require.Equal(t, http.StatusCreated, rr2.Code, rr2.Body.String())

	var started fast.Fast
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &started))
	assert.False(t, started.Completed)

	t.Log("Step 3: A second active fast is rejected")

	req3 := authedRequest(http.MethodPost, "/api/v1/fasts", strings.NewReader(startBody), clerkID)
	rr3 := httptest.NewRecorder()
	fastHandler.StartFast(rr3, req3)
	assert.Equal(t, http.StatusConflict, rr3.Code)

	t.Log("Step 4: User ends the fast at the 16h mark")

	endBody := fmt.Sprintf(`{"fastId": %q, "endTime": %d}`, started.ID, time.Now().UnixMilli())
	req4 := authedRequest(http.MethodPost, "/api/v1/fasts/end", strings.NewReader(endBody), clerkID)
	rr4 := httptest.NewRecorder()

	fastHandler.EndFast(rr4, req4)
	require.Equal(t, http.StatusOK, rr4.Code, rr4.Body.String())

	var ended fast.EndFastResponse
	require.NoError(t, json.Unmarshal(rr4.Body.Bytes(), &ended))
	assert.True(t, ended.Fast.Completed)
	assert.Equal(t, 1, ended.CurrentStreak)
	assert.Contains(t, ended.NewBadges, "first_fast", "first completed fast unlocks the milestone badge")
	assert.Contains(t, ended.NewBadges, "duration_16", "a 16h fast unlocks the 16h badge")
	assert.NotContains(t, ended.NewBadges, "duration_18")

	t.Log("Step 5: Stats reflect the completed fast")

	req5 := authedRequest(http.MethodGet, "/api/v1/user/stats", nil, clerkID)
	rr5 := httptest.NewRecorder()
	userHandler.GetStats(rr5, req5)
	require.Equal(t, http.StatusOK, rr5.Code)

	var userStats struct {
		CurrentStreak int     `json:"current_streak"`
		TotalFasts    int     `json:"total_fasts"`
		TotalHours    float64 `json:"total_hours"`
	}
	require.NoError(t, json.Unmarshal(rr5.Body.Bytes(), &userStats))
	assert.Equal(t, 1, userStats.CurrentStreak)
	assert.Equal(t, 1, userStats.TotalFasts)
	assert.InDelta(t, 16.0, userStats.TotalHours, 0.1)

	t.Log("Step 6: Badges endpoint shows the unlocks")

	req6 := authedRequest(http.MethodGet, "/api/v1/user/badges", nil, clerkID)
	rr6 := httptest.NewRecorder()
	userHandler.GetBadges(rr6, req6)
	require.Equal(t, http.StatusOK, rr6.Code)

	var badges []struct {
		ID       string `json:"id"`
		Unlocked bool   `json:"unlocked"`
	}
	require.NoError(t, json.Unmarshal(rr6.Body.Bytes(), &badges))

	unlocked := map[string]bool{}
	for _, b := range badges {
		unlocked[b.ID] = b.Unlocked
	}
	assert.True(t, unlocked["first_fast"])
	assert.True(t, unlocked["duration_16"])
	assert.False(t, unlocked["streak_3"])
}

// TestUpdateProfileFlow covers the profile update round trip.
func TestUpdateProfileFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	userService := services.NewUserService(pool, notificationService)
	userHandler := handlers.NewUserHandler(userService)

	clerkID := "user_test_" + time.Now().Format("20060102150405.000")
	ctx := context.Background()

	_, err := userService.CreateUser(ctx, &modelUser.CreateUserRequest{
		ClerkID:  clerkID,
		Email:    "testprofile@example.com",
		Username: "testprofile",
	})
	require.NoError(t, err)

	updateData := `{"username": "newusername123", "defaultTargetHours": 18, "goalWeightKg": 72.5}`
	req := authedRequest(http.MethodPut, "/api/v1/user", strings.NewReader(updateData), clerkID)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	userHandler.UpdateProfile(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "newusername123", updated.Username)
	assert.Equal(t, 18.0, updated.DefaultTargetHours)
	require.NotNil(t, updated.GoalWeightKg)
	assert.Equal(t, 72.5, *updated.GoalWeightKg)
}

func authedRequest(method, target string, body *strings.Reader, clerkID string) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID)
	return req.WithContext(ctx)
}
