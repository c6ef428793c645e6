package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastTrackAPI/handlers"
	"fastTrackAPI/internal/stats"
	"fastTrackAPI/internal/types/challenge"
	"fastTrackAPI/internal/types/fast"
	"fastTrackAPI/services"
	"fastTrackAPI/tests/helpers"
)

// TestChallengeCompletionFlow checks that finishing a challenge flips the
// participant to completed exactly once: the completed_at stamp set on the
// first status read survives later reads unchanged.
func TestChallengeCompletionFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	userService := services.NewUserService(pool, notificationService)
	fastService := services.NewFastService(pool, notificationService)
	challengeService := services.NewChallengeService(pool, fastService, notificationService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_challenge_" + time.Now().Format("20060102150405")

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	wr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(wr, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload)))
	require.Equal(t, http.StatusOK, wr.Code)

	ctx := context.Background()

	// Seed a one-fast challenge covering this week.
	challengeID := uuid.New()
	_, err := pool.Exec(ctx, `
	INSERT INTO challenges (id, name, description, metric_type, target_value, start_date, end_date, is_active, created_at)
	VALUES ($1, 'Test Sprint', 'Complete one fast', $2, 1, NOW() - INTERVAL '1 day', NOW() + INTERVAL '6 days', true, NOW())
	`, challengeID, stats.MetricCompleteFasts)
	require.NoError(t, err)
	defer pool.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, challengeID)

	// Join, then complete a fast inside the challenge window.
	joinReq := mux.SetURLVars(
		authedRequest(http.MethodPost, "/api/v1/challenges/"+challengeID.String()+"/join", nil, clerkID),
		map[string]string{"id": challengeID.String()},
	)
	jr := httptest.NewRecorder()
	challengeHandler.Join(jr, joinReq)
	require.Equal(t, http.StatusCreated, jr.Code, jr.Body.String())

	startFastViaService(t, fastService, clerkID, 16)

	status1 := getChallengeStatus(t, challengeHandler, clerkID, challengeID)
	require.NotNil(t, status1.Participant)
	assert.Equal(t, 1, status1.Participant.Progress)
	assert.True(t, status1.Participant.Completed)
	require.NotNil(t, status1.Participant.CompletedAt)
	assert.InDelta(t, 100, status1.PercentDone, 0.01)

	// A second read recomputes progress but must not move the stamp.
	status2 := getChallengeStatus(t, challengeHandler, clerkID, challengeID)
	require.NotNil(t, status2.Participant)
	assert.True(t, status2.Participant.Completed)
	require.NotNil(t, status2.Participant.CompletedAt)
	assert.WithinDuration(t, *status1.Participant.CompletedAt, *status2.Participant.CompletedAt, time.Second)
}

func getChallengeStatus(t *testing.T, h *handlers.ChallengeHandler, clerkID string, challengeID uuid.UUID) *challenge.Status {
	t.Helper()

	req := mux.SetURLVars(
		authedRequest(http.MethodGet, "/api/v1/challenges/"+challengeID.String()+"/status", nil, clerkID),
		map[string]string{"id": challengeID.String()},
	)
	rr := httptest.NewRecorder()
	h.GetStatus(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var status challenge.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	return &status
}

func startFastViaService(t *testing.T, fastService *services.FastService, clerkID string, hours float64) {
	t.Helper()

	ctx := context.Background()
	started, err := fastService.StartFast(ctx, clerkID, &fast.StartFastRequest{
		StartTime:   time.Now().Add(-time.Duration(hours * float64(time.Hour))).UnixMilli(),
		TargetHours: hours,
		PlanID:      "16-8",
		PlanName:    "16:8",
	})
	require.NoError(t, err)

	_, err = fastService.EndFast(ctx, clerkID, &fast.EndFastRequest{
		FastID:  started.ID,
		EndTime: time.Now().UnixMilli(),
	})
	require.NoError(t, err)
}
