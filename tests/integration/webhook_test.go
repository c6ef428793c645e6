package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastTrackAPI/handlers"
	"fastTrackAPI/services"
	"fastTrackAPI/tests/helpers"
)

func TestClerkWebhook_UserLifecycle(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	userService := services.NewUserService(pool, notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_wh_" + time.Now().Format("20060102150405")
	ctx := context.Background()

	// user.created provisions the account
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk",
		bytes.NewReader(helpers.MockClerkWebhookPayload("user.created", clerkID)))
	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	created, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", created.Username)

	// user.updated syncs profile fields
	req = httptest.NewRequest(http.MethodPost, "/webhooks/clerk",
		bytes.NewReader(helpers.MockClerkWebhookPayload("user.updated", clerkID)))
	rr = httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	updated, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "updateduser", updated.Username)
	assert.Equal(t, "Updated", updated.FirstName)

	// user.deleted retires the account
	req = httptest.NewRequest(http.MethodPost, "/webhooks/clerk",
		bytes.NewReader(helpers.MockClerkWebhookPayload("user.deleted", clerkID)))
	rr = httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	_, err = userService.GetUserByClerkID(ctx, clerkID)
	assert.Error(t, err, "deleted user should no longer resolve")
}

func TestClerkWebhook_RejectsBadSignature(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	userService := services.NewUserService(pool, notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "whsec_testsecret")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk",
		bytes.NewReader(helpers.MockClerkWebhookPayload("user.created", "user_test_sig")))
	req.Header.Set("svix-id", "msg_123")
	req.Header.Set("svix-timestamp", "1700000000")
	req.Header.Set("svix-signature", "v1,bogus")

	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
