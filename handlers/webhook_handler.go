package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"fastTrackAPI/internal/types/clerk"
	"fastTrackAPI/internal/types/user"
	"fastTrackAPI/services"
)

type WebhookHandler struct {
	userService *services.UserService
}

func NewWebhookHandler(userService *services.UserService) *WebhookHandler {
	return &WebhookHandler{
		userService: userService,
	}
}

// HandleClerkWebhook provisions and retires users as Clerk reports account
// lifecycle events.
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 65536))
	if err != nil {
		log.Printf("Error reading webhook body: %v", err)
		http.Error(w, "Error reading body", http.StatusBadRequest)
		return
	}

	if !verifyClerkSignature(r, body) {
		log.Println("Invalid webhook signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event clerk.ClerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		http.Error(w, "Error parsing webhook", http.StatusBadRequest)
		return
	}

	log.Printf("Received webhook event: %s", event.Type)

	ctx := r.Context()
	switch event.Type {
	case "user.created":
		if err := h.handleUserCreated(ctx, event.Data); err != nil {
			log.Printf("Error handling user.created: %v", err)
			http.Error(w, "Error processing webhook", http.StatusInternalServerError)
			return
		}

	case "user.updated":
		if err := h.handleUserUpdated(ctx, event.Data); err != nil {
			log.Printf("Error handling user.updated: %v", err)
			http.Error(w, "Error processing webhook", http.StatusInternalServerError)
			return
		}

	case "user.deleted":
		if err := h.handleUserDeleted(ctx, event.Data); err != nil {
			log.Printf("Error handling user.deleted: %v", err)
			http.Error(w, "Error processing webhook", http.StatusInternalServerError)
			return
		}

	default:
		log.Printf("Unhandled webhook event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"success": true}`))
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var userData clerk.UserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	username := ""
	if userData.Username != nil {
		username = *userData.Username
	}
	firstName := ""
	if userData.FirstName != nil {
		firstName = *userData.FirstName
	}
	lastName := ""
	if userData.LastName != nil {
		lastName = *userData.LastName
	}
	if username == "" {
		username = firstName + lastName
	}

	createReq := &user.CreateUserRequest{
		ClerkID:   userData.ID,
		Email:     userData.PrimaryEmail(),
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		ImageURL:  userData.ImageURL,
	}

	if _, err := h.userService.CreateUser(ctx, createReq); err != nil {
		return fmt.Errorf("failed to create user in database: %w", err)
	}
	return nil
}

func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	var userData clerk.UserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	req := &user.UpdateProfileRequest{ImageURL: userData.ImageURL}
	if userData.Username != nil {
		req.Username = *userData.Username
	}
	if userData.FirstName != nil {
		req.FirstName = *userData.FirstName
	}
	if userData.LastName != nil {
		req.LastName = *userData.LastName
	}

	if _, err := h.userService.UpdateProfileByClerkID(ctx, userData.ID, req); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var deleted clerk.DeletedData
	if err := json.Unmarshal(data, &deleted); err != nil {
		return fmt.Errorf("failed to unmarshal deleted data: %w", err)
	}
	if deleted.ID == "" {
		return fmt.Errorf("user.deleted event without id")
	}
	return h.userService.DeleteUserByClerkID(ctx, deleted.ID)
}

func verifyClerkSignature(r *http.Request, body []byte) bool {
	webhookSecret := os.Getenv("CLERK_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Println("CLERK_WEBHOOK_SECRET not set, skipping signature verification")
		return true
	}

	svixID := r.Header.Get("svix-id")
	svixTimestamp := r.Header.Get("svix-timestamp")
	svixSignature := r.Header.Get("svix-signature")

	if svixID == "" || svixTimestamp == "" || svixSignature == "" {
		log.Println("Missing webhook signature headers")
		return false
	}

	signedContent := fmt.Sprintf("%s.%s.%s", svixID, svixTimestamp, string(body))

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(signedContent))
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	// Header may carry several space-separated "v1,<sig>" entries.
	for _, part := range strings.Fields(svixSignature) {
		if sig, ok := strings.CutPrefix(part, "v1,"); ok {
			if hmac.Equal([]byte(expectedSignature), []byte(sig)) {
				return true
			}
		}
	}
	return false
}
