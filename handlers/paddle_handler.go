package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk"
	"github.com/google/uuid"

	"fastTrackAPI/internal/types/subscription"
	"fastTrackAPI/middleware"
	"fastTrackAPI/services"
)

type PaddleHandler struct {
	paddleService *services.PaddleService
}

func NewPaddleHandler(paddleService *services.PaddleService) *PaddleHandler {
	return &PaddleHandler{
		paddleService: paddleService,
	}
}

func (h *PaddleHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	req := &paddle.ListPricesRequest{
		Status: []string{string(paddle.StatusActive)},
	}

	priceCollection, err := h.paddleService.PaddleClient.ListPrices(ctx, req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var prices []subscription.PriceResponse
	for {
		result := priceCollection.Next(ctx)
		if !result.Ok() {
			if err := result.Err(); err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			break
		}

		p := result.Value()

		interval := ""
		if p.BillingCycle != nil {
			interval = string(p.BillingCycle.Interval)
		}

		prices = append(prices, subscription.PriceResponse{
			ID:          p.ID,
			ProductID:   p.ProductID,
			Description: p.Description,
			Amount:      p.UnitPrice.Amount,
			Currency:    string(p.UnitPrice.CurrencyCode),
			Interval:    interval,
		})
	}

	respondWithJSON(w, http.StatusOK, prices)
}

func (h *PaddleHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sub, err := h.paddleService.CurrentSubscription(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sub == nil {
		respondWithError(w, http.StatusNotFound, "No subscription")
		return
	}

	respondWithJSON(w, http.StatusOK, sub)
}

type CreateTransactionRequest struct {
	PriceID string `json:"priceId"`
}

func (h *PaddleHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var reqBody CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	successURL := "fasttrack://payment-success"

	createReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{
			*paddle.NewCreateTransactionItemsCatalogItem(&paddle.CatalogItem{
				Quantity: 1,
				PriceID:  reqBody.PriceID,
			}),
		},
		// Webhooks resolve the purchase back to an account through this.
		CustomData: paddle.CustomData{
			"clerkId": clerkID,
		},
		CollectionMode: paddle.PtrTo(paddle.CollectionModeAutomatic),
		Checkout: &paddle.TransactionCheckout{
			URL: &successURL,
		},
	}

	tx, err := h.paddleService.PaddleClient.CreateTransaction(ctx, createReq)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create transaction: %v", err))
		return
	}

	paddleEnv := os.Getenv("PADDLE_CHECKOUT_ENV")
	if paddleEnv == "" {
		paddleEnv = "sandbox-checkout"
	}
	checkoutURL := fmt.Sprintf("https://%s.paddle.com/checkout/custom?_ptxn=%s", paddleEnv, tx.ID)

	respondWithJSON(w, http.StatusOK, map[string]string{
		"transactionId": tx.ID,
		"checkoutUrl":   checkoutURL,
	})
}

func (h *PaddleHandler) PaddleWebhookHandler(w http.ResponseWriter, r *http.Request) {
	secret := os.Getenv("PADDLE_SECRET_KEY")
	if secret == "" {
		log.Println("PADDLE_SECRET_KEY missing")
		http.Error(w, "Configuration Error", http.StatusInternalServerError)
		return
	}

	verifier := paddle.NewWebhookVerifier(secret)
	valid, err := verifier.Verify(r)
	if err != nil {
		http.Error(w, "Verification failed", http.StatusInternalServerError)
		return
	}
	if !valid {
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Unable to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	type WebhookPartial struct {
		EventID   string               `json:"event_id"`
		EventType paddle.EventTypeName `json:"event_type"`
	}

	var event WebhookPartial
	if err := json.Unmarshal(bodyBytes, &event); err != nil {
		http.Error(w, "Unable to parse JSON", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	entityID := event.EventID

	switch event.EventType {
	case paddle.EventTypeNameSubscriptionCreated,
		paddle.EventTypeNameSubscriptionUpdated,
		paddle.EventTypeNameSubscriptionCanceled:

		type SubscriptionEvent struct {
			Data paddle.Subscription `json:"data"`
		}
		var fullEvent SubscriptionEvent
		if err := json.Unmarshal(bodyBytes, &fullEvent); err != nil {
			log.Printf("Error parsing subscription event: %v", err)
			http.Error(w, "Unable to parse subscription", http.StatusBadRequest)
			return
		}
		sub := fullEvent.Data
		entityID = sub.ID

		if err := h.recordFromSubscription(ctx, &sub); err != nil {
			log.Printf("Error recording subscription %s: %v", sub.ID, err)
			http.Error(w, "Error processing webhook", http.StatusInternalServerError)
			return
		}

	default:
		log.Printf("Unhandled Paddle event type: %s", event.EventType)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"ID": %q}`, entityID)
}

func (h *PaddleHandler) recordFromSubscription(ctx context.Context, sub *paddle.Subscription) error {
	userID, err := h.resolveUser(ctx, sub)
	if err != nil {
		return err
	}

	priceID := ""
	if len(sub.Items) > 0 {
		priceID = sub.Items[0].Price.ID
	}

	var periodEnd *time.Time
	if sub.CurrentBillingPeriod != nil {
		if t, err := time.Parse(time.RFC3339, sub.CurrentBillingPeriod.EndsAt); err == nil {
			periodEnd = &t
		}
	}

	return h.paddleService.RecordSubscription(ctx, userID, sub.CustomerID, sub.ID, priceID, string(sub.Status), periodEnd)
}

func (h *PaddleHandler) resolveUser(ctx context.Context, sub *paddle.Subscription) (userID uuid.UUID, err error) {
	if sub.CustomData != nil {
		if clerkID, ok := sub.CustomData["clerkId"].(string); ok && clerkID != "" {
			return h.paddleService.UserIDForClerkID(ctx, clerkID)
		}
	}
	// Renewals may arrive without custom data.
	return h.paddleService.UserIDForCustomer(ctx, sub.CustomerID)
}

func (h *PaddleHandler) PaymentSuccessPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Payment Successful</title>
		<meta name="viewport" content="width=device-width, initial-scale=1">
		<style>
			body { background-color: #0F1115; color: white; font-family: sans-serif; text-align: center; padding: 50px 20px; }
			h1 { color: #2DD4BF; }
			p { color: #888; }
			.card { background: #1A1D23; padding: 30px; border-radius: 15px; max-width: 400px; margin: 0 auto; }
		</style>
	</head>
	<body>
		<div class="card">
			<h1>Payment Successful!</h1>
			<p>Thank you for subscribing to FastTrack Plus.</p>
			<p>You can now close this window and return to the app.</p>
		</div>
	</body>
	</html>
	`
	fmt.Fprint(w, html)
}
