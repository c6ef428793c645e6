package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaddleHQ/paddle-go-sdk"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fastTrackAPI/internal/types/subscription"
)

type PaddleService struct {
	PaddleClient *paddle.SDK
	db           *pgxpool.Pool
	userService  *UserService
}

func NewPaddleService(PaddleClient *paddle.SDK, db *pgxpool.Pool, userService *UserService) *PaddleService {
	return &PaddleService{PaddleClient: PaddleClient, db: db, userService: userService}
}

// RecordSubscription upserts the Paddle subscription row and flips the
// user's Plus flag to match its status.
func (s *PaddleService) RecordSubscription(ctx context.Context, userID uuid.UUID, customerID, subscriptionID, priceID, status string, periodEnd *time.Time) error {
	_, err := s.db.Exec(ctx, `
	INSERT INTO subscriptions (id, user_id, paddle_customer_id, paddle_subscription_id, paddle_price_id, status, current_period_end, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	ON CONFLICT (paddle_subscription_id) DO UPDATE SET
		status = EXCLUDED.status,
		paddle_price_id = EXCLUDED.paddle_price_id,
		current_period_end = EXCLUDED.current_period_end,
		updated_at = NOW()
	`, uuid.New(), userID, customerID, subscriptionID, priceID, status, periodEnd)
	if err != nil {
		return fmt.Errorf("failed to record subscription: %w", err)
	}

	isPlus := status == "active" || status == "trialing"
	if err := s.userService.SetPlus(ctx, userID, isPlus); err != nil {
		return fmt.Errorf("failed to update plus flag: %w", err)
	}
	return nil
}

// CurrentSubscription returns the most recently updated subscription row for
// a user, or nil when they never purchased.
func (s *PaddleService) CurrentSubscription(ctx context.Context, clerkID string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := s.db.QueryRow(ctx, `
	SELECT s.id, s.user_id, s.paddle_customer_id, s.paddle_subscription_id, s.paddle_price_id, s.status, s.current_period_end, s.created_at, s.updated_at
	FROM subscriptions s
	JOIN users u ON u.id = s.user_id
	WHERE u.clerk_id = $1
	ORDER BY s.updated_at DESC
	LIMIT 1
	`, clerkID).Scan(&sub.ID, &sub.UserID, &sub.PaddleCustomerID, &sub.PaddleSubscriptionID, &sub.PaddlePriceID, &sub.Status, &sub.CurrentPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

// UserIDForClerkID resolves the Clerk id carried in checkout custom data.
func (s *PaddleService) UserIDForClerkID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found for clerk_id %s: %w", clerkID, err)
	}
	return userID, nil
}

// UserIDForCustomer maps a Paddle customer back to a local user via the
// custom data set at checkout, falling back to past subscription rows.
func (s *PaddleService) UserIDForCustomer(ctx context.Context, customerID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `
	SELECT user_id FROM subscriptions WHERE paddle_customer_id = $1 ORDER BY updated_at DESC LIMIT 1
	`, customerID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("no user for paddle customer %s: %w", customerID, err)
	}
	return userID, nil
}
