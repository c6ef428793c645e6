package subscription

import "time"

// Subscription is a FastTrack Plus purchase recorded from Paddle webhooks.
type Subscription struct {
	ID                   string     `json:"id" db:"id"`
	UserID               string     `json:"userId" db:"user_id"`
	PaddleCustomerID     string     `json:"paddleCustomerId" db:"paddle_customer_id"`
	PaddleSubscriptionID string     `json:"paddleSubscriptionId" db:"paddle_subscription_id"`
	PaddlePriceID        string     `json:"paddlePriceId" db:"paddle_price_id"`
	Status               string     `json:"status" db:"status"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty" db:"current_period_end"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time  `json:"updatedAt" db:"updated_at"`
}

type PriceResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
}
