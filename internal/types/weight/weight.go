package weight

import "time"

type Entry struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	WeightKg  float64   `json:"weight_kg" db:"weight_kg"`
	LoggedAt  time.Time `json:"logged_at" db:"logged_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AddEntryRequest struct {
	ID       string  `json:"id"` // optional, client-generated
	WeightKg float64 `json:"weightKg"`
	LoggedAt int64   `json:"loggedAt"` // epoch millis
}

// Trend is the latest entry with its delta against the previous one.
type Trend struct {
	Latest      *Entry   `json:"latest"`
	Previous    *Entry   `json:"previous,omitempty"`
	DeltaKg     float64  `json:"delta_kg"`
	GoalWeight  *float64 `json:"goal_weight_kg,omitempty"`
	ToGoalKg    *float64 `json:"to_goal_kg,omitempty"`
	EntriesLast int      `json:"entries_last_30_days"`
}
