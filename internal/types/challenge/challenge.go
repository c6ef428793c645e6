package challenge

import (
	"time"

	"github.com/google/uuid"
)

type Challenge struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	MetricType  string    `json:"metric_type" db:"metric_type"` // stats.Metric* values
	TargetValue int       `json:"target_value" db:"target_value"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedBy   *string   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Participant struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	ChallengeID uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	Progress    int        `json:"progress" db:"progress"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	JoinedAt    time.Time  `json:"joined_at" db:"joined_at"`
}

// Status is the challenge-screen payload: the challenge, the caller's
// freshly recomputed participant row, and how far along they are.
type Status struct {
	Challenge   *Challenge   `json:"challenge"`
	Participant *Participant `json:"participant,omitempty"`
	PercentDone float64      `json:"percent_done"`
}

type LeaderboardRow struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	ImageURL  *string   `json:"image_url" db:"image_url"`
	Progress  int       `json:"progress" db:"progress"`
	Completed bool      `json:"completed" db:"completed"`
	Rank      int       `json:"rank" db:"rank"`
}
