package fast

import "time"

// Fast is a single fasting session. Ids are client-generated (the mobile app
// creates the row offline first), so they are opaque strings rather than
// server uuids.
type Fast struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	StartTime   int64     `json:"start_time" db:"start_time"` // epoch millis
	EndTime     *int64    `json:"end_time,omitempty" db:"end_time"`
	TargetHours float64   `json:"target_hours" db:"target_hours"`
	PlanID      string    `json:"plan_id" db:"plan_id"`
	PlanName    string    `json:"plan_name" db:"plan_name"`
	Completed   bool      `json:"completed" db:"completed"`
	Note        *string   `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type StartFastRequest struct {
	ID          string  `json:"id"` // optional, client-generated
	StartTime   int64   `json:"startTime"`
	TargetHours float64 `json:"targetHours"`
	PlanID      string  `json:"planId"`
	PlanName    string  `json:"planName"`
}

type EndFastRequest struct {
	FastID  string  `json:"fastId"`
	EndTime int64   `json:"endTime"`
	Note    *string `json:"note"`
}

type UpdateFastRequest struct {
	FastID      string   `json:"fastId"`
	TargetHours *float64 `json:"targetHours"`
	Note        *string  `json:"note"`
}

// EndFastResponse carries the finished fast plus any badges the completion
// unlocked, so the client can show them in one round trip.
type EndFastResponse struct {
	Fast          *Fast    `json:"fast"`
	NewBadges     []string `json:"new_badges"`
	CurrentStreak int      `json:"current_streak"`
}
