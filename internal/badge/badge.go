package badge

import (
	"time"

	"fastTrackAPI/internal/stats"
)

type Category string

const (
	CategoryStreak    Category = "streak"
	CategoryHours     Category = "hours"
	CategoryMilestone Category = "milestone"
	CategoryLifestyle Category = "lifestyle"
)

type Badge struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Category    Category `json:"category"`
	Requirement float64  `json:"requirement"`
}

// WithStatus is the API shape: the catalog entry plus the caller's unlock
// state.
type WithStatus struct {
	Badge
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Context is everything a predicate may look at. Trigger is the fast that
// was just completed, nil when re-evaluating outside a fast mutation.
type Context struct {
	History []stats.Fast
	Trigger *stats.Fast
	AsOf    time.Time
}

// predicate reports whether the badge's condition holds. Predicates are pure
// and must tolerate a nil Trigger.
type predicate func(b Badge, ctx Context) bool
