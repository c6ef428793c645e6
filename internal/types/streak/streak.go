package streak

import (
	"time"

	"github.com/google/uuid"
)

// Streak is the cached per-user streak row. The statistics engine is the
// source of truth; this row is refreshed whenever a fast ends and exists so
// leaderboard queries can join it instead of recomputing histories.
type Streak struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	CurrentStreak int        `json:"current_streak" db:"current_streak"`
	LongestStreak int        `json:"longest_streak" db:"longest_streak"`
	LastFastDate  *time.Time `json:"last_fast_date" db:"last_fast_date"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
