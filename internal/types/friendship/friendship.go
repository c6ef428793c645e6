package friendship

import (
	"time"

	"github.com/google/uuid"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

type Friendship struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	FriendID  uuid.UUID        `json:"friend_id" db:"friend_id"`
	Status    FriendshipStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// Friend is the friends-list row: profile basics plus the streak the list
// screen sorts by.
type Friend struct {
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Username      string    `json:"username" db:"username"`
	ImageURL      *string   `json:"image_url" db:"image_url"`
	CurrentStreak int       `json:"current_streak" db:"current_streak"`
	HoursThisWeek float64   `json:"hours_this_week" db:"hours_this_week"`
}

type InviteQR struct {
	Token     string    `json:"token"`
	ImageData string    `json:"image_data"` // base64 PNG data URL
	ExpiresAt time.Time `json:"expires_at"`
}
