package circle

import (
	"time"

	"github.com/google/uuid"
)

// Circle is a small private group sharing a message feed.
type Circle struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	InviteCode  string    `json:"invite_code" db:"invite_code"`
	CreatedBy   uuid.UUID `json:"created_by" db:"created_by"`
	MemberCount int       `json:"member_count" db:"member_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Member struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Username string    `json:"username" db:"username"`
	ImageURL *string   `json:"image_url" db:"image_url"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

type Message struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CircleID  uuid.UUID `json:"circle_id" db:"circle_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	ImageURL  *string   `json:"image_url,omitempty" db:"image_url"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CreateCircleRequest struct {
	Name string `json:"name"`
}

type PostMessageRequest struct {
	Body string `json:"body"`
}
