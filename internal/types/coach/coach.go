package coach

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply    string `json:"reply"`
	Fallback bool   `json:"fallback"` // true when the model was unreachable
}

type Insight struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
	Fallback    bool      `json:"fallback"`
}
