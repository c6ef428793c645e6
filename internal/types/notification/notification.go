package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeFriendRequest     NotificationType = "friend_request"
	TypeBadgeUnlocked     NotificationType = "badge_unlocked"
	TypeChallengeComplete NotificationType = "challenge_complete"
	TypeStreakRisk        NotificationType = "streak_risk"
	TypeStreakMilestone   NotificationType = "streak_milestone"
	TypeCircleMessage     NotificationType = "circle_message"
)

type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

type Notification struct {
	ID           uuid.UUID            `json:"id" db:"id"`
	UserID       uuid.UUID            `json:"user_id" db:"user_id"`
	Type         NotificationType     `json:"type" db:"type"`
	Priority     NotificationPriority `json:"priority" db:"priority"`
	Status       NotificationStatus   `json:"status" db:"status"`
	Title        string               `json:"title" db:"title"`
	Body         string               `json:"body" db:"body"`
	Data         map[string]any       `json:"data" db:"data"`
	IsRead       bool                 `json:"is_read" db:"is_read"`
	ScheduledFor *time.Time           `json:"scheduled_for,omitempty" db:"scheduled_for"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty" db:"expires_at"`
}

type DeviceToken struct {
	Token    string `json:"token" db:"token"`
	Platform string `json:"platform" db:"platform"` // "ios" | "android" | "web"
}

type NotificationPreferences struct {
	UserID          uuid.UUID     `json:"user_id" db:"user_id"`
	PushEnabled     bool          `json:"push_enabled" db:"push_enabled"`
	StreakReminders bool          `json:"streak_reminders" db:"streak_reminders"`
	SocialAlerts    bool          `json:"social_alerts" db:"social_alerts"`
	QuietHoursStart int           `json:"quiet_hours_start" db:"quiet_hours_start"` // local hour
	QuietHoursEnd   int           `json:"quiet_hours_end" db:"quiet_hours_end"`
	DeviceTokens    []DeviceToken `json:"device_tokens"`
}

type CreateNotificationRequest struct {
	UserID   uuid.UUID            `json:"user_id"`
	Type     NotificationType     `json:"type"`
	Priority NotificationPriority `json:"priority"`
	Title    string               `json:"title"`
	Body     string               `json:"body"`
	Data     map[string]any       `json:"data"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}
