package user

import "time"

type User struct {
	ID                 string    `json:"id"`
	ClerkID            string    `json:"clerkId"`
	Email              string    `json:"email"`
	Username           string    `json:"username"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	ImageURL           string    `json:"imageUrl,omitempty"`
	EmailVerified      bool      `json:"emailVerified"`
	IsPlus             bool      `json:"isPlus"`
	GoalWeightKg       *float64  `json:"goalWeightKg,omitempty"`
	DefaultTargetHours float64   `json:"defaultTargetHours"`
	UnitPreference     string    `json:"unitPreference"` // "metric" | "imperial"
	TotalFastsCount    int       `json:"total_fasts_count"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type CreateUserRequest struct {
	ClerkID   string `json:"clerkId"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl"`
}

type UpdateProfileRequest struct {
	Username           string   `json:"username"`
	FirstName          string   `json:"firstName"`
	LastName           string   `json:"lastName"`
	ImageURL           string   `json:"imageUrl"`
	GoalWeightKg       *float64 `json:"goalWeightKg"`
	DefaultTargetHours float64  `json:"defaultTargetHours"`
	UnitPreference     string   `json:"unitPreference"`
}
