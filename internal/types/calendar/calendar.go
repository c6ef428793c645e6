package calendar

import "time"

type CalendarDay struct {
	Date        time.Time `json:"date" db:"date"`
	Fasted      bool      `json:"fasted" db:"fasted"`
	TotalHours  float64   `json:"total_hours" db:"total_hours"`
	IsToday     bool      `json:"is_today"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}
