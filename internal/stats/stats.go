package stats

import "time"

// Fast is the engine's input record. Services load rows from Postgres and
// map them into this shape; the engine itself never touches the database.
type Fast struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	StartTime   int64   `json:"start_time"` // epoch millis
	EndTime     *int64  `json:"end_time"`   // nil while the fast is running
	TargetHours float64 `json:"target_hours"`
	PlanID      string  `json:"plan_id"`
	PlanName    string  `json:"plan_name"`
	Completed   bool    `json:"completed"`
	Note        *string `json:"note,omitempty"`
}

// Window bounds challenge and leaderboard computations. End is inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

type UserStats struct {
	TodayStatus   bool    `json:"today_status"`
	TotalFasts    int     `json:"total_fasts"`
	TotalHours    float64 `json:"total_hours"`
	AverageHours  float64 `json:"average_hours"`
	LongestFast   float64 `json:"longest_fast_hours"`
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
	BadgesCount   int     `json:"badges_count"`
	FriendsCount  int     `json:"friends_count"`
	Rank          int     `json:"rank"`
}

// Duration returns the fast's length in hours, 0 while it is still running.
func (f Fast) Duration() float64 {
	if f.EndTime == nil {
		return 0
	}
	return float64(*f.EndTime-f.StartTime) / float64(time.Hour/time.Millisecond)
}

func (f Fast) endedAt() (time.Time, bool) {
	if f.EndTime == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*f.EndTime), true
}

// completedFasts filters to fasts that actually finished: completed flag set
// and an end time present.
func completedFasts(fasts []Fast) []Fast {
	out := make([]Fast, 0, len(fasts))
	for _, f := range fasts {
		if f.Completed && f.EndTime != nil {
			out = append(out, f)
		}
	}
	return out
}

// InWindow keeps completed fasts whose end time falls in [w.Start, w.End].
func InWindow(fasts []Fast, w Window) []Fast {
	out := make([]Fast, 0, len(fasts))
	for _, f := range completedFasts(fasts) {
		ended, _ := f.endedAt()
		if ended.Before(w.Start) || ended.After(w.End) {
			continue
		}
		out = append(out, f)
	}
	return out
}
