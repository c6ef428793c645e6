package stats

import "time"

// Build assembles the engine-derived half of UserStats from a full fast
// history. Social fields (friends count, rank, badges) are filled in by the
// caller from their own tables.
func Build(fasts []Fast, asOf time.Time) UserStats {
	loc := asOf.Location()
	today := asOf.Format(dayLayout)
	todayStatus := false
	for _, f := range completedFasts(fasts) {
		ended, _ := f.endedAt()
		if ended.In(loc).Format(dayLayout) == today {
			todayStatus = true
			break
		}
	}

	return UserStats{
		TodayStatus:   todayStatus,
		TotalFasts:    CompletedCount(fasts),
		TotalHours:    TotalHours(fasts),
		AverageHours:  AverageHours(fasts),
		LongestFast:   LongestFastHours(fasts),
		CurrentStreak: CurrentStreak(fasts, asOf),
		LongestStreak: LongestStreak(fasts),
	}
}
