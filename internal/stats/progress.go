package stats

import (
	"math"
	"time"
)

// Challenge metric types. These are stored verbatim in the challenges table.
const (
	MetricCompleteFasts = "complete_fasts"
	MetricTotalHours    = "total_hours"
	MetricLongestFast   = "longest_fast"
	MetricStreak        = "streak"
)

// ChallengeProgress reduces a user's fasts to a single progress number for
// the given metric. Only fasts ending inside the window count. An unknown
// metric yields 0 rather than an error.
func ChallengeProgress(metric string, fasts []Fast, w Window, asOf time.Time) int {
	inWindow := InWindow(fasts, w)

	switch metric {
	case MetricCompleteFasts:
		return len(inWindow)
	case MetricTotalHours:
		return int(math.Round(TotalHours(inWindow)))
	case MetricLongestFast:
		return int(math.Round(LongestFastHours(inWindow)))
	case MetricStreak:
		// The day-walk anchors at asOf while the challenge is live and
		// freezes at the window end once it has closed, so re-reading an
		// old challenge cannot change its recorded progress.
		anchor := asOf
		if asOf.After(w.End) {
			anchor = w.End
		}
		return CurrentStreak(inWindow, anchor)
	default:
		return 0
	}
}
