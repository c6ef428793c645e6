package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fastTrackAPI/internal/stats"
)

func weekWindow() stats.Window {
	return stats.Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC),
	}
}

func fastOfHours(id string, end time.Time, hours float64) stats.Fast {
	start := end.Add(-time.Duration(hours * float64(time.Hour)))
	return stats.Fast{
		ID:        id,
		UserID:    "u1",
		StartTime: start.UnixMilli(),
		EndTime:   msPtr(end),
		Completed: true,
	}
}

func TestChallengeProgress_TotalHours(t *testing.T) {
	w := weekWindow()
	asOf := w.End
	fasts := []stats.Fast{
		fastOfHours("f1", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC), 40),
		fastOfHours("f2", time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC), 40),
		fastOfHours("f3", time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC), 30),
	}

	assert.Equal(t, 110, stats.ChallengeProgress(stats.MetricTotalHours, fasts, w, asOf))
	assert.Equal(t, 3, stats.ChallengeProgress(stats.MetricCompleteFasts, fasts, w, asOf))
	assert.Equal(t, 40, stats.ChallengeProgress(stats.MetricLongestFast, fasts, w, asOf))
}

func TestChallengeProgress_IgnoresFastsOutsideWindow(t *testing.T) {
	w := weekWindow()
	fasts := []stats.Fast{
		fastOfHours("early", w.Start.Add(-24*time.Hour), 20),
		fastOfHours("late", w.End.Add(24*time.Hour), 20),
		fastOfHours("in", time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC), 18),
	}

	assert.Equal(t, 1, stats.ChallengeProgress(stats.MetricCompleteFasts, fasts, w, w.End))
	assert.Equal(t, 18, stats.ChallengeProgress(stats.MetricTotalHours, fasts, w, w.End))
}

func TestChallengeProgress_StreakAnchorsAtAsOfWhileLive(t *testing.T) {
	w := weekWindow()
	fasts := []stats.Fast{
		completedFast("f1", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)),
		completedFast("f2", time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)),
	}

	live := time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, stats.ChallengeProgress(stats.MetricStreak, fasts, w, live))

	// A day later with no new fast the live streak is broken.
	assert.Equal(t, 0, stats.ChallengeProgress(stats.MetricStreak, fasts, w, live.AddDate(0, 0, 1)))
}

func TestChallengeProgress_StreakFreezesAfterWindowCloses(t *testing.T) {
	w := weekWindow()
	fasts := []stats.Fast{
		completedFast("f1", time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)),
		completedFast("f2", time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)),
	}

	// Re-reading weeks later anchors at the window end, so the recorded
	// progress no longer drifts.
	later := w.End.AddDate(0, 1, 0)
	assert.Equal(t, 2, stats.ChallengeProgress(stats.MetricStreak, fasts, w, later))
}

func TestChallengeProgress_UnknownMetricIsZero(t *testing.T) {
	w := weekWindow()
	fasts := []stats.Fast{completedFast("f1", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))}

	assert.Zero(t, stats.ChallengeProgress("marathon", fasts, w, w.End))
}
