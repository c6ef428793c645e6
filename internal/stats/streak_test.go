package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fastTrackAPI/internal/stats"
)

func msPtr(t time.Time) *int64 {
	v := t.UnixMilli()
	return &v
}

// completedFast builds a 16 hour completed fast ending at end.
func completedFast(id string, end time.Time) stats.Fast {
	start := end.Add(-16 * time.Hour)
	return stats.Fast{
		ID:        id,
		UserID:    "u1",
		StartTime: start.UnixMilli(),
		EndTime:   msPtr(end),
		Completed: true,
	}
}

func TestCurrentStreak_ConsecutiveDays(t *testing.T) {
	asOf := time.Date(2024, 1, 3, 20, 0, 0, 0, time.UTC)
	fasts := []stats.Fast{
		completedFast("f1", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		completedFast("f2", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)),
		completedFast("f3", time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)),
	}

	assert.Equal(t, 3, stats.CurrentStreak(fasts, asOf))
	assert.Equal(t, 3, stats.LongestStreak(fasts))
}

func TestCurrentStreak_IndependentOfHostLocation(t *testing.T) {
	// The walk keys calendar days off asOf's own location, so the same
	// history yields the same streak no matter which zone asOf carries, as
	// long as the fasts land on the same dates there.
	fasts := []stats.Fast{
		completedFast("f1", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		completedFast("f2", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)),
		completedFast("f3", time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)),
	}

	utc := time.Date(2024, 1, 3, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, stats.CurrentStreak(fasts, utc))

	east := time.FixedZone("UTC+3", 3*60*60)
	assert.Equal(t, 3, stats.CurrentStreak(fasts, utc.In(east)))

	west := time.FixedZone("UTC-5", -5*60*60)
	assert.Equal(t, 3, stats.CurrentStreak(fasts, utc.In(west)))
}

func TestCurrentStreak_AsOfLocationShiftsDayBoundary(t *testing.T) {
	// A fast ending 23:00 UTC on Jan 2 belongs to Jan 3 in UTC+3. With an
	// asOf in that zone the streak day-walk must see it on the shifted date.
	fasts := []stats.Fast{
		completedFast("f1", time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC)),
	}

	east := time.FixedZone("UTC+3", 3*60*60)
	asOf := time.Date(2024, 1, 3, 10, 0, 0, 0, east)

	assert.Equal(t, 1, stats.CurrentStreak(fasts, asOf))
	assert.Equal(t, 0, stats.CurrentStreak(fasts, asOf.In(time.UTC)))
}

func TestCurrentStreak_GapResetsToToday(t *testing.T) {
	asOf := time.Date(2024, 1, 3, 20, 0, 0, 0, time.UTC)
	fasts := []stats.Fast{
		completedFast("f1", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		completedFast("f3", time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)),
	}

	assert.Equal(t, 1, stats.CurrentStreak(fasts, asOf))
	assert.Equal(t, 1, stats.LongestStreak(fasts))
}

func TestCurrentStreak_NothingTodayIsZero(t *testing.T) {
	// Yesterday and the day before do not count as a streak of 2 when
	// today has no fast.
	asOf := time.Date(2024, 1, 3, 20, 0, 0, 0, time.UTC)
	fasts := []stats.Fast{
		completedFast("f1", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		completedFast("f2", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)),
	}

	assert.Equal(t, 0, stats.CurrentStreak(fasts, asOf))
	assert.Equal(t, 2, stats.LongestStreak(fasts))
}

func TestCurrentStreak_SameDayFastsCollapse(t *testing.T) {
	asOf := time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC)
	fasts := []stats.Fast{
		completedFast("f1", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)),
		completedFast("f2", time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)),
		completedFast("f3", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)),
	}

	assert.Equal(t, 2, stats.CurrentStreak(fasts, asOf))
	assert.Equal(t, 2, stats.LongestStreak(fasts))
}

func TestCurrentStreak_CappedAtLookback(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var fasts []stats.Fast
	for i := 0; i < 45; i++ {
		end := asOf.AddDate(0, 0, -i)
		fasts = append(fasts, completedFast(end.Format("2006-01-02"), end))
	}

	// A genuine 45 day run reports as the 30 day cap.
	assert.Equal(t, 30, stats.CurrentStreak(fasts, asOf))
	assert.Equal(t, 45, stats.LongestStreak(fasts))
}

func TestCurrentStreak_NeverExceedsLongest(t *testing.T) {
	asOf := time.Date(2024, 2, 10, 18, 0, 0, 0, time.UTC)
	var fasts []stats.Fast
	for i := 0; i < 12; i++ {
		end := asOf.AddDate(0, 0, -i)
		fasts = append(fasts, completedFast(end.Format("2006-01-02"), end))
	}

	current := stats.CurrentStreak(fasts, asOf)
	assert.LessOrEqual(t, current, stats.LongestStreak(fasts))
	assert.LessOrEqual(t, current, 30)
}

func TestLongestStreak_MonotonicUnderGrowth(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var fasts []stats.Fast
	prev := 0
	for i := 0; i < 10; i++ {
		fasts = append(fasts, completedFast("f", base.AddDate(0, 0, i)))
		cur := stats.LongestStreak(fasts)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, 10, prev)
}

func TestStreaks_EmptyAndIncompleteInput(t *testing.T) {
	asOf := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, stats.CurrentStreak(nil, asOf))
	assert.Equal(t, 0, stats.LongestStreak(nil))

	// An in-progress fast has no end time and never counts.
	active := stats.Fast{ID: "a", StartTime: asOf.UnixMilli()}
	assert.Equal(t, 0, stats.CurrentStreak([]stats.Fast{active}, asOf))
	assert.Equal(t, 0, stats.LongestStreak([]stats.Fast{active}))
}
