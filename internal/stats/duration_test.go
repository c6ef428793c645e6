package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fastTrackAPI/internal/stats"
)

func TestTotalAndAverageHours(t *testing.T) {
	end1 := int64(16 * 3600000)
	end2 := int64(20 * 3600000)
	fasts := []stats.Fast{
		{ID: "f1", StartTime: 0, EndTime: &end1, Completed: true},                  // 16h
		{ID: "f2", StartTime: 8 * 3600000, EndTime: &end2, Completed: true},       // 12h
		{ID: "f3", StartTime: 0, Completed: false},                                // running
	}

	assert.InDelta(t, 28.0, stats.TotalHours(fasts), 1e-9)
	assert.Equal(t, 2, stats.CompletedCount(fasts))
	assert.InDelta(t, 14.0, stats.AverageHours(fasts), 1e-9)
	assert.InDelta(t, 16.0, stats.LongestFastHours(fasts), 1e-9)
}

func TestAverageHours_EmptyIsZero(t *testing.T) {
	assert.Zero(t, stats.TotalHours(nil))
	assert.Zero(t, stats.AverageHours(nil))
	assert.Zero(t, stats.LongestFastHours(nil))
}

func TestInWindow_InclusiveBounds(t *testing.T) {
	w := stats.Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC),
	}
	inside := completedFast("in", w.End)
	before := completedFast("before", w.Start.Add(-time.Second))
	after := completedFast("after", w.End.Add(time.Second))

	got := stats.InWindow([]stats.Fast{inside, before, after}, w)
	assert.Len(t, got, 1)
	assert.Equal(t, "in", got[0].ID)
}

func TestBuild_AggregatesHistory(t *testing.T) {
	asOf := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	fasts := []stats.Fast{
		completedFast("f1", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		completedFast("f2", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)),
	}

	s := stats.Build(fasts, asOf)
	assert.True(t, s.TodayStatus)
	assert.Equal(t, 2, s.TotalFasts)
	assert.InDelta(t, 32.0, s.TotalHours, 1e-9)
	assert.InDelta(t, 16.0, s.AverageHours, 1e-9)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)

	s = stats.Build(fasts, asOf.AddDate(0, 0, 1))
	assert.False(t, s.TodayStatus)
	assert.Equal(t, 0, s.CurrentStreak)
}
