package badge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastTrackAPI/internal/badge"
	"fastTrackAPI/internal/stats"
)

func fastEnding(end time.Time, hours float64) stats.Fast {
	start := end.Add(-time.Duration(hours * float64(time.Hour)))
	endMs := end.UnixMilli()
	return stats.Fast{
		ID:        end.Format(time.RFC3339),
		UserID:    "u1",
		StartTime: start.UnixMilli(),
		EndTime:   &endMs,
		Completed: true,
	}
}

func TestEvaluate_DurationBadgeKeysOffTriggerFast(t *testing.T) {
	asOf := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)
	sixteen := fastEnding(asOf, 16)
	history := []stats.Fast{sixteen}

	newly := badge.Evaluate(history, map[string]bool{}, &sixteen, asOf)

	assert.Contains(t, newly, "duration_16")
	assert.NotContains(t, newly, "duration_18")
	assert.Contains(t, newly, "first_fast")

	// Without a triggering fast no duration badge can unlock.
	newly = badge.Evaluate(history, map[string]bool{}, nil, asOf)
	assert.NotContains(t, newly, "duration_16")
}

func TestEvaluate_Idempotent(t *testing.T) {
	asOf := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)
	f := fastEnding(asOf, 16)
	history := []stats.Fast{f}

	unlocked := map[string]bool{}
	first := badge.Evaluate(history, unlocked, &f, asOf)
	require.NotEmpty(t, first)
	for _, id := range first {
		unlocked[id] = true
	}

	second := badge.Evaluate(history, unlocked, &f, asOf)
	for _, id := range first {
		assert.NotContains(t, second, id)
	}
}

func TestEvaluate_StreakCategories(t *testing.T) {
	asOf := time.Date(2024, 1, 7, 20, 0, 0, 0, time.UTC)
	var history []stats.Fast
	for i := 0; i < 7; i++ {
		history = append(history, fastEnding(asOf.AddDate(0, 0, -i), 16))
	}

	newly := badge.Evaluate(history, map[string]bool{}, nil, asOf)
	assert.Contains(t, newly, "streak_3")
	assert.Contains(t, newly, "streak_7")
	assert.NotContains(t, newly, "streak_14")
	assert.Contains(t, newly, "perfect_week")
}

func TestEvaluate_LifestyleStartHours(t *testing.T) {
	// Starts at 19:00, ends next day: early bird but not night owl.
	start := time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC)
	end := start.Add(16 * time.Hour)
	f := fastEnding(end, 16)
	require.Equal(t, 19, time.UnixMilli(f.StartTime).In(time.UTC).Hour())

	newly := badge.Evaluate([]stats.Fast{f}, map[string]bool{}, &f, end)
	assert.Contains(t, newly, "early_bird")
	assert.NotContains(t, newly, "night_owl")

	// Starts at 22:30: night owl, not early bird.
	lateStart := time.Date(2024, 1, 1, 22, 30, 0, 0, time.UTC)
	lateEnd := lateStart.Add(16 * time.Hour)
	late := fastEnding(lateEnd, 16)
	newly = badge.Evaluate([]stats.Fast{late}, map[string]bool{}, &late, lateEnd)
	assert.Contains(t, newly, "night_owl")
	assert.NotContains(t, newly, "early_bird")
}

func TestEvaluate_LifestyleHoursFollowAsOfLocation(t *testing.T) {
	// 19:00 UTC is 22:00 in UTC+3: the same fast classifies as early bird or
	// night owl depending on the zone asOf carries, never on the host's.
	start := time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC)
	end := start.Add(16 * time.Hour)
	f := fastEnding(end, 16)

	newly := badge.Evaluate([]stats.Fast{f}, map[string]bool{}, &f, end)
	assert.Contains(t, newly, "early_bird")
	assert.NotContains(t, newly, "night_owl")

	east := time.FixedZone("UTC+3", 3*60*60)
	newly = badge.Evaluate([]stats.Fast{f}, map[string]bool{}, &f, end.In(east))
	assert.Contains(t, newly, "night_owl")
	assert.NotContains(t, newly, "early_bird")
}

func TestEvaluate_WeekendWarrior(t *testing.T) {
	saturday := time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)
	require.Equal(t, time.Saturday, saturday.Weekday())
	f := fastEnding(saturday, 16)

	newly := badge.Evaluate([]stats.Fast{f}, map[string]bool{}, nil, saturday)
	assert.Contains(t, newly, "weekend_warrior")

	tuesday := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	weekday := fastEnding(tuesday, 16)
	newly = badge.Evaluate([]stats.Fast{weekday}, map[string]bool{}, nil, tuesday)
	assert.NotContains(t, newly, "weekend_warrior")
}

func TestEvaluate_MilestoneThresholds(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var history []stats.Fast
	for i := 0; i < 10; i++ {
		history = append(history, fastEnding(asOf.AddDate(0, 0, -i*3), 16))
	}

	newly := badge.Evaluate(history, map[string]bool{}, nil, asOf)
	assert.Contains(t, newly, "first_fast")
	assert.Contains(t, newly, "ten_fasts")
	assert.NotContains(t, newly, "fifty_fasts")
}

func TestEvaluate_MalformedDurationNoUnlock(t *testing.T) {
	asOf := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	endMs := asOf.UnixMilli()
	// End before start produces a negative duration; nothing should unlock
	// from the hours table and nothing should panic.
	broken := stats.Fast{ID: "b", StartTime: endMs + 1000, EndTime: &endMs, Completed: true}

	newly := badge.Evaluate([]stats.Fast{broken}, map[string]bool{}, &broken, asOf)
	assert.NotContains(t, newly, "duration_16")
}
