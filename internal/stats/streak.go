package stats

import (
	"sort"
	"time"
)

// streakLookbackDays bounds the current-streak walk. Kept from the product:
// streaks longer than this report as capped.
const streakLookbackDays = 30

const dayLayout = "2006-01-02"

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CurrentStreak counts consecutive calendar days ending at asOf's date on
// which at least one completed fast ended. The walk starts at asOf's own day,
// so a history of "yesterday and the day before" with nothing today is a
// streak of 0. Calendar days are taken in asOf's location; the same asOf
// always yields the same answer regardless of the host timezone.
func CurrentStreak(fasts []Fast, asOf time.Time) int {
	loc := asOf.Location()
	days := make(map[string]bool)
	for _, f := range completedFasts(fasts) {
		ended, _ := f.endedAt()
		days[ended.In(loc).Format(dayLayout)] = true
	}
	if len(days) == 0 {
		return 0
	}

	streak := 0
	for i := 0; i < streakLookbackDays; i++ {
		if !days[asOf.AddDate(0, 0, -i).Format(dayLayout)] {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak returns the longest run of consecutive calendar days with at
// least one completed fast anywhere in the history. Several fasts ending on
// the same day count as one. Days are UTC: the function takes no reference
// time, so UTC keeps the answer identical across hosts.
func LongestStreak(fasts []Fast) int {
	completed := completedFasts(fasts)
	if len(completed) == 0 {
		return 0
	}

	sort.Slice(completed, func(i, j int) bool {
		return *completed[i].EndTime < *completed[j].EndTime
	})

	longest, run := 1, 1
	prev, _ := completed[0].endedAt()
	prevDay := dayOf(prev.UTC())
	for _, f := range completed[1:] {
		ended, _ := f.endedAt()
		day := dayOf(ended.UTC())
		switch {
		case day.Equal(prevDay):
			// same calendar day, no change
		case day.Equal(prevDay.AddDate(0, 0, 1)):
			run++
		default:
			run = 1
		}
		if run > longest {
			longest = run
		}
		prevDay = day
	}
	return longest
}
