package badge

import (
	"math"
	"time"

	"fastTrackAPI/internal/stats"
)

// categoryChecks maps a category to its predicate. Lifestyle badges get a
// second dispatch by id in lifestyleChecks; adding a badge kind means adding
// a table entry, not touching Evaluate.
var categoryChecks = map[Category]predicate{
	CategoryMilestone: milestoneCheck,
	CategoryStreak:    streakCheck,
	CategoryHours:     hoursCheck,
	CategoryLifestyle: lifestyleCheck,
}

var lifestyleChecks = map[string]predicate{
	"early_bird":      earlyBirdCheck,
	"night_owl":       nightOwlCheck,
	"weekend_warrior": weekendWarriorCheck,
	"perfect_week":    perfectWeekCheck,
}

// Evaluate returns the ids of catalog badges whose condition now holds and
// that are not already in unlocked. Unlocks are monotonic: already-unlocked
// ids are skipped, never re-checked or revoked.
func Evaluate(history []stats.Fast, unlocked map[string]bool, trigger *stats.Fast, asOf time.Time) []string {
	ctx := Context{History: history, Trigger: trigger, AsOf: asOf}

	var newly []string
	for _, b := range Catalog {
		if unlocked[b.ID] {
			continue
		}
		check, ok := categoryChecks[b.Category]
		if !ok {
			continue
		}
		if check(b, ctx) {
			newly = append(newly, b.ID)
		}
	}
	return newly
}

func milestoneCheck(b Badge, ctx Context) bool {
	return float64(stats.CompletedCount(ctx.History)) >= b.Requirement
}

func streakCheck(b Badge, ctx Context) bool {
	return float64(stats.CurrentStreak(ctx.History, ctx.AsOf)) >= b.Requirement
}

// hoursCheck keys off the single fast just completed, not cumulative hours.
func hoursCheck(b Badge, ctx Context) bool {
	if ctx.Trigger == nil {
		return false
	}
	d := ctx.Trigger.Duration()
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return false
	}
	return d >= b.Requirement
}

func lifestyleCheck(b Badge, ctx Context) bool {
	check, ok := lifestyleChecks[b.ID]
	if !ok {
		return false
	}
	return check(b, ctx)
}

// Clock-on-the-wall checks read hours and weekdays in asOf's location, so
// the same inputs classify the same way on every host.
func earlyBirdCheck(_ Badge, ctx Context) bool {
	if ctx.Trigger == nil {
		return false
	}
	return time.UnixMilli(ctx.Trigger.StartTime).In(ctx.AsOf.Location()).Hour() < 20
}

func nightOwlCheck(_ Badge, ctx Context) bool {
	if ctx.Trigger == nil {
		return false
	}
	return time.UnixMilli(ctx.Trigger.StartTime).In(ctx.AsOf.Location()).Hour() >= 22
}

func weekendWarriorCheck(_ Badge, ctx Context) bool {
	loc := ctx.AsOf.Location()
	for _, f := range ctx.History {
		if !f.Completed {
			continue
		}
		at := time.UnixMilli(f.StartTime)
		if f.EndTime != nil {
			at = time.UnixMilli(*f.EndTime)
		}
		if wd := at.In(loc).Weekday(); wd == time.Saturday || wd == time.Sunday {
			return true
		}
	}
	return false
}

func perfectWeekCheck(_ Badge, ctx Context) bool {
	return stats.CurrentStreak(ctx.History, ctx.AsOf) >= 7
}
