package stats

// TotalHours sums the durations of all completed fasts.
func TotalHours(fasts []Fast) float64 {
	total := 0.0
	for _, f := range completedFasts(fasts) {
		total += f.Duration()
	}
	return total
}

// CompletedCount returns how many fasts finished.
func CompletedCount(fasts []Fast) int {
	return len(completedFasts(fasts))
}

// AverageHours is TotalHours over the completed count, 0 for an empty history.
func AverageHours(fasts []Fast) float64 {
	completed := completedFasts(fasts)
	if len(completed) == 0 {
		return 0
	}
	return TotalHours(completed) / float64(len(completed))
}

// LongestFastHours returns the single longest completed fast, 0 when none.
func LongestFastHours(fasts []Fast) float64 {
	longest := 0.0
	for _, f := range completedFasts(fasts) {
		if d := f.Duration(); d > longest {
			longest = d
		}
	}
	return longest
}
