package badge

// Catalog is the static badge table. Ids are stable: they are stored in
// user_badges rows and referenced by the mobile client's asset map.
var Catalog = []Badge{
	{ID: "first_fast", Name: "First Fast", Description: "Complete your first fast", Icon: "flag", Category: CategoryMilestone, Requirement: 1},
	{ID: "ten_fasts", Name: "Regular", Description: "Complete 10 fasts", Icon: "repeat", Category: CategoryMilestone, Requirement: 10},
	{ID: "fifty_fasts", Name: "Devoted", Description: "Complete 50 fasts", Icon: "medal", Category: CategoryMilestone, Requirement: 50},
	{ID: "hundred_fasts", Name: "Centurion", Description: "Complete 100 fasts", Icon: "trophy", Category: CategoryMilestone, Requirement: 100},

	{ID: "streak_3", Name: "Warming Up", Description: "Fast 3 days in a row", Icon: "flame", Category: CategoryStreak, Requirement: 3},
	{ID: "streak_7", Name: "One Week Strong", Description: "Fast 7 days in a row", Icon: "flame", Category: CategoryStreak, Requirement: 7},
	{ID: "streak_14", Name: "Fortnight", Description: "Fast 14 days in a row", Icon: "flame", Category: CategoryStreak, Requirement: 14},
	{ID: "streak_30", Name: "Iron Will", Description: "Fast 30 days in a row", Icon: "crown", Category: CategoryStreak, Requirement: 30},

	{ID: "duration_16", Name: "16:8 Finisher", Description: "Complete a 16 hour fast", Icon: "clock", Category: CategoryHours, Requirement: 16},
	{ID: "duration_18", Name: "18:6 Finisher", Description: "Complete an 18 hour fast", Icon: "clock", Category: CategoryHours, Requirement: 18},
	{ID: "duration_24", Name: "Full Day", Description: "Complete a 24 hour fast", Icon: "sunrise", Category: CategoryHours, Requirement: 24},
	{ID: "duration_36", Name: "Monk Mode", Description: "Complete a 36 hour fast", Icon: "mountain", Category: CategoryHours, Requirement: 36},

	{ID: "early_bird", Name: "Early Bird", Description: "Start a fast before 8 PM", Icon: "sun", Category: CategoryLifestyle},
	{ID: "night_owl", Name: "Night Owl", Description: "Start a fast at 10 PM or later", Icon: "moon", Category: CategoryLifestyle},
	{ID: "weekend_warrior", Name: "Weekend Warrior", Description: "Fast on a weekend", Icon: "calendar", Category: CategoryLifestyle},
	{ID: "perfect_week", Name: "Perfect Week", Description: "Hold a 7 day streak", Icon: "star", Category: CategoryLifestyle},
}

// ByID returns the catalog entry for id.
func ByID(id string) (Badge, bool) {
	for _, b := range Catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}
