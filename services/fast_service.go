package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fastTrackAPI/internal/badge"
	"fastTrackAPI/internal/stats"
	"fastTrackAPI/internal/types/calendar"
	"fastTrackAPI/internal/types/fast"
	"fastTrackAPI/internal/types/notification"
	"fastTrackAPI/internal/types/streak"
)

type FastService struct {
	db                  *pgxpool.Pool
	notificationService *NotificationService
}

func NewFastService(db *pgxpool.Pool, notificationService *NotificationService) *FastService {
	return &FastService{db: db, notificationService: notificationService}
}

func (s *FastService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found for clerk_id %s: %w", clerkID, err)
	}
	return userID, nil
}

// LoadHistory maps a user's full fast table into engine records.
func (s *FastService) LoadHistory(ctx context.Context, userID uuid.UUID) ([]stats.Fast, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, start_time, end_time, target_hours, plan_id, plan_name, completed, note
	FROM fasts
	WHERE user_id = $1 AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fasts: %w", err)
	}
	defer rows.Close()

	var history []stats.Fast
	for rows.Next() {
		var f stats.Fast
		if err := rows.Scan(&f.ID, &f.UserID, &f.StartTime, &f.EndTime, &f.TargetHours, &f.PlanID, &f.PlanName, &f.Completed, &f.Note); err != nil {
			return nil, fmt.Errorf("failed to scan fast: %w", err)
		}
		history = append(history, f)
	}
	return history, rows.Err()
}

func (s *FastService) StartFast(ctx context.Context, clerkID string, req *fast.StartFastRequest) (*fast.Fast, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if req.TargetHours <= 0 {
		return nil, fmt.Errorf("target hours must be positive")
	}

	var activeCount int
	err = s.db.QueryRow(ctx, `
	SELECT COUNT(*) FROM fasts
	WHERE user_id = $1 AND end_time IS NULL AND deleted_at IS NULL
	`, userID).Scan(&activeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to check active fast: %w", err)
	}
	if activeCount > 0 {
		return nil, fmt.Errorf("a fast is already in progress")
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	startTime := req.StartTime
	if startTime == 0 {
		startTime = time.Now().UnixMilli()
	}

	f := &fast.Fast{}
	err = s.db.QueryRow(ctx, `
	INSERT INTO fasts (id, user_id, start_time, target_hours, plan_id, plan_name, completed, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, false, NOW(), NOW())
	RETURNING id, user_id, start_time, end_time, target_hours, plan_id, plan_name, completed, note, created_at, updated_at
	`, id, userID, startTime, req.TargetHours, req.PlanID, req.PlanName).Scan(
		&f.ID, &f.UserID, &f.StartTime, &f.EndTime, &f.TargetHours,
		&f.PlanID, &f.PlanName, &f.Completed, &f.Note, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start fast: %w", err)
	}

	return f, nil
}

// EndFast closes the fast, re-runs the statistics engine over the full
// history and returns any badges the completion unlocked.
func (s *FastService) EndFast(ctx context.Context, clerkID string, req *fast.EndFastRequest) (*fast.EndFastResponse, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	endTime := req.EndTime
	if endTime == 0 {
		endTime = time.Now().UnixMilli()
	}

	f := &fast.Fast{}
	err = s.db.QueryRow(ctx, `
	UPDATE fasts
	SET end_time = $3, completed = true, note = COALESCE($4, note), updated_at = NOW()
	WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL AND start_time < $3
	RETURNING id, user_id, start_time, end_time, target_hours, plan_id, plan_name, completed, note, created_at, updated_at
	`, req.FastID, userID, endTime, req.Note).Scan(
		&f.ID, &f.UserID, &f.StartTime, &f.EndTime, &f.TargetHours,
		&f.PlanID, &f.PlanName, &f.Completed, &f.Note, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("fast not found")
		}
		return nil, fmt.Errorf("failed to end fast: %w", err)
	}

	now := time.Now()
	history, err := s.LoadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	trigger := stats.Fast{
		ID: f.ID, UserID: f.UserID, StartTime: f.StartTime, EndTime: f.EndTime,
		TargetHours: f.TargetHours, Completed: f.Completed,
	}
	newBadges, err := s.unlockNewBadges(ctx, userID, history, &trigger, now)
	if err != nil {
		// Badge persistence failing should not lose the ended fast.
		log.Printf("EndFast: badge evaluation failed for user %s: %v", userID, err)
		newBadges = nil
	}

	currentStreak := stats.CurrentStreak(history, now)
	if err := s.refreshStreakCache(ctx, userID, history, now); err != nil {
		log.Printf("EndFast: streak cache refresh failed for user %s: %v", userID, err)
	}

	for _, id := range newBadges {
		b, _ := badge.ByID(id)
		s.notificationService.Notify(ctx, userID, &notification.CreateNotificationRequest{
			UserID:   userID,
			Type:     notification.TypeBadgeUnlocked,
			Priority: notification.PriorityNormal,
			Title:    "Badge unlocked",
			Body:     fmt.Sprintf("You earned %q", b.Name),
			Data:     map[string]any{"badge_id": id},
		})
	}

	return &fast.EndFastResponse{Fast: f, NewBadges: newBadges, CurrentStreak: currentStreak}, nil
}

func (s *FastService) unlockNewBadges(ctx context.Context, userID uuid.UUID, history []stats.Fast, trigger *stats.Fast, asOf time.Time) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT badge_id FROM user_badges WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocked badges: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		unlocked[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	newly := badge.Evaluate(history, unlocked, trigger, asOf)
	for _, id := range newly {
		// ON CONFLICT keeps the unlock idempotent under concurrent ends.
		_, err := s.db.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge_id, unlocked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, badge_id) DO NOTHING
		`, userID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to persist badge %s: %w", id, err)
		}
	}
	return newly, nil
}

func (s *FastService) refreshStreakCache(ctx context.Context, userID uuid.UUID, history []stats.Fast, asOf time.Time) error {
	current := stats.CurrentStreak(history, asOf)
	longest := stats.LongestStreak(history)

	_, err := s.db.Exec(ctx, `
	INSERT INTO streaks (id, user_id, current_streak, longest_streak, last_fast_date, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	ON CONFLICT (user_id) DO UPDATE
	SET current_streak = $3, longest_streak = GREATEST(streaks.longest_streak, $4), last_fast_date = $5, updated_at = NOW()
	`, uuid.New(), userID, current, longest, asOf)
	return err
}

// GetStreak reads the cached streak row so clients (widgets, lock screens)
// can poll it without triggering a history recompute. Users who never
// completed a fast get a zero-value row.
func (s *FastService) GetStreak(ctx context.Context, clerkID string) (*streak.Streak, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	st := &streak.Streak{UserID: userID}
	err = s.db.QueryRow(ctx, `
	SELECT id, user_id, current_streak, longest_streak, last_fast_date, created_at, updated_at
	FROM streaks WHERE user_id = $1
	`, userID).Scan(&st.ID, &st.UserID, &st.CurrentStreak, &st.LongestStreak, &st.LastFastDate, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return st, nil
		}
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}
	return st, nil
}

func (s *FastService) UpdateFast(ctx context.Context, clerkID string, req *fast.UpdateFastRequest) (*fast.Fast, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	f := &fast.Fast{}
	err = s.db.QueryRow(ctx, `
	UPDATE fasts
	SET target_hours = COALESCE($3, target_hours),
	    note = COALESCE($4, note),
	    updated_at = NOW()
	WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	RETURNING id, user_id, start_time, end_time, target_hours, plan_id, plan_name, completed, note, created_at, updated_at
	`, req.FastID, userID, req.TargetHours, req.Note).Scan(
		&f.ID, &f.UserID, &f.StartTime, &f.EndTime, &f.TargetHours,
		&f.PlanID, &f.PlanName, &f.Completed, &f.Note, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("fast not found")
		}
		return nil, fmt.Errorf("failed to update fast: %w", err)
	}
	return f, nil
}

// DeleteFast soft-deletes so sync can tombstone the row instead of
// resurrecting it from a stale client.
func (s *FastService) DeleteFast(ctx context.Context, clerkID, fastID string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
	UPDATE fasts SET deleted_at = NOW(), updated_at = NOW()
	WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, fastID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete fast: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fast not found")
	}
	return nil
}

func (s *FastService) GetFasts(ctx context.Context, clerkID string, page, pageSize int) ([]*fast.Fast, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	if page < 1 {
		page = 1
	}

	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, start_time, end_time, target_hours, plan_id, plan_name, completed, note, created_at, updated_at
	FROM fasts
	WHERE user_id = $1 AND deleted_at IS NULL
	ORDER BY start_time DESC
	LIMIT $2 OFFSET $3
	`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list fasts: %w", err)
	}
	defer rows.Close()

	fasts := []*fast.Fast{}
	for rows.Next() {
		f := &fast.Fast{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.StartTime, &f.EndTime, &f.TargetHours,
			&f.PlanID, &f.PlanName, &f.Completed, &f.Note, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		fasts = append(fasts, f)
	}
	return fasts, rows.Err()
}

func (s *FastService) GetActiveFast(ctx context.Context, clerkID string) (*fast.Fast, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	f := &fast.Fast{}
	err = s.db.QueryRow(ctx, `
	SELECT id, user_id, start_time, end_time, target_hours, plan_id, plan_name, completed, note, created_at, updated_at
	FROM fasts
	WHERE user_id = $1 AND end_time IS NULL AND deleted_at IS NULL
	ORDER BY start_time DESC
	LIMIT 1
	`, userID).Scan(
		&f.ID, &f.UserID, &f.StartTime, &f.EndTime, &f.TargetHours,
		&f.PlanID, &f.PlanName, &f.Completed, &f.Note, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active fast: %w", err)
	}
	return f, nil
}

// GetCalendar builds the month view: one entry per day with whether a
// completed fast ended then and the hours fasted.
func (s *FastService) GetCalendar(ctx context.Context, clerkID string, year, month int) (*calendar.CalendarResponse, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	history, err := s.LoadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	today := time.Now()

	hoursByDay := make(map[int]float64)
	for _, f := range stats.InWindow(history, stats.Window{Start: first, End: first.AddDate(0, 1, 0).Add(-time.Millisecond)}) {
		day := time.UnixMilli(*f.EndTime).Day()
		hoursByDay[day] += f.Duration()
	}

	resp := &calendar.CalendarResponse{Year: year, Month: month}
	for d := 1; d <= daysInMonth; d++ {
		date := first.AddDate(0, 0, d-1)
		resp.Days = append(resp.Days, &calendar.CalendarDay{
			Date:       date,
			Fasted:     hoursByDay[d] > 0,
			TotalHours: hoursByDay[d],
			IsToday:    date.Year() == today.Year() && date.YearDay() == today.YearDay(),
		})
	}
	return resp, nil
}
