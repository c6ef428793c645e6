package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fastTrackAPI/internal/types/weight"
)

type WeightService struct {
	db *pgxpool.Pool
}

func NewWeightService(db *pgxpool.Pool) *WeightService {
	return &WeightService{db: db}
}

func (s *WeightService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user not found for clerk_id %s", clerkID)
		}
		return uuid.Nil, fmt.Errorf("failed to look up user %s: %w", clerkID, err)
	}
	return userID, nil
}

func (s *WeightService) AddEntry(ctx context.Context, clerkID string, req *weight.AddEntryRequest) (*weight.Entry, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if req.WeightKg <= 0 || req.WeightKg > 700 {
		return nil, fmt.Errorf("weight out of range")
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	loggedAt := time.Now()
	if req.LoggedAt > 0 {
		loggedAt = time.UnixMilli(req.LoggedAt)
	}

	e := &weight.Entry{}
	err = s.db.QueryRow(ctx, `
	INSERT INTO weights (id, user_id, weight_kg, logged_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, NOW(), NOW())
	ON CONFLICT (id) DO UPDATE SET weight_kg = $3, logged_at = $4, updated_at = NOW()
	RETURNING id, user_id, weight_kg, logged_at, created_at, updated_at
	`, id, userID, req.WeightKg, loggedAt).Scan(
		&e.ID, &e.UserID, &e.WeightKg, &e.LoggedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add weight entry: %w", err)
	}
	return e, nil
}

func (s *WeightService) GetEntries(ctx context.Context, clerkID string, from, to time.Time) ([]*weight.Entry, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, weight_kg, logged_at, created_at, updated_at
	FROM weights
	WHERE user_id = $1 AND deleted_at IS NULL AND logged_at BETWEEN $2 AND $3
	ORDER BY logged_at DESC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list weights: %w", err)
	}
	defer rows.Close()

	entries := []*weight.Entry{}
	for rows.Next() {
		e := &weight.Entry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.WeightKg, &e.LoggedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetTrend returns the two most recent entries and the delta between them,
// plus distance to the profile's goal weight when one is set.
func (s *WeightService) GetTrend(ctx context.Context, clerkID string) (*weight.Trend, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, weight_kg, logged_at, created_at, updated_at
	FROM weights
	WHERE user_id = $1 AND deleted_at IS NULL
	ORDER BY logged_at DESC
	LIMIT 2
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load weight trend: %w", err)
	}
	defer rows.Close()

	var entries []*weight.Entry
	for rows.Next() {
		e := &weight.Entry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.WeightKg, &e.LoggedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trend := &weight.Trend{}
	if len(entries) > 0 {
		trend.Latest = entries[0]
	}
	if len(entries) > 1 {
		trend.Previous = entries[1]
		trend.DeltaKg = entries[0].WeightKg - entries[1].WeightKg
	}

	var goal *float64
	if err := s.db.QueryRow(ctx, `SELECT goal_weight_kg FROM users WHERE id = $1`, userID).Scan(&goal); err == nil && goal != nil && trend.Latest != nil {
		trend.GoalWeight = goal
		toGoal := trend.Latest.WeightKg - *goal
		trend.ToGoalKg = &toGoal
	}

	err = s.db.QueryRow(ctx, `
	SELECT COUNT(*) FROM weights
	WHERE user_id = $1 AND deleted_at IS NULL AND logged_at > NOW() - INTERVAL '30 days'
	`, userID).Scan(&trend.EntriesLast)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent entries: %w", err)
	}

	return trend, nil
}

func (s *WeightService) DeleteEntry(ctx context.Context, clerkID, entryID string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
	UPDATE weights SET deleted_at = NOW(), updated_at = NOW()
	WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, entryID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete weight entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("weight entry not found")
	}
	return nil
}
