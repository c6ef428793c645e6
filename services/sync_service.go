package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fastTrackAPI/internal/types/fast"
	synctypes "fastTrackAPI/internal/types/sync"
	"fastTrackAPI/internal/types/weight"
)

type SyncService struct {
	db *pgxpool.Pool
}

func NewSyncService(db *pgxpool.Pool) *SyncService {
	return &SyncService{db: db}
}

func (s *SyncService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found for clerk_id %s: %w", clerkID, err)
	}
	return userID, nil
}

// serverRow is what the merge decision needs to know about the stored copy.
type serverRow struct {
	updatedAt time.Time
	deleted   bool
}

// mergeOutcome is the last-write-wins rule, isolated so it can be unit
// tested without a database: deleted server rows are tombstones and always
// win; otherwise the newer updated_at wins, server keeping ties.
func mergeOutcome(clientUpdatedAt time.Time, server *serverRow) synctypes.Outcome {
	if server == nil {
		return synctypes.OutcomeInserted
	}
	if server.deleted {
		return synctypes.OutcomeTombstone
	}
	if clientUpdatedAt.After(server.updatedAt) {
		return synctypes.OutcomeUpdated
	}
	return synctypes.OutcomeKeptLocal
}

// Push merges a batch of offline edits and returns everything that changed
// server-side since the client's last sync.
func (s *SyncService) Push(ctx context.Context, clerkID string, req *synctypes.PushRequest) (*synctypes.PushResponse, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	resp := &synctypes.PushResponse{
		Results:  make(map[string]synctypes.Outcome),
		SyncedAt: now.UnixMilli(),
	}

	for i := range req.Fasts {
		f := &req.Fasts[i]
		outcome, err := s.mergeFast(ctx, userID, f)
		if err != nil {
			return nil, err
		}
		resp.Results[f.ID] = outcome
	}
	for i := range req.Weights {
		w := &req.Weights[i]
		outcome, err := s.mergeWeight(ctx, userID, w)
		if err != nil {
			return nil, err
		}
		resp.Results[w.ID] = outcome
	}

	since := time.UnixMilli(req.LastSyncedAt)
	resp.ServerFasts, err = s.fastsChangedSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	resp.ServerWeights, err = s.weightsChangedSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *SyncService) mergeFast(ctx context.Context, userID uuid.UUID, f *fast.Fast) (synctypes.Outcome, error) {
	server, err := s.lookupRow(ctx, `SELECT updated_at, deleted_at IS NOT NULL FROM fasts WHERE id = $1 AND user_id = $2`, f.ID, userID)
	if err != nil {
		return "", err
	}

	outcome := mergeOutcome(f.UpdatedAt, server)
	switch outcome {
	case synctypes.OutcomeInserted:
		_, err = s.db.Exec(ctx, `
		INSERT INTO fasts (id, user_id, start_time, end_time, target_hours, plan_id, plan_name, completed, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), $10)
		`, f.ID, userID, f.StartTime, f.EndTime, f.TargetHours, f.PlanID, f.PlanName, f.Completed, f.Note, f.UpdatedAt)
	case synctypes.OutcomeUpdated:
		_, err = s.db.Exec(ctx, `
		UPDATE fasts
		SET start_time = $3, end_time = $4, target_hours = $5, plan_id = $6, plan_name = $7, completed = $8, note = $9, updated_at = $10
		WHERE id = $1 AND user_id = $2
		`, f.ID, userID, f.StartTime, f.EndTime, f.TargetHours, f.PlanID, f.PlanName, f.Completed, f.Note, f.UpdatedAt)
	}
	if err != nil {
		return "", fmt.Errorf("failed to merge fast %s: %w", f.ID, err)
	}
	return outcome, nil
}

func (s *SyncService) mergeWeight(ctx context.Context, userID uuid.UUID, w *weight.Entry) (synctypes.Outcome, error) {
	server, err := s.lookupRow(ctx, `SELECT updated_at, deleted_at IS NOT NULL FROM weights WHERE id = $1 AND user_id = $2`, w.ID, userID)
	if err != nil {
		return "", err
	}

	outcome := mergeOutcome(w.UpdatedAt, server)
	switch outcome {
	case synctypes.OutcomeInserted:
		_, err = s.db.Exec(ctx, `
		INSERT INTO weights (id, user_id, weight_kg, logged_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), $5)
		`, w.ID, userID, w.WeightKg, w.LoggedAt, w.UpdatedAt)
	case synctypes.OutcomeUpdated:
		_, err = s.db.Exec(ctx, `
		UPDATE weights SET weight_kg = $3, logged_at = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2
		`, w.ID, userID, w.WeightKg, w.LoggedAt, w.UpdatedAt)
	}
	if err != nil {
		return "", fmt.Errorf("failed to merge weight %s: %w", w.ID, err)
	}
	return outcome, nil
}

func (s *SyncService) lookupRow(ctx context.Context, query string, args ...any) (*serverRow, error) {
	row := &serverRow{}
	err := s.db.QueryRow(ctx, query, args...).Scan(&row.updatedAt, &row.deleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up server row: %w", err)
	}
	return row, nil
}

func (s *SyncService) fastsChangedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]fast.Fast, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, start_time, end_time, target_hours, plan_id, plan_name, completed, note, created_at, updated_at
	FROM fasts
	WHERE user_id = $1 AND deleted_at IS NULL AND updated_at > $2
	ORDER BY updated_at
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load changed fasts: %w", err)
	}
	defer rows.Close()

	fasts := []fast.Fast{}
	for rows.Next() {
		var f fast.Fast
		if err := rows.Scan(&f.ID, &f.UserID, &f.StartTime, &f.EndTime, &f.TargetHours,
			&f.PlanID, &f.PlanName, &f.Completed, &f.Note, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		fasts = append(fasts, f)
	}
	return fasts, rows.Err()
}

func (s *SyncService) weightsChangedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]weight.Entry, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, weight_kg, logged_at, created_at, updated_at
	FROM weights
	WHERE user_id = $1 AND deleted_at IS NULL AND updated_at > $2
	ORDER BY updated_at
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load changed weights: %w", err)
	}
	defer rows.Close()

	entries := []weight.Entry{}
	for rows.Next() {
		var w weight.Entry
		if err := rows.Scan(&w.ID, &w.UserID, &w.WeightKg, &w.LoggedAt, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, w)
	}
	return entries, rows.Err()
}

// Snapshot returns the user's full server-side state, for a fresh install.
func (s *SyncService) Snapshot(ctx context.Context, clerkID string) (*synctypes.Snapshot, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	fasts, err := s.fastsChangedSince(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	weights, err := s.weightsChangedSince(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}

	return &synctypes.Snapshot{
		Fasts:    fasts,
		Weights:  weights,
		SyncedAt: time.Now().UnixMilli(),
	}, nil
}
