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

	"fastTrackAPI/internal/stats"
	"fastTrackAPI/internal/types/challenge"
	"fastTrackAPI/internal/types/notification"
)

type ChallengeService struct {
	db                  *pgxpool.Pool
	fastService         *FastService
	notificationService *NotificationService
	stopRotation        chan struct{}
}

func NewChallengeService(db *pgxpool.Pool, fastService *FastService, notificationService *NotificationService) *ChallengeService {
	return &ChallengeService{
		db:                  db,
		fastService:         fastService,
		notificationService: notificationService,
		stopRotation:        make(chan struct{}),
	}
}

func (s *ChallengeService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found for clerk_id %s: %w", clerkID, err)
	}
	return userID, nil
}

const challengeColumns = `id, name, description, metric_type, target_value, start_date, end_date, is_active, created_by, created_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.MetricType, &c.TargetValue,
		&c.StartDate, &c.EndDate, &c.IsActive, &c.CreatedBy, &c.CreatedAt)
	return c, err
}

func (s *ChallengeService) ListActive(ctx context.Context) ([]*challenge.Challenge, error) {
	rows, err := s.db.Query(ctx, `
	SELECT `+challengeColumns+`
	FROM challenges
	WHERE is_active = true AND end_date > NOW()
	ORDER BY start_date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	challenges := []*challenge.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

// Join is an idempotent upsert: joining twice (or two concurrent joins) ends
// up with one participant row.
func (s *ChallengeService) Join(ctx context.Context, clerkID string, challengeID uuid.UUID) (*challenge.Participant, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.db.QueryRow(ctx, `
	SELECT EXISTS(SELECT 1 FROM challenges WHERE id = $1 AND is_active = true AND end_date > NOW())
	`, challengeID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check challenge: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("challenge not found or already over")
	}

	p := &challenge.Participant{}
	err = s.db.QueryRow(ctx, `
	INSERT INTO challenge_participants (id, user_id, challenge_id, progress, completed, joined_at)
	VALUES ($1, $2, $3, 0, false, NOW())
	ON CONFLICT (user_id, challenge_id) DO UPDATE SET user_id = EXCLUDED.user_id
	RETURNING id, user_id, challenge_id, progress, completed, completed_at, joined_at
	`, uuid.New(), userID, challengeID).Scan(
		&p.ID, &p.UserID, &p.ChallengeID, &p.Progress, &p.Completed, &p.CompletedAt, &p.JoinedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to join challenge: %w", err)
	}
	return p, nil
}

func (s *ChallengeService) Leave(ctx context.Context, clerkID string, challengeID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
	DELETE FROM challenge_participants WHERE user_id = $1 AND challenge_id = $2
	`, userID, challengeID)
	if err != nil {
		return fmt.Errorf("failed to leave challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("not a participant")
	}
	return nil
}

// GetStatus recomputes the caller's progress from their fast history and
// then persists it. The computation is pure; the write is a separate,
// explicit step so reading never mutates state implicitly beyond the cache
// refresh, and completed_at is set exactly once, on the false→true
// transition.
func (s *ChallengeService) GetStatus(ctx context.Context, clerkID string, challengeID uuid.UUID) (*challenge.Status, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	c, err := scanChallenge(s.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, challengeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge not found")
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	status := &challenge.Status{Challenge: c}

	p := &challenge.Participant{}
	err = s.db.QueryRow(ctx, `
	SELECT id, user_id, challenge_id, progress, completed, completed_at, joined_at
	FROM challenge_participants
	WHERE user_id = $1 AND challenge_id = $2
	`, userID, challengeID).Scan(
		&p.ID, &p.UserID, &p.ChallengeID, &p.Progress, &p.Completed, &p.CompletedAt, &p.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return status, nil // not joined, challenge only
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	history, err := s.fastService.LoadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress := stats.ChallengeProgress(c.MetricType, history,
		stats.Window{Start: c.StartDate, End: c.EndDate}, time.Now())

	if err := s.persistProgress(ctx, c, p, progress); err != nil {
		return nil, err
	}

	status.Participant = p
	if c.TargetValue > 0 {
		status.PercentDone = float64(p.Progress) / float64(c.TargetValue) * 100
		if status.PercentDone > 100 {
			status.PercentDone = 100
		}
	}
	return status, nil
}

// persistProgress writes the freshly computed progress back to the cache
// row. The completed flag guard in the WHERE clause makes the completion
// transition first-writer-wins under concurrent reads.
func (s *ChallengeService) persistProgress(ctx context.Context, c *challenge.Challenge, p *challenge.Participant, progress int) error {
	justCompleted := !p.Completed && progress >= c.TargetValue

	if justCompleted {
		err := s.db.QueryRow(ctx, `
		UPDATE challenge_participants
		SET progress = $3, completed = true, completed_at = NOW()
		WHERE id = $1 AND completed = false AND challenge_id = $2
		RETURNING completed_at
		`, p.ID, c.ID, progress).Scan(&p.CompletedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Lost the race; another read already flipped it.
				justCompleted = false
			} else {
				return fmt.Errorf("failed to persist completion: %w", err)
			}
		}
		p.Progress = progress
		p.Completed = true

		if justCompleted {
			s.notificationService.Notify(ctx, p.UserID, &notification.CreateNotificationRequest{
				UserID:   p.UserID,
				Type:     notification.TypeChallengeComplete,
				Priority: notification.PriorityHigh,
				Title:    "Challenge complete",
				Body:     fmt.Sprintf("You finished %q", c.Name),
				Data:     map[string]any{"challenge_id": c.ID.String()},
			})
		}
		return nil
	}

	_, err := s.db.Exec(ctx, `
	UPDATE challenge_participants SET progress = $2 WHERE id = $1
	`, p.ID, progress)
	if err != nil {
		return fmt.Errorf("failed to persist progress: %w", err)
	}
	p.Progress = progress
	return nil
}

func (s *ChallengeService) GetLeaderboard(ctx context.Context, challengeID uuid.UUID, limit int) ([]*challenge.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
	SELECT cp.user_id, u.username, u.image_url, cp.progress, cp.completed,
		RANK() OVER (ORDER BY cp.progress DESC, cp.joined_at ASC) AS rank
	FROM challenge_participants cp
	JOIN users u ON u.id = cp.user_id
	WHERE cp.challenge_id = $1
	ORDER BY rank
	LIMIT $2
	`, challengeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build challenge leaderboard: %w", err)
	}
	defer rows.Close()

	board := []*challenge.LeaderboardRow{}
	for rows.Next() {
		row := &challenge.LeaderboardRow{}
		if err := rows.Scan(&row.UserID, &row.Username, &row.ImageURL, &row.Progress, &row.Completed, &row.Rank); err != nil {
			return nil, err
		}
		board = append(board, row)
	}
	return board, rows.Err()
}

// StartWeeklyRotation runs the rotation loop: ended challenges get
// deactivated and a fresh weekly challenge is seeded from the templates
// table when none is live. Call once from main.
func (s *ChallengeService) StartWeeklyRotation() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.rotate()
			case <-s.stopRotation:
				return
			}
		}
	}()
}

func (s *ChallengeService) StopWeeklyRotation() {
	close(s.stopRotation)
}

func (s *ChallengeService) rotate() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.db.Exec(ctx, `
	UPDATE challenges SET is_active = false WHERE is_active = true AND end_date <= NOW()
	`); err != nil {
		log.Printf("Challenge rotation: deactivate failed: %v", err)
		return
	}

	// Seed next week's challenge from a random template if nothing is live.
	_, err := s.db.Exec(ctx, `
	INSERT INTO challenges (id, name, description, metric_type, target_value, start_date, end_date, is_active, created_at)
	SELECT gen_random_uuid(), t.name, t.description, t.metric_type, t.target_value,
		date_trunc('week', NOW()), date_trunc('week', NOW()) + INTERVAL '7 days', true, NOW()
	FROM challenge_templates t
	WHERE NOT EXISTS (SELECT 1 FROM challenges WHERE is_active = true AND end_date > NOW())
	ORDER BY random()
	LIMIT 1
	`)
	if err != nil {
		log.Printf("Challenge rotation: seed failed: %v", err)
	}
}
