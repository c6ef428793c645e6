package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fastTrackAPI/internal/types/circle"
	"fastTrackAPI/internal/types/notification"
)

type CircleService struct {
	db                  *pgxpool.Pool
	live                *CircleLiveManager
	notificationService *NotificationService
}

func NewCircleService(db *pgxpool.Pool, live *CircleLiveManager, notificationService *NotificationService) *CircleService {
	return &CircleService{db: db, live: live, notificationService: notificationService}
}

func (s *CircleService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found for clerk_id %s: %w", clerkID, err)
	}
	return userID, nil
}

const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newInviteCode() string {
	code := make([]byte, 6)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCodeAlphabet))))
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code)
}

func (s *CircleService) Create(ctx context.Context, clerkID string, req *circle.CreateCircleRequest) (*circle.Circle, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("circle name is required")
	}

	c := &circle.Circle{}
	err = s.db.QueryRow(ctx, `
	INSERT INTO circles (id, name, invite_code, created_by, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	RETURNING id, name, invite_code, created_by, created_at
	`, uuid.New(), req.Name, newInviteCode(), userID).Scan(
		&c.ID, &c.Name, &c.InviteCode, &c.CreatedBy, &c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create circle: %w", err)
	}

	_, err = s.db.Exec(ctx, `
	INSERT INTO circle_members (circle_id, user_id, joined_at) VALUES ($1, $2, NOW())
	`, c.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to add creator to circle: %w", err)
	}

	c.MemberCount = 1
	return c, nil
}

func (s *CircleService) Join(ctx context.Context, clerkID, inviteCode string) (*circle.Circle, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	c := &circle.Circle{}
	err = s.db.QueryRow(ctx, `
	SELECT id, name, invite_code, created_by, created_at
	FROM circles WHERE invite_code = $1
	`, inviteCode).Scan(&c.ID, &c.Name, &c.InviteCode, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("circle not found")
		}
		return nil, fmt.Errorf("failed to find circle: %w", err)
	}

	_, err = s.db.Exec(ctx, `
	INSERT INTO circle_members (circle_id, user_id, joined_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (circle_id, user_id) DO NOTHING
	`, c.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to join circle: %w", err)
	}

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM circle_members WHERE circle_id = $1`, c.ID).Scan(&c.MemberCount); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CircleService) Leave(ctx context.Context, clerkID string, circleID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
	DELETE FROM circle_members WHERE circle_id = $1 AND user_id = $2
	`, circleID, userID)
	if err != nil {
		return fmt.Errorf("failed to leave circle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("not a member")
	}
	return nil
}

func (s *CircleService) ListMine(ctx context.Context, clerkID string) ([]*circle.Circle, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
	SELECT c.id, c.name, c.invite_code, c.created_by, c.created_at,
		(SELECT COUNT(*) FROM circle_members m2 WHERE m2.circle_id = c.id) AS member_count
	FROM circles c
	JOIN circle_members m ON m.circle_id = c.id
	WHERE m.user_id = $1
	ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list circles: %w", err)
	}
	defer rows.Close()

	circles := []*circle.Circle{}
	for rows.Next() {
		c := &circle.Circle{}
		if err := rows.Scan(&c.ID, &c.Name, &c.InviteCode, &c.CreatedBy, &c.CreatedAt, &c.MemberCount); err != nil {
			return nil, err
		}
		circles = append(circles, c)
	}
	return circles, rows.Err()
}

func (s *CircleService) GetMembers(ctx context.Context, clerkID string, circleID uuid.UUID) ([]*circle.Member, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, circleID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
	SELECT u.id, u.username, u.image_url, m.joined_at
	FROM circle_members m
	JOIN users u ON u.id = m.user_id
	WHERE m.circle_id = $1
	ORDER BY m.joined_at
	`, circleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*circle.Member{}
	for rows.Next() {
		m := &circle.Member{}
		if err := rows.Scan(&m.UserID, &m.Username, &m.ImageURL, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *CircleService) requireMembership(ctx context.Context, circleID, userID uuid.UUID) error {
	var isMember bool
	err := s.db.QueryRow(ctx, `
	SELECT EXISTS(SELECT 1 FROM circle_members WHERE circle_id = $1 AND user_id = $2)
	`, circleID, userID).Scan(&isMember)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		return errors.New("not a member of this circle")
	}
	return nil
}

// PostMessage stores the message and fans it out to live WebSocket clients.
func (s *CircleService) PostMessage(ctx context.Context, clerkID string, circleID uuid.UUID, req *circle.PostMessageRequest) (*circle.Message, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, circleID, userID); err != nil {
		return nil, err
	}
	if req.Body == "" || len(req.Body) > 2000 {
		return nil, fmt.Errorf("message body must be 1-2000 characters")
	}

	m := &circle.Message{}
	err = s.db.QueryRow(ctx, `
	WITH inserted AS (
		INSERT INTO circle_messages (id, circle_id, user_id, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, circle_id, user_id, body, created_at
	)
	SELECT i.id, i.circle_id, i.user_id, u.username, u.image_url, i.body, i.created_at
	FROM inserted i JOIN users u ON u.id = i.user_id
	`, uuid.New(), circleID, userID, req.Body).Scan(
		&m.ID, &m.CircleID, &m.UserID, &m.Username, &m.ImageURL, &m.Body, &m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}

	if s.live != nil {
		s.live.BroadcastMessage(circleID.String(), m)
	}
	s.notifyMembers(ctx, circleID, userID, m)
	return m, nil
}

// notifyMembers nudges the other members; preference and quiet-hour gating
// happens inside the notification service.
func (s *CircleService) notifyMembers(ctx context.Context, circleID, senderID uuid.UUID, m *circle.Message) {
	if s.notificationService == nil {
		return
	}

	rows, err := s.db.Query(ctx, `
	SELECT cm.user_id, c.name
	FROM circle_members cm
	JOIN circles c ON c.id = cm.circle_id
	WHERE cm.circle_id = $1 AND cm.user_id != $2
	`, circleID, senderID)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var memberID uuid.UUID
		var circleName string
		if err := rows.Scan(&memberID, &circleName); err != nil {
			continue
		}
		s.notificationService.Notify(ctx, memberID, &notification.CreateNotificationRequest{
			UserID:   memberID,
			Type:     notification.TypeCircleMessage,
			Priority: notification.PriorityLow,
			Title:    circleName,
			Body:     fmt.Sprintf("%s: %s", m.Username, truncate(m.Body, 120)),
			Data:     map[string]any{"circle_id": circleID.String(), "message_id": m.ID.String()},
		})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func (s *CircleService) GetMessages(ctx context.Context, clerkID string, circleID uuid.UUID, page, pageSize int) ([]*circle.Message, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, circleID, userID); err != nil {
		return nil, err
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	if page < 1 {
		page = 1
	}

	rows, err := s.db.Query(ctx, `
	SELECT m.id, m.circle_id, m.user_id, u.username, u.image_url, m.body, m.created_at
	FROM circle_messages m
	JOIN users u ON u.id = m.user_id
	WHERE m.circle_id = $1
	ORDER BY m.created_at DESC
	LIMIT $2 OFFSET $3
	`, circleID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []*circle.Message{}
	for rows.Next() {
		m := &circle.Message{}
		if err := rows.Scan(&m.ID, &m.CircleID, &m.UserID, &m.Username, &m.ImageURL, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// IsMember exposes the membership check for the WebSocket join path.
func (s *CircleService) IsMember(ctx context.Context, clerkID string, circleID uuid.UUID) (bool, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return false, err
	}
	err = s.requireMembership(ctx, circleID, userID)
	return err == nil, nil
}
