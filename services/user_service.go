package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	qrcode "github.com/skip2/go-qrcode"

	"fastTrackAPI/internal/badge"
	"fastTrackAPI/internal/stats"
	"fastTrackAPI/internal/types/friendship"
	"fastTrackAPI/internal/types/leaderboard"
	"fastTrackAPI/internal/types/notification"
	"fastTrackAPI/internal/types/user"
)

type UserService struct {
	db                  *pgxpool.Pool
	notificationService *NotificationService
}

func NewUserService(db *pgxpool.Pool, notificationService *NotificationService) *UserService {
	return &UserService{db: db, notificationService: notificationService}
}

const userColumns = `id, clerk_id, email, username, first_name, last_name, image_url, email_verified, is_plus, goal_weight_kg, default_target_hours, unit_preference, total_fasts_count, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
		&u.ImageURL, &u.EmailVerified, &u.IsPlus, &u.GoalWeightKg,
		&u.DefaultTargetHours, &u.UnitPreference, &u.TotalFastsCount,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, default_target_hours, unit_preference, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, 16, 'metric', NOW(), NOW())
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query,
		uuid.New().String(), req.ClerkID, req.Email, req.Username,
		req.FirstName, req.LastName, req.ImageURL,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE clerk_id = $1`, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		goal_weight_kg = COALESCE($6, goal_weight_kg),
		default_target_hours = CASE WHEN $7 > 0 THEN $7 ELSE default_target_hours END,
		unit_preference = COALESCE(NULLIF($8, ''), unit_preference),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query, clerkID,
		req.Username, req.FirstName, req.LastName, req.ImageURL,
		req.GoalWeightKg, req.DefaultTargetHours, req.UnitPreference,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

func (s *UserService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found for clerk_id %s: %w", clerkID, err)
	}
	return userID, nil
}

func (s *UserService) loadHistory(ctx context.Context, userID uuid.UUID) ([]stats.Fast, error) {
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
			return nil, err
		}
		history = append(history, f)
	}
	return history, rows.Err()
}

// GetUserStats runs the statistics engine over the user's history and fills
// in the social counters from their own tables.
func (s *UserService) GetUserStats(ctx context.Context, clerkID string) (*stats.UserStats, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	userStats := stats.Build(history, time.Now())

	err = s.db.QueryRow(ctx, `
	SELECT
		(SELECT COUNT(*) FROM user_badges WHERE user_id = $1),
		(SELECT COUNT(*) FROM friendships
		 WHERE (user_id = $1 OR friend_id = $1) AND status = 'accepted')
	`, userID).Scan(&userStats.BadgesCount, &userStats.FriendsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to load social counters: %w", err)
	}

	return &userStats, nil
}

// GetBadges returns the whole catalog flagged with the user's unlock state.
func (s *UserService) GetBadges(ctx context.Context, clerkID string) ([]badge.WithStatus, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `SELECT badge_id, unlocked_at FROM user_badges WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load badges: %w", err)
	}
	defer rows.Close()

	unlockedAt := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		unlockedAt[id] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]badge.WithStatus, 0, len(badge.Catalog))
	for _, b := range badge.Catalog {
		ws := badge.WithStatus{Badge: b}
		if at, ok := unlockedAt[b.ID]; ok {
			ws.Unlocked = true
			t := at
			ws.UnlockedAt = &t
		}
		out = append(out, ws)
	}
	return out, nil
}

func (s *UserService) AddFriend(ctx context.Context, clerkID string, friendID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}
	if userID == friendID {
		return fmt.Errorf("cannot friend yourself")
	}

	_, err = s.db.Exec(ctx, `
	INSERT INTO friendships (id, user_id, friend_id, status, created_at)
	VALUES ($1, $2, $3, 'pending', NOW())
	ON CONFLICT (user_id, friend_id) DO NOTHING
	`, uuid.New(), userID, friendID)
	if err != nil {
		return fmt.Errorf("failed to create friend request: %w", err)
	}

	var username string
	if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&username); err == nil {
		s.notificationService.Notify(ctx, friendID, &notification.CreateNotificationRequest{
			UserID:   friendID,
			Type:     notification.TypeFriendRequest,
			Priority: notification.PriorityNormal,
			Title:    "New friend request",
			Body:     fmt.Sprintf("%s wants to be your friend", username),
			Data:     map[string]any{"from_user_id": userID.String()},
		})
	}
	return nil
}

func (s *UserService) AcceptFriend(ctx context.Context, clerkID string, friendID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
	UPDATE friendships SET status = 'accepted'
	WHERE user_id = $1 AND friend_id = $2 AND status = 'pending'
	`, friendID, userID)
	if err != nil {
		return fmt.Errorf("failed to accept friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no pending request from that user")
	}
	return nil
}

func (s *UserService) RemoveFriend(ctx context.Context, clerkID string, friendID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
	DELETE FROM friendships
	WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	`, userID, friendID)
	if err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	return nil
}

// GetFriends lists accepted friends with their cached streak and the week's
// fasting hours.
func (s *UserService) GetFriends(ctx context.Context, clerkID string) ([]*friendship.Friend, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
	SELECT u.id, u.username, u.image_url,
		COALESCE(st.current_streak, 0) AS current_streak,
		COALESCE((
			SELECT SUM((f.end_time - f.start_time) / 3600000.0)
			FROM fasts f
			WHERE f.user_id = u.id AND f.completed = true AND f.deleted_at IS NULL
			  AND f.end_time >= (EXTRACT(EPOCH FROM date_trunc('week', NOW())) * 1000)::bigint
		), 0) AS hours_this_week
	FROM friendships fr
	JOIN users u ON u.id = CASE WHEN fr.user_id = $1 THEN fr.friend_id ELSE fr.user_id END
	LEFT JOIN streaks st ON st.user_id = u.id
	WHERE (fr.user_id = $1 OR fr.friend_id = $1) AND fr.status = 'accepted'
	ORDER BY current_streak DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	friends := []*friendship.Friend{}
	for rows.Next() {
		f := &friendship.Friend{}
		if err := rows.Scan(&f.UserID, &f.Username, &f.ImageURL, &f.CurrentStreak, &f.HoursThisWeek); err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// GetLeaderboard ranks the user and their friends by this week's fasting
// hours, streak as tiebreaker.
func (s *UserService) GetLeaderboard(ctx context.Context, clerkID string) (*leaderboard.Leaderboard, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
	WITH circle AS (
		SELECT $1::uuid AS id
		UNION
		SELECT CASE WHEN fr.user_id = $1 THEN fr.friend_id ELSE fr.user_id END
		FROM friendships fr
		WHERE (fr.user_id = $1 OR fr.friend_id = $1) AND fr.status = 'accepted'
	),
	weekly AS (
		SELECT u.id AS user_id, u.username, u.image_url,
			COALESCE(SUM((f.end_time - f.start_time) / 3600000.0), 0) AS hours_this_week,
			COALESCE(MAX(st.current_streak), 0) AS current_streak
		FROM users u
		LEFT JOIN fasts f ON f.user_id = u.id AND f.completed = true AND f.deleted_at IS NULL
			AND f.end_time >= (EXTRACT(EPOCH FROM date_trunc('week', NOW())) * 1000)::bigint
		LEFT JOIN streaks st ON st.user_id = u.id
		WHERE u.id IN (SELECT id FROM circle)
		GROUP BY u.id, u.username, u.image_url
	)
	SELECT user_id, username, image_url, hours_this_week, current_streak,
		RANK() OVER (ORDER BY hours_this_week DESC, current_streak DESC) AS rank
	FROM weekly
	ORDER BY rank
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard: %w", err)
	}
	defer rows.Close()

	lb := &leaderboard.Leaderboard{Entries: []*leaderboard.LeaderboardEntry{}}
	for rows.Next() {
		entry := &leaderboard.LeaderboardEntry{}
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.ImageURL,
			&entry.HoursThisWeek, &entry.CurrentStreak, &entry.Rank); err != nil {
			return nil, err
		}
		lb.Entries = append(lb.Entries, entry)
		if entry.UserID == userID {
			lb.UserPosition = entry
		}
	}
	lb.TotalUsers = len(lb.Entries)
	return lb, rows.Err()
}

// GetGlobalLeaderboard ranks the top users across the whole install base by
// this week's fasting hours. The caller's own row is marked when it makes
// the cut; otherwise UserPosition stays nil.
func (s *UserService) GetGlobalLeaderboard(ctx context.Context, clerkID string, limit int) (*leaderboard.Leaderboard, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
	WITH weekly AS (
		SELECT u.id AS user_id, u.username, u.image_url,
			COALESCE(SUM((f.end_time - f.start_time) / 3600000.0), 0) AS hours_this_week,
			COALESCE(MAX(st.current_streak), 0) AS current_streak
		FROM users u
		LEFT JOIN fasts f ON f.user_id = u.id AND f.completed = true AND f.deleted_at IS NULL
			AND f.end_time >= (EXTRACT(EPOCH FROM date_trunc('week', NOW())) * 1000)::bigint
		LEFT JOIN streaks st ON st.user_id = u.id
		GROUP BY u.id, u.username, u.image_url
	)
	SELECT user_id, username, image_url, hours_this_week, current_streak,
		RANK() OVER (ORDER BY hours_this_week DESC, current_streak DESC) AS rank
	FROM weekly
	ORDER BY rank
	LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build global leaderboard: %w", err)
	}
	defer rows.Close()

	lb := &leaderboard.Leaderboard{Entries: []*leaderboard.LeaderboardEntry{}}
	for rows.Next() {
		entry := &leaderboard.LeaderboardEntry{}
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.ImageURL,
			&entry.HoursThisWeek, &entry.CurrentStreak, &entry.Rank); err != nil {
			return nil, err
		}
		lb.Entries = append(lb.Entries, entry)
		if entry.UserID == userID {
			lb.UserPosition = entry
		}
	}
	lb.TotalUsers = len(lb.Entries)
	return lb, rows.Err()
}

func (s *UserService) SearchUsers(ctx context.Context, clerkID, query string, limit int) ([]*user.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	rows, err := s.db.Query(ctx, `
	SELECT `+userColumns+`
	FROM users
	WHERE username ILIKE '%' || $1 || '%' AND clerk_id != $2
	ORDER BY username
	LIMIT $3
	`, query, clerkID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ProfileView is the friend-discovery payload: profile, stats, badges and
// whether the viewer is already a friend.
type ProfileView struct {
	User     *user.User         `json:"user"`
	Stats    *stats.UserStats   `json:"stats"`
	Badges   []badge.WithStatus `json:"badges"`
	IsFriend bool               `json:"is_friend"`
}

func (s *UserService) GetProfileView(ctx context.Context, clerkID string, targetID uuid.UUID) (*ProfileView, error) {
	viewerID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	target, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, targetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	targetStats, err := s.GetUserStats(ctx, target.ClerkID)
	if err != nil {
		return nil, err
	}
	targetBadges, err := s.GetBadges(ctx, target.ClerkID)
	if err != nil {
		return nil, err
	}

	var isFriend bool
	err = s.db.QueryRow(ctx, `
	SELECT EXISTS(
		SELECT 1 FROM friendships
		WHERE ((user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1))
		AND status = 'accepted'
	)`, viewerID, targetID).Scan(&isFriend)
	if err != nil {
		log.Printf("GetProfileView: friendship check failed: %v", err)
		isFriend = false
	}

	return &ProfileView{User: target, Stats: targetStats, Badges: targetBadges, IsFriend: isFriend}, nil
}

// GenerateInviteQR issues a short-lived invite token rendered as a QR PNG.
// Scanning it friends the two users directly (no pending step).
func (s *UserService) GenerateInviteQR(ctx context.Context, clerkID string) (*friendship.InviteQR, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	token := uuid.New().String()
	expiresAt := time.Now().Add(15 * time.Minute)

	_, err = s.db.Exec(ctx, `
	INSERT INTO friend_invites (token, user_id, expires_at, created_at)
	VALUES ($1, $2, $3, NOW())
	`, token, userID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store invite: %w", err)
	}

	pngBytes, err := qrcode.Encode("fasttrack://invite/"+token, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR png: %w", err)
	}

	return &friendship.InviteQR{
		Token:     token,
		ImageData: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		ExpiresAt: expiresAt,
	}, nil
}

func (s *UserService) AcceptInviteToken(ctx context.Context, clerkID, token string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	var inviterID uuid.UUID
	err = s.db.QueryRow(ctx, `
	SELECT user_id FROM friend_invites WHERE token = $1 AND expires_at > NOW()
	`, token).Scan(&inviterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("invite expired or not found")
		}
		return fmt.Errorf("failed to look up invite: %w", err)
	}
	if inviterID == userID {
		return fmt.Errorf("cannot accept your own invite")
	}

	_, err = s.db.Exec(ctx, `
	INSERT INTO friendships (id, user_id, friend_id, status, created_at)
	VALUES ($1, $2, $3, 'accepted', NOW())
	ON CONFLICT (user_id, friend_id) DO UPDATE SET status = 'accepted'
	`, uuid.New(), inviterID, userID)
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

// IsPlus reports whether the user has an active FastTrack Plus subscription.
func (s *UserService) IsPlus(ctx context.Context, clerkID string) (bool, error) {
	var isPlus bool
	err := s.db.QueryRow(ctx, `SELECT is_plus FROM users WHERE clerk_id = $1`, clerkID).Scan(&isPlus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("user not found")
		}
		return false, fmt.Errorf("failed to check plus status: %w", err)
	}
	return isPlus, nil
}

// SetPlus flips the premium flag; called from the Paddle webhook.
func (s *UserService) SetPlus(ctx context.Context, userID uuid.UUID, plus bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET is_plus = $2, updated_at = NOW() WHERE id = $1`, userID, plus)
	if err != nil {
		return fmt.Errorf("failed to update plus status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}
