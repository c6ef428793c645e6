package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fastTrackAPI/internal/types/notification"
)

type NotificationService struct {
	db         *pgxpool.Pool
	dispatcher *NotificationDispatcher
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	service := &NotificationService{
		db: db,
	}
	// Memory-based queue, no external broker.
	service.dispatcher = NewNotificationDispatcher(service)
	return service
}

func (s *NotificationService) Dispatcher() *NotificationDispatcher {
	return s.dispatcher
}

func (s *NotificationService) SetPushProvider(provider PushNotificationProvider) {
	s.dispatcher.SetPushProvider(provider)
}

func (s *NotificationService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, "SELECT id FROM users WHERE clerk_id = $1", clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found for clerk_id %s: %w", clerkID, err)
	}
	return userID, nil
}

// Notify is the fire-and-forget path used by other services. Failures are
// logged, never propagated to the caller's request.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, req *notification.CreateNotificationRequest) {
	req.UserID = userID
	if _, err := s.CreateNotification(ctx, req); err != nil {
		log.Printf("Failed to create %s notification for user %s: %v", req.Type, userID, err)
	}
}

func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	if req.Title == "" || req.Body == "" {
		return nil, errors.New("notification title and body are required")
	}
	priority := req.Priority
	if priority == "" {
		priority = notification.PriorityNormal
	}

	prefs, err := s.GetPreferencesByUUID(ctx, req.UserID)
	if err != nil {
		prefs, err = s.createDefaultPreferences(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to create preferences: %w", err)
		}
	}

	if !prefs.SocialAlerts && isSocialType(req.Type) {
		return nil, nil // user opted out of social noise
	}
	if !prefs.StreakReminders && req.Type == notification.TypeStreakRisk {
		return nil, nil
	}

	var scheduledFor *time.Time
	if s.isInQuietHours(prefs, time.Now()) && priority != notification.PriorityHigh {
		after := s.afterQuietHours(prefs, time.Now())
		scheduledFor = &after
	}

	expiresAt := time.Now().Add(7 * 24 * time.Hour)
	dataJSON, _ := json.Marshal(req.Data)

	notif := &notification.Notification{}
	var dataStr string
	err = s.db.QueryRow(ctx, `
	INSERT INTO notifications (id, user_id, type, priority, status, title, body, data, scheduled_for, created_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), $10)
	RETURNING id, user_id, type, priority, status, title, body, data, is_read, scheduled_for, created_at, expires_at
	`, uuid.New(), req.UserID, req.Type, priority, notification.StatusPending,
		req.Title, req.Body, dataJSON, scheduledFor, expiresAt,
	).Scan(
		&notif.ID, &notif.UserID, &notif.Type, &notif.Priority, &notif.Status,
		&notif.Title, &notif.Body, &dataStr, &notif.IsRead, &notif.ScheduledFor,
		&notif.CreatedAt, &notif.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	json.Unmarshal([]byte(dataStr), &notif.Data)

	if scheduledFor == nil {
		go s.dispatcher.DispatchNotification(context.Background(), notif, prefs)
	}
	return notif, nil
}

func isSocialType(t notification.NotificationType) bool {
	switch t {
	case notification.TypeFriendRequest, notification.TypeCircleMessage:
		return true
	}
	return false
}

func (s *NotificationService) isInQuietHours(prefs *notification.NotificationPreferences, now time.Time) bool {
	if prefs.QuietHoursStart == prefs.QuietHoursEnd {
		return false
	}
	hour := now.Hour()
	if prefs.QuietHoursStart < prefs.QuietHoursEnd {
		return hour >= prefs.QuietHoursStart && hour < prefs.QuietHoursEnd
	}
	// Window crosses midnight, e.g. 22 -> 7.
	return hour >= prefs.QuietHoursStart || hour < prefs.QuietHoursEnd
}

func (s *NotificationService) afterQuietHours(prefs *notification.NotificationPreferences, now time.Time) time.Time {
	end := time.Date(now.Year(), now.Month(), now.Day(), prefs.QuietHoursEnd, 0, 0, 0, now.Location())
	if !end.After(now) {
		end = end.Add(24 * time.Hour)
	}
	return end
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string, page, pageSize int, unreadOnly bool) ([]*notification.Notification, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if page < 1 {
		page = 1
	}

	whereClause := "WHERE user_id = $1"
	if unreadOnly {
		whereClause += " AND is_read = false"
	}

	query := fmt.Sprintf(`
	SELECT id, user_id, type, priority, status, title, body, data, is_read, scheduled_for, created_at, expires_at
	FROM notifications
	%s
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3
	`, whereClause)

	rows, err := s.db.Query(ctx, query, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*notification.Notification{}
	for rows.Next() {
		notif := &notification.Notification{}
		var dataStr string
		err := rows.Scan(
			&notif.ID, &notif.UserID, &notif.Type, &notif.Priority, &notif.Status,
			&notif.Title, &notif.Body, &dataStr, &notif.IsRead, &notif.ScheduledFor,
			&notif.CreatedAt, &notif.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(dataStr), &notif.Data)
		notifications = append(notifications, notif)
	}
	return notifications, rows.Err()
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, clerkID string, notificationID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, `
	UPDATE notifications SET is_read = true
	WHERE id = $1 AND user_id = $2 AND is_read = false
	`, notificationID, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.New("notification not found or already read")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, "UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false", userID)
	return err
}

func (s *NotificationService) DeleteNotification(ctx context.Context, clerkID string, notificationID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, "DELETE FROM notifications WHERE id = $1 AND user_id = $2", notificationID, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.New("notification not found")
	}
	return nil
}

func (s *NotificationService) GetPreferences(ctx context.Context, clerkID string) (*notification.NotificationPreferences, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.GetPreferencesByUUID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.createDefaultPreferences(ctx, userID)
		}
		return nil, err
	}
	return prefs, nil
}

func (s *NotificationService) GetPreferencesByUUID(ctx context.Context, userID uuid.UUID) (*notification.NotificationPreferences, error) {
	prefs := &notification.NotificationPreferences{}
	err := s.db.QueryRow(ctx, `
	SELECT user_id, push_enabled, streak_reminders, social_alerts, quiet_hours_start, quiet_hours_end
	FROM notification_preferences WHERE user_id = $1
	`, userID).Scan(
		&prefs.UserID, &prefs.PushEnabled, &prefs.StreakReminders,
		&prefs.SocialAlerts, &prefs.QuietHoursStart, &prefs.QuietHoursEnd,
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, "SELECT token, platform FROM device_tokens WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		prefs.DeviceTokens = append(prefs.DeviceTokens, t)
	}
	return prefs, rows.Err()
}

func (s *NotificationService) createDefaultPreferences(ctx context.Context, userID uuid.UUID) (*notification.NotificationPreferences, error) {
	prefs := &notification.NotificationPreferences{}
	err := s.db.QueryRow(ctx, `
	INSERT INTO notification_preferences (user_id, push_enabled, streak_reminders, social_alerts, quiet_hours_start, quiet_hours_end)
	VALUES ($1, true, true, true, 22, 8)
	ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	RETURNING user_id, push_enabled, streak_reminders, social_alerts, quiet_hours_start, quiet_hours_end
	`, userID).Scan(
		&prefs.UserID, &prefs.PushEnabled, &prefs.StreakReminders,
		&prefs.SocialAlerts, &prefs.QuietHoursStart, &prefs.QuietHoursEnd,
	)
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, clerkID string, prefs *notification.NotificationPreferences) (*notification.NotificationPreferences, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if prefs.QuietHoursStart < 0 || prefs.QuietHoursStart > 23 || prefs.QuietHoursEnd < 0 || prefs.QuietHoursEnd > 23 {
		return nil, errors.New("quiet hours must be 0-23")
	}

	updated := &notification.NotificationPreferences{}
	err = s.db.QueryRow(ctx, `
	INSERT INTO notification_preferences (user_id, push_enabled, streak_reminders, social_alerts, quiet_hours_start, quiet_hours_end)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id) DO UPDATE SET
		push_enabled = EXCLUDED.push_enabled,
		streak_reminders = EXCLUDED.streak_reminders,
		social_alerts = EXCLUDED.social_alerts,
		quiet_hours_start = EXCLUDED.quiet_hours_start,
		quiet_hours_end = EXCLUDED.quiet_hours_end
	RETURNING user_id, push_enabled, streak_reminders, social_alerts, quiet_hours_start, quiet_hours_end
	`, userID, prefs.PushEnabled, prefs.StreakReminders, prefs.SocialAlerts,
		prefs.QuietHoursStart, prefs.QuietHoursEnd,
	).Scan(
		&updated.UserID, &updated.PushEnabled, &updated.StreakReminders,
		&updated.SocialAlerts, &updated.QuietHoursStart, &updated.QuietHoursEnd,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return updated, nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}
	if req.Token == "" {
		return errors.New("device token is required")
	}
	switch req.Platform {
	case "ios", "android", "web":
	default:
		return fmt.Errorf("unknown platform %q", req.Platform)
	}

	// A token moving between accounts re-homes to the latest user.
	_, err = s.db.Exec(ctx, `
	INSERT INTO device_tokens (token, user_id, platform, registered_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, registered_at = NOW()
	`, req.Token, userID, req.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) UnregisterDevice(ctx context.Context, clerkID, token string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, "DELETE FROM device_tokens WHERE token = $1 AND user_id = $2", token, userID)
	return err
}
