package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fastTrackAPI/internal/types/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationDispatcher drains an in-memory queue through a small worker
// pool and runs the periodic jobs around it.
type NotificationDispatcher struct {
	service      *NotificationService
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *DispatchJob
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

type DispatchJob struct {
	Notification *notification.Notification
	Preferences  *notification.NotificationPreferences
}

func NewNotificationDispatcher(service *NotificationService) *NotificationDispatcher {
	dispatcher := &NotificationDispatcher{
		service:  service,
		workers:  5,
		jobQueue: make(chan *DispatchJob, 100),
		stopChan: make(chan struct{}),
	}

	dispatcher.startWorkers()

	go dispatcher.processScheduledNotifications()
	go dispatcher.runStreakRiskReminders()
	go dispatcher.cleanupExpiredNotifications()

	return dispatcher
}

// SetPushProvider injects the real FCM provider from main.go. Without one,
// notifications land in the inbox but no push goes out.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notif := job.Notification
	prefs := job.Preferences

	if prefs.PushEnabled && len(prefs.DeviceTokens) > 0 && d.pushProvider != nil {
		err := d.pushProvider.SendPush(ctx, prefs.DeviceTokens, notif.Title, notif.Body, notif.Data)
		if err != nil {
			log.Printf("Push failed for user %s: %v", notif.UserID, err)
			d.markAsFailed(ctx, notif.ID.String())
			return
		}
	}

	d.markAsSent(ctx, notif.ID.String())
}

func (d *NotificationDispatcher) DispatchNotification(ctx context.Context, notif *notification.Notification, prefs *notification.NotificationPreferences) {
	job := &DispatchJob{
		Notification: notif,
		Preferences:  prefs,
	}

	select {
	case d.jobQueue <- job:
	case <-time.After(5 * time.Second):
		log.Printf("Failed to queue notification %s: queue full", notif.ID)
	}
}

func (d *NotificationDispatcher) processScheduledNotifications() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.processDueNotifications()
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processDueNotifications() {
	ctx := context.Background()

	rows, err := d.service.db.Query(ctx, `
	SELECT id, user_id, type, priority, status, title, body, is_read, scheduled_for, created_at, expires_at
	FROM notifications
	WHERE status = 'pending'
	  AND scheduled_for IS NOT NULL
	  AND scheduled_for <= NOW()
	  AND (expires_at IS NULL OR expires_at > NOW())
	LIMIT 100
	`)
	if err != nil {
		log.Printf("Failed to fetch scheduled notifications: %v", err)
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		notif := &notification.Notification{}
		err := rows.Scan(
			&notif.ID, &notif.UserID, &notif.Type, &notif.Priority, &notif.Status,
			&notif.Title, &notif.Body, &notif.IsRead, &notif.ScheduledFor,
			&notif.CreatedAt, &notif.ExpiresAt,
		)
		if err != nil {
			log.Printf("Failed to scan scheduled notification: %v", err)
			continue
		}

		prefs, err := d.service.GetPreferencesByUUID(ctx, notif.UserID)
		if err != nil {
			log.Printf("Failed to get preferences for user %s: %v", notif.UserID, err)
			continue
		}

		d.DispatchNotification(ctx, notif, prefs)
		count++
	}

	if count > 0 {
		log.Printf("Processed %d scheduled notifications", count)
	}
}

// runStreakRiskReminders pings users whose streak would break at midnight:
// an active streak from yesterday, no completed fast today, evening local
// time. The streaks cache table keeps this a cheap query.
func (d *NotificationDispatcher) runStreakRiskReminders() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if h := time.Now().Hour(); h >= 18 && h <= 21 {
				d.sendStreakRiskReminders()
			}
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) sendStreakRiskReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := d.service.db.Query(ctx, `
	SELECT s.user_id, s.current_streak
	FROM streaks s
	WHERE s.current_streak > 0
	  AND NOT EXISTS (
		SELECT 1 FROM fasts f
		WHERE f.user_id = s.user_id
		  AND f.completed = true
		  AND f.deleted_at IS NULL
		  AND to_timestamp(f.end_time / 1000.0)::date = CURRENT_DATE
	  )
	  AND NOT EXISTS (
		SELECT 1 FROM notifications n
		WHERE n.user_id = s.user_id
		  AND n.type = 'streak_risk'
		  AND n.created_at::date = CURRENT_DATE
	  )
	LIMIT 500
	`)
	if err != nil {
		log.Printf("Failed to find at-risk streaks: %v", err)
		return
	}
	defer rows.Close()

	type atRisk struct {
		userID uuid.UUID
		streak int
	}
	var users []atRisk
	for rows.Next() {
		var u atRisk
		if err := rows.Scan(&u.userID, &u.streak); err != nil {
			continue
		}
		users = append(users, u)
	}

	for _, u := range users {
		d.service.Notify(ctx, u.userID, &notification.CreateNotificationRequest{
			Type:     notification.TypeStreakRisk,
			Priority: notification.PriorityHigh,
			Title:    "Your streak is at risk",
			Body:     "Finish a fast today to keep your streak alive.",
			Data:     map[string]any{"current_streak": u.streak},
		})
	}

	if len(users) > 0 {
		log.Printf("Sent %d streak risk reminders", len(users))
	}
}

func (d *NotificationDispatcher) cleanupExpiredNotifications() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.performCleanup()
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) performCleanup() {
	ctx := context.Background()

	result, err := d.service.db.Exec(ctx, `
	DELETE FROM notifications
	WHERE expires_at < NOW() AND status = 'sent'
	`)
	if err != nil {
		log.Printf("Failed to cleanup expired notifications: %v", err)
		return
	}
	if n := result.RowsAffected(); n > 0 {
		log.Printf("Cleaned up %d expired notifications", n)
	}

	result, err = d.service.db.Exec(ctx, `
	DELETE FROM notifications
	WHERE is_read = true AND created_at < NOW() - INTERVAL '30 days'
	`)
	if err != nil {
		log.Printf("Failed to cleanup old read notifications: %v", err)
		return
	}
	if n := result.RowsAffected(); n > 0 {
		log.Printf("Cleaned up %d old read notifications", n)
	}
}

func (d *NotificationDispatcher) markAsSent(ctx context.Context, notificationID string) {
	_, err := d.service.db.Exec(ctx, `
	UPDATE notifications SET status = 'sent' WHERE id = $1
	`, notificationID)
	if err != nil {
		log.Printf("Failed to mark notification %s as sent: %v", notificationID, err)
	}
}

func (d *NotificationDispatcher) markAsFailed(ctx context.Context, notificationID string) {
	_, err := d.service.db.Exec(ctx, `
	UPDATE notifications SET status = 'failed' WHERE id = $1
	`, notificationID)
	if err != nil {
		log.Printf("Failed to mark notification %s as failed: %v", notificationID, err)
	}
}

func (d *NotificationDispatcher) Stop() {
	log.Println("Stopping notification dispatcher...")
	close(d.stopChan)
	d.wg.Wait()
	log.Println("Notification dispatcher stopped")
}
