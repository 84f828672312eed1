package reminders

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"io.winapps.healthjournal/internal/aggregator"
	"io.winapps.healthjournal/internal/dates"
	models "io.winapps.healthjournal/internal/models/entry"
	notificationsmodels "io.winapps.healthjournal/internal/models/notifications"
	"io.winapps.healthjournal/internal/store"
)

const (
	DefaultSchedule = "0 20 * * *"

	reminderTitle = "How was your day?"
	reminderBody  = "You haven't written in your diary today."
	channelID     = "reminders"
)

// Sender delivers one FCM message. *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Scheduler sends the evening diary reminder to users who have not written
// a diary entry today in their own timezone.
type Scheduler struct {
	registry *Registry
	store    store.Store
	sender   Sender
	logger   *zap.SugaredLogger
	cron     *cron.Cron
	now      func() time.Time
}

func NewScheduler(registry *Registry, s store.Store, sender Sender, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		registry: registry,
		store:    s,
		sender:   sender,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the reminder on schedule (standard five-field cron) in loc.
func (s *Scheduler) Start(schedule string, loc *time.Location) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Errorw("diary reminder run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	s.cron = c
	c.Start()
	s.logger.Infow("diary reminders scheduled", "schedule", schedule, "timezone", loc.String())
	return nil
}

// Stop stops the cron and waits for a running job.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce checks every registered user and returns how many reminders were
// sent. A failure for one user is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	users, err := s.registry.Users(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, uid := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		ok, err := s.remind(ctx, uid)
		if err != nil {
			s.logger.Warnw("diary reminder skipped", "user_uid", uid, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	s.logger.Infow("diary reminder run finished", "users", len(users), "sent", sent)
	return sent, nil
}

func (s *Scheduler) remind(ctx context.Context, uid string) (bool, error) {
	token, err := s.registry.Get(ctx, uid)
	if err != nil {
		return false, err
	}

	loc, err := dates.LoadLocation(token.Timezone, time.UTC)
	if err != nil {
		s.logger.Warnw("unknown push token timezone, using UTC", "user_uid", uid, "error", err)
		loc = time.UTC
	}
	cal := dates.Calendar{Location: loc, Now: s.now}
	today := cal.Today()

	diary, err := s.store.List(ctx, uid, models.CategoryDiary)
	if err != nil {
		return false, err
	}
	if aggregator.Mood(cal, diary, today).IsToday {
		return false, nil
	}

	// One reminder per user and day, even if the job runs twice.
	sentKey := fmt.Sprintf("reminder_sent:%s:%s", uid, today)
	first, err := s.registry.redis.SetNX(ctx, sentKey, "diary", 48*time.Hour).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder: %w", err)
	}
	if !first {
		return false, nil
	}

	if _, err := s.sender.Send(ctx, buildReminder(token, today)); err != nil {
		s.registry.redis.Del(ctx, sentKey)
		if messaging.IsUnregistered(err) {
			if rmErr := s.registry.Remove(ctx, uid); rmErr != nil {
				s.logger.Warnw("failed to remove stale push token", "user_uid", uid, "error", rmErr)
			}
		}
		return false, fmt.Errorf("failed to send reminder: %w", err)
	}
	return true, nil
}

func buildReminder(token notificationsmodels.PushToken, today string) *messaging.Message {
	return &messaging.Message{
		Token: token.FCMToken,
		Notification: &messaging.Notification{
			Title: reminderTitle,
			Body:  reminderBody,
		},
		Data: map[string]string{
			"type": "diary_reminder",
			"date": today,
		},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				ChannelID: channelID,
				Priority:  messaging.PriorityHigh,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: reminderTitle,
						Body:  reminderBody,
					},
					Sound: "default",
				},
			},
		},
	}
}
