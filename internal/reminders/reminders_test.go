package reminders

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	models "io.winapps.healthjournal/internal/models/entry"
	notificationsmodels "io.winapps.healthjournal/internal/models/notifications"
	"io.winapps.healthjournal/internal/store"
)

var testNow = time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)

func setupRegistry(t *testing.T) (*Registry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	r := NewRegistry(client)
	r.now = func() time.Time { return testNow }
	return r, mr
}

type fakeSender struct {
	sent []*messaging.Message
	fail map[string]bool
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	if f.fail[m.Token] {
		return "", errors.New("fcm unavailable")
	}
	f.sent = append(f.sent, m)
	return "projects/test/messages/1", nil
}

func TestRegistry(t *testing.T) {
	r, _ := setupRegistry(t)
	ctx := context.Background()

	if err := r.Register(ctx, notificationsmodels.PushToken{UserID: "b", FCMToken: "tok-b", Platform: "android"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(ctx, notificationsmodels.PushToken{UserID: "a", FCMToken: "tok-a", Platform: "ios", Timezone: "Europe/Berlin"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(ctx, notificationsmodels.PushToken{UserID: "a", FCMToken: "tok-a2", Platform: "ios", Timezone: "Europe/Berlin"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(ctx, notificationsmodels.PushToken{UserID: "c"}); err == nil {
		t.Error("Register() without token should fail")
	}

	users, err := r.Users(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0] != "a" || users[1] != "b" {
		t.Errorf("Users() = %v, want [a b]", users)
	}

	got, err := r.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.FCMToken != "tok-a2" || !got.UpdatedAt.Equal(testNow) {
		t.Errorf("Get(a) = %+v", got)
	}
	if b, _ := r.Get(ctx, "b"); b.Timezone != "UTC" {
		t.Errorf("default timezone = %q, want UTC", b.Timezone)
	}

	if err := r.Remove(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, "a"); !errors.Is(err, ErrNoToken) {
		t.Errorf("Get() after Remove error = %v, want ErrNoToken", err)
	}
}

func TestSchedulerRunOnce(t *testing.T) {
	r, _ := setupRegistry(t)
	ctx := context.Background()

	s, err := store.NewLocalStore(filepath.Join(t.TempDir(), "entries.json"))
	if err != nil {
		t.Fatal(err)
	}
	diary := func(date string) models.Entry {
		return models.Entry{Category: models.CategoryDiary, Date: date, Diary: &models.Diary{Mood: "🙂", Entry: "<p>hi</p>"}}
	}
	if _, err := s.Append(ctx, "writer", diary("2024-01-15")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(ctx, "lapsed", diary("2024-01-14")); err != nil {
		t.Fatal(err)
	}

	for _, uid := range []string{"writer", "lapsed", "new", "broken"} {
		if err := r.Register(ctx, notificationsmodels.PushToken{UserID: uid, FCMToken: "tok-" + uid, Platform: "android", Timezone: "UTC"}); err != nil {
			t.Fatal(err)
		}
	}

	sender := &fakeSender{fail: map[string]bool{"tok-broken": true}}
	sched := NewScheduler(r, s, sender, zap.NewNop().Sugar())
	sched.now = func() time.Time { return testNow }

	sent, err := sched.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}
	tokens := map[string]bool{}
	for _, m := range sender.sent {
		tokens[m.Token] = true
		if m.Data["date"] != "2024-01-15" || m.Notification.Title != reminderTitle {
			t.Errorf("message = %+v", m)
		}
	}
	if !tokens["tok-lapsed"] || !tokens["tok-new"] || tokens["tok-writer"] {
		t.Errorf("reminded %v", tokens)
	}

	// A second run the same day sends nothing new except the retry.
	sender.fail = nil
	sent, err = sched.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 1 || sender.sent[len(sender.sent)-1].Token != "tok-broken" {
		t.Errorf("second run sent %d, last %q", sent, sender.sent[len(sender.sent)-1].Token)
	}
}

func TestSchedulerStartRejectsBadSchedule(t *testing.T) {
	r, _ := setupRegistry(t)
	sched := NewScheduler(r, nil, &fakeSender{}, zap.NewNop().Sugar())
	if err := sched.Start("not a schedule", time.UTC); err == nil {
		sched.Stop()
		t.Fatal("Start() accepted an invalid schedule")
	}
	if err := sched.Start("", time.UTC); err != nil {
		t.Fatal(err)
	}
	sched.Stop()
}
