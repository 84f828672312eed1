package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	notificationsmodels "io.winapps.healthjournal/internal/models/notifications"
)

const usersKey = "push_users"

var ErrNoToken = errors.New("no push token registered")

// Registry keeps one push token per user in Redis.
type Registry struct {
	redis *redis.Client
	now   func() time.Time
}

func NewRegistry(client *redis.Client) *Registry {
	return &Registry{redis: client, now: time.Now}
}

func tokenKey(uid string) string {
	return fmt.Sprintf("push_token:%s", uid)
}

// Register stores or replaces the token of t.UserID.
func (r *Registry) Register(ctx context.Context, t notificationsmodels.PushToken) error {
	if t.UserID == "" || t.FCMToken == "" {
		return fmt.Errorf("push token requires user id and fcm token")
	}
	if t.Timezone == "" {
		t.Timezone = "UTC"
	}
	t.UpdatedAt = r.now().UTC()

	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode push token: %w", err)
	}
	pipe := r.redis.TxPipeline()
	pipe.Set(ctx, tokenKey(t.UserID), raw, 0)
	pipe.SAdd(ctx, usersKey, t.UserID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save push token: %w", err)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, uid string) (notificationsmodels.PushToken, error) {
	var t notificationsmodels.PushToken
	raw, err := r.redis.Get(ctx, tokenKey(uid)).Result()
	if err == redis.Nil {
		return t, ErrNoToken
	}
	if err != nil {
		return t, fmt.Errorf("failed to read push token: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return t, fmt.Errorf("failed to decode push token: %w", err)
	}
	return t, nil
}

// Remove forgets uid's token, e.g. after FCM reports it unregistered.
func (r *Registry) Remove(ctx context.Context, uid string) error {
	pipe := r.redis.TxPipeline()
	pipe.Del(ctx, tokenKey(uid))
	pipe.SRem(ctx, usersKey, uid)
	_, err := pipe.Exec(ctx)
	return err
}

// Users returns every registered user id, sorted.
func (r *Registry) Users(ctx context.Context) ([]string, error) {
	users, err := r.redis.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list push users: %w", err)
	}
	sort.Strings(users)
	return users, nil
}
