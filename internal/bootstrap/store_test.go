package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"io.winapps.healthjournal/internal/cache"
	"io.winapps.healthjournal/internal/config"
	models "io.winapps.healthjournal/internal/models/entry"
	"io.winapps.healthjournal/internal/store"
)

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	dir := t.TempDir()

	tests := []struct {
		name       string
		entryStore string
		redis      *redis.Client
		cached     bool
	}{
		{"local", config.StoreLocal, nil, false},
		{"sqlite", config.StoreSQLite, nil, false},
		{"local with redis", config.StoreLocal, client, true},
		{"sqlite with redis", config.StoreSQLite, client, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				EntryStore:     tt.entryStore,
				LocalStorePath: filepath.Join(dir, tt.name, "entries.json"),
				SQLitePath:     filepath.Join(dir, tt.name, "entries.db"),
			}
			s, closeStore, err := OpenStore(context.Background(), cfg, nil, tt.redis, zap.NewNop().Sugar())
			if err != nil {
				t.Fatal(err)
			}
			defer closeStore()

			if _, ok := s.(*cache.CachedStore); ok != tt.cached {
				t.Errorf("cached = %v, want %v", ok, tt.cached)
			}
			sub, ok := s.(store.Subscriber)
			if !ok {
				t.Fatal("store does not support Subscribe")
			}

			changed := make(chan struct{}, 1)
			stop, err := sub.Subscribe(context.Background(), "u", models.CategoryHealth, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			if err != nil {
				t.Fatal(err)
			}
			defer stop()

			_, err = s.Append(context.Background(), "u", models.Entry{
				Category: models.CategoryHealth,
				Datetime: "2024-01-15T08:00",
				Health:   &models.Health{Systolic: 120, Diastolic: 80, Pulse: 60},
			})
			if err != nil {
				t.Fatal(err)
			}
			select {
			case <-changed:
			case <-time.After(2 * time.Second):
				t.Fatal("no change notification after Append")
			}
		})
	}

	if _, _, err := OpenStore(context.Background(), &config.Config{EntryStore: config.StoreFirestore}, nil, nil, nil); err == nil {
		t.Error("firestore without Firebase should fail")
	}
}
