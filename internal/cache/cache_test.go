package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	models "io.winapps.healthjournal/internal/models/entry"
	"io.winapps.healthjournal/internal/store"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// countingStore records how often List reaches the backing store.
type countingStore struct {
	store.Store
	lists int
}

func (c *countingStore) List(ctx context.Context, uid string, cat models.Category) ([]models.Entry, error) {
	c.lists++
	return c.Store.List(ctx, uid, cat)
}

func setupCachedStore(t *testing.T) (*CachedStore, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr, client := setupRedis(t)
	local, err := store.NewLocalStore(filepath.Join(t.TempDir(), "entries.json"))
	if err != nil {
		t.Fatal(err)
	}
	backing := &countingStore{Store: local}
	return NewCachedStore(backing, client, time.Hour, nil), backing, mr
}

func workout(minutes int) models.Entry {
	return models.Entry{
		Category: models.CategoryExercise,
		Datetime: "2024-01-15T07:00",
		Exercise: &models.Exercise{Type: "run", Duration: models.Amount(minutes)},
	}
}

func TestCachedStoreReadThrough(t *testing.T) {
	s, backing, mr := setupCachedStore(t)
	ctx := context.Background()

	if _, err := s.Append(ctx, "u", workout(30)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		got, err := s.List(ctx, "u", models.CategoryExercise)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Exercise.Duration != 30 {
			t.Fatalf("List() = %+v", got)
		}
	}
	if backing.lists != 1 {
		t.Errorf("backing List calls = %d, want 1", backing.lists)
	}
	if !mr.Exists(listKey("u", models.CategoryExercise)) {
		t.Error("list was not cached")
	}
}

func TestCachedStoreInvalidatesOnWrite(t *testing.T) {
	s, backing, mr := setupCachedStore(t)
	ctx := context.Background()
	key := listKey("u", models.CategoryExercise)

	first, err := s.Append(ctx, "u", workout(30))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.List(ctx, "u", models.CategoryExercise); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Append(ctx, "u", workout(45)); err != nil {
		t.Fatal(err)
	}
	if mr.Exists(key) {
		t.Error("append did not invalidate the cached list")
	}
	got, _ := s.List(ctx, "u", models.CategoryExercise)
	if len(got) != 2 {
		t.Fatalf("List() after append = %d entries, want 2", len(got))
	}

	if err := s.Delete(ctx, "u", models.CategoryExercise, first.ID); err != nil {
		t.Fatal(err)
	}
	if mr.Exists(key) {
		t.Error("delete did not invalidate the cached list")
	}
	got, _ = s.List(ctx, "u", models.CategoryExercise)
	if len(got) != 1 || got[0].Exercise.Duration != 45 {
		t.Errorf("List() after delete = %+v", got)
	}
	if backing.lists != 3 {
		t.Errorf("backing List calls = %d, want 3", backing.lists)
	}
}

// racingStore runs beforeReturn once, after reading the backend and before
// List returns, so a write can land between the read and the cache fill.
type racingStore struct {
	store.Store
	beforeReturn func()
}

func (r *racingStore) List(ctx context.Context, uid string, c models.Category) ([]models.Entry, error) {
	entries, err := r.Store.List(ctx, uid, c)
	if hook := r.beforeReturn; hook != nil {
		r.beforeReturn = nil
		hook()
	}
	return entries, err
}

func TestCachedStoreSkipsFillAfterConcurrentWrite(t *testing.T) {
	mr, client := setupRedis(t)
	local, err := store.NewLocalStore(filepath.Join(t.TempDir(), "entries.json"))
	if err != nil {
		t.Fatal(err)
	}
	backing := &racingStore{Store: local}
	s := NewCachedStore(backing, client, time.Hour, nil)
	ctx := context.Background()

	if _, err := s.Append(ctx, "u", workout(30)); err != nil {
		t.Fatal(err)
	}
	backing.beforeReturn = func() {
		if _, err := s.Append(ctx, "u", workout(45)); err != nil {
			t.Error(err)
		}
	}

	stale, err := s.List(ctx, "u", models.CategoryExercise)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 {
		t.Fatalf("racing List() = %d entries, want the pre-append read of 1", len(stale))
	}
	if mr.Exists(listKey("u", models.CategoryExercise)) {
		t.Error("stale list was cached after a concurrent append")
	}

	got, err := s.List(ctx, "u", models.CategoryExercise)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("List() after the race = %d entries, want 2", len(got))
	}
	if !mr.Exists(listKey("u", models.CategoryExercise)) {
		t.Error("fresh list was not cached")
	}
}

func TestCachedStoreSurvivesRedisOutage(t *testing.T) {
	s, _, mr := setupCachedStore(t)
	ctx := context.Background()

	if _, err := s.Append(ctx, "u", workout(20)); err != nil {
		t.Fatal(err)
	}
	mr.Close()

	got, err := s.List(ctx, "u", models.CategoryExercise)
	if err != nil {
		t.Fatalf("List() with redis down error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("List() = %d entries, want 1", len(got))
	}
}

func TestCachedStoreSubscribeUnsupported(t *testing.T) {
	s, _, _ := setupCachedStore(t)
	_, err := s.Subscribe(context.Background(), "u", models.CategoryDiary, func() {})
	if !errors.Is(err, store.ErrSubscribeUnsupported) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeUnsupported", err)
	}
}

func TestRedisBroker(t *testing.T) {
	_, client := setupRedis(t)
	b := NewRedisBroker(client, nil)
	ctx := context.Background()

	fired := make(chan struct{}, 4)
	stop, err := b.Subscribe(ctx, "entries:u:diary", func() { fired <- struct{}{} })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer stop()

	if err := b.Publish(ctx, "entries:u:health"); err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(ctx, "entries:u:diary"); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber was not notified")
	}
	select {
	case <-fired:
		t.Error("subscriber notified for another topic")
	case <-time.After(100 * time.Millisecond):
	}
}
