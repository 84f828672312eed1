package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	models "io.winapps.healthjournal/internal/models/entry"
	"io.winapps.healthjournal/internal/store"
)

// DefaultTTL bounds how long a cached list may be served.
const DefaultTTL = 24 * time.Hour

// CachedStore serves List from Redis and invalidates on writes. Redis
// failures are logged and fall through to the wrapped store.
type CachedStore struct {
	store.Store
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewCachedStore(s store.Store, client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedStore{Store: s, redis: client, ttl: ttl, logger: logger}
}

func listKey(uid string, c models.Category) string {
	return store.Topic(uid, c)
}

// generationKey counts writes to a list. A List only fills the cache when no
// write happened between its backend read and the cache fill.
func generationKey(uid string, c models.Category) string {
	return "gen:" + listKey(uid, c)
}

var errStaleList = errors.New("list changed while reading")

func (s *CachedStore) List(ctx context.Context, uid string, c models.Category) ([]models.Entry, error) {
	key := listKey(uid, c)

	cached, err := s.redis.Get(ctx, key).Result()
	if err == nil && cached != "" {
		var entries []models.Entry
		if err := json.Unmarshal([]byte(cached), &entries); err == nil {
			return entries, nil
		}
	} else if err != nil && err != redis.Nil {
		s.warn("failed to read entry cache", key, err)
	}

	genKey := generationKey(uid, c)
	gen, genErr := s.generation(ctx, s.redis, genKey)

	entries, err := s.Store.List(ctx, uid, c)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		s.warn("failed to read cache generation", genKey, genErr)
		return entries, nil
	}
	if data, err := json.Marshal(entries); err == nil {
		if err := s.fill(ctx, key, genKey, gen, data); err != nil && !errors.Is(err, errStaleList) {
			s.warn("failed to cache entries", key, err)
		}
	}
	return entries, nil
}

// fill caches data unless the generation moved past gen. WATCH aborts the
// transaction if a writer bumps the generation before EXEC.
func (s *CachedStore) fill(ctx context.Context, key, genKey string, gen int64, data []byte) error {
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.generation(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleList
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return errStaleList
	}
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *CachedStore) generation(ctx context.Context, r getter, genKey string) (int64, error) {
	gen, err := r.Get(ctx, genKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (s *CachedStore) Append(ctx context.Context, uid string, e models.Entry) (models.Entry, error) {
	saved, err := s.Store.Append(ctx, uid, e)
	if err != nil {
		return saved, err
	}
	s.invalidate(ctx, uid, saved.Category)
	return saved, nil
}

func (s *CachedStore) Delete(ctx context.Context, uid string, c models.Category, id string) error {
	if err := s.Store.Delete(ctx, uid, c, id); err != nil {
		return err
	}
	s.invalidate(ctx, uid, c)
	return nil
}

// Subscribe passes through when the wrapped store supports it.
func (s *CachedStore) Subscribe(ctx context.Context, uid string, c models.Category, onChange func()) (func(), error) {
	sub, ok := s.Store.(store.Subscriber)
	if !ok {
		return nil, store.ErrSubscribeUnsupported
	}
	return sub.Subscribe(ctx, uid, c, func() {
		// remote writers bypass this process, so drop the cached list first
		s.invalidate(context.Background(), uid, c)
		onChange()
	})
}

func (s *CachedStore) invalidate(ctx context.Context, uid string, c models.Category) {
	key := listKey(uid, c)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(uid, c))
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		s.warn("failed to invalidate entry cache", key, err)
	}
}

func (s *CachedStore) warn(msg, key string, err error) {
	if s.logger != nil {
		s.logger.Warnw(msg, "key", key, "error", err)
	}
}
