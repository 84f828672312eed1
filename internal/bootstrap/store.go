// Package bootstrap builds the process-wide entry store from configuration.
package bootstrap

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"io.winapps.healthjournal/internal/cache"
	"io.winapps.healthjournal/internal/config"
	"io.winapps.healthjournal/internal/db"
	firebaseutil "io.winapps.healthjournal/internal/firebase"
	"io.winapps.healthjournal/internal/store"
)

// OpenStore opens the backend selected by ENTRY_STORE. Backends without
// their own listeners get change notifications through a broker (Redis
// pub/sub when redisClient is set, in-process otherwise), and lists are
// cached in Redis when it is enabled. The returned func releases the backend.
func OpenStore(ctx context.Context, cfg *config.Config, app *firebase.App, redisClient *redis.Client, logger *zap.SugaredLogger) (store.Store, func(), error) {
	var (
		s       store.Store
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.EntryStore {
	case config.StorePostgres:
		pool, err := db.InitPostgres(cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		closers = append(closers, pool.Close)
		s = store.NewPostgresStore(pool)
	case config.StoreFirestore:
		if app == nil {
			return nil, nil, fmt.Errorf("firestore store requires Firebase")
		}
		client, err := firebaseutil.GetFirestoreClient(ctx, app)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { client.Close() })
		s = store.NewFirestoreStore(client, logger)
	case config.StoreSQLite:
		sqlite, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store %s: %w", cfg.SQLitePath, err)
		}
		closers = append(closers, func() { sqlite.Close() })
		s = sqlite
	default:
		local, err := store.NewLocalStore(cfg.LocalStorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local store %s: %w", cfg.LocalStorePath, err)
		}
		closers = append(closers, func() { local.Close() })
		s = local
	}

	// Firestore has its own listeners
	if cfg.EntryStore != config.StoreFirestore {
		var broker store.Broker = store.NewMemoryBroker()
		if redisClient != nil {
			broker = cache.NewRedisBroker(redisClient, logger)
		}
		s = store.NewNotifyingStore(s, broker, logger)
	}

	if redisClient != nil {
		s = cache.NewCachedStore(s, redisClient, cfg.CacheTTL, logger)
	}

	return s, closeAll, nil
}
