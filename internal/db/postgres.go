package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"io.winapps.healthjournal/internal/config"
)

// InitPostgres initializes and returns a PostgreSQL connection pool
func InitPostgres(cfg config.Postgres) (*pgxpool.Pool, error) {
	// Configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30
	poolConfig.HealthCheckPeriod = time.Minute * 5

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pool, nil
}

// createTables creates all required tables if they don't exist
func createTables(ctx context.Context, pool *pgxpool.Pool) error {
	// Entries of every category; the variant fields live in payload.
	// seq keeps insertion order for the chart series.
	entriesTable := `
		CREATE TABLE IF NOT EXISTS health_entries (
			id UUID PRIMARY KEY,
			user_uid VARCHAR(255) NOT NULL,
			category VARCHAR(20) NOT NULL CHECK (category IN ('nutrition', 'health', 'exercise', 'diary')),
			datetime TEXT NOT NULL DEFAULT '',
			entry_date TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			seq BIGSERIAL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_health_entries_user_category ON health_entries(user_uid, category, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_health_entries_created_at ON health_entries(created_at DESC);`,
	}

	if _, err := pool.Exec(ctx, entriesTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	for _, index := range indexes {
		if _, err := pool.Exec(ctx, index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
