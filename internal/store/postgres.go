package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	models "io.winapps.healthjournal/internal/models/entry"
)

// PostgresStore keeps entries in the health_entries table. Rows are returned
// in insertion order, which the chart series rely on.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

func (s *PostgresStore) Append(ctx context.Context, uid string, e models.Entry) (models.Entry, error) {
	payload, err := encodePayload(e)
	if err != nil {
		return models.Entry{}, err
	}

	e.ID = uuid.New().String()
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}

	query := `
		INSERT INTO health_entries (id, user_uid, category, datetime, entry_date, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.pool.Exec(ctx, query, e.ID, uid, string(e.Category), e.Datetime, e.Date, payload, e.Timestamp)
	if err != nil {
		return models.Entry{}, fmt.Errorf("%w: failed to insert entry: %v", ErrStoreUnavailable, err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context, uid string, c models.Category) ([]models.Entry, error) {
	query := `
		SELECT id, datetime, entry_date, payload, created_at
		FROM health_entries
		WHERE user_uid = $1 AND category = $2
		ORDER BY seq
	`
	rows, err := s.pool.Query(ctx, query, uid, string(c))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query entries: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var (
			e       = models.Entry{Category: c}
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.Datetime, &e.Date, &payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: failed to scan entry: %v", ErrStoreUnavailable, err)
		}
		if err := decodePayload(&e, payload); err != nil {
			return nil, fmt.Errorf("failed to decode entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return entries, nil
}

func (s *PostgresStore) Delete(ctx context.Context, uid string, c models.Category, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	query := `
		DELETE FROM health_entries
		WHERE id = $1 AND user_uid = $2 AND category = $3
	`
	tag, err := s.pool.Exec(ctx, query, id, uid, string(c))
	if err != nil {
		return fmt.Errorf("%w: failed to delete entry: %v", ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
