package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	models "io.winapps.healthjournal/internal/models/entry"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS health_entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	user_uid TEXT NOT NULL,
	category TEXT NOT NULL,
	datetime TEXT NOT NULL DEFAULT '',
	entry_date TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_health_entries_user_category ON health_entries(user_uid, category, seq);
`

// SQLiteStore keeps entries in a single-file database, for installs without
// a database server.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: failed to create database directory: %v", ErrStoreUnavailable, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStoreUnavailable, err)
	}
	// one writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, uid string, e models.Entry) (models.Entry, error) {
	payload, err := encodePayload(e)
	if err != nil {
		return models.Entry{}, err
	}

	e.ID = uuid.New().String()
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO health_entries (id, user_uid, category, datetime, entry_date, payload, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, uid, string(e.Category), e.Datetime, e.Date, string(payload), e.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return models.Entry{}, fmt.Errorf("%w: failed to insert entry: %v", ErrStoreUnavailable, err)
	}
	return e, nil
}

func (s *SQLiteStore) List(ctx context.Context, uid string, c models.Category) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, datetime, entry_date, payload, created_at FROM health_entries WHERE user_uid = ? AND category = ? ORDER BY seq`,
		uid, string(c))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query entries: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var (
			e                  = models.Entry{Category: c}
			payload, createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Datetime, &e.Date, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan entry: %v", ErrStoreUnavailable, err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp of entry %s: %w", e.ID, err)
		}
		if err := decodePayload(&e, []byte(payload)); err != nil {
			return nil, fmt.Errorf("failed to decode entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return entries, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, uid string, c models.Category, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM health_entries WHERE id = ? AND user_uid = ? AND category = ?`,
		id, uid, string(c))
	if err != nil {
		return fmt.Errorf("%w: failed to delete entry: %v", ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
