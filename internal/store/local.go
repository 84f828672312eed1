package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	models "io.winapps.healthjournal/internal/models/entry"
)

type localFile struct {
	Version int                                           `json:"version"`
	Users   map[string]map[models.Category][]models.Entry `json:"users"`
}

// LocalStore keeps every entry in one JSON file, laid out like the browser's
// local storage: one list per category, per user.
type LocalStore struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	data *localFile
}

// NewLocalStore opens the file at path, creating it when missing.
func NewLocalStore(path string) (*LocalStore, error) {
	s := &LocalStore{path: path, now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) load() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("%w: failed to create storage directory: %v", ErrStoreUnavailable, err)
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.data = &localFile{Version: 1, Users: map[string]map[models.Category][]models.Entry{}}
		return s.save()
	}
	if err != nil {
		return fmt.Errorf("%w: failed to read storage: %v", ErrStoreUnavailable, err)
	}

	data := &localFile{}
	if err := json.Unmarshal(raw, data); err != nil {
		return fmt.Errorf("failed to parse storage %s: %w", s.path, err)
	}
	if data.Users == nil {
		data.Users = map[string]map[models.Category][]models.Entry{}
	}
	s.data = data
	return nil
}

// save writes through a temp file so a crash never leaves a torn file.
func (s *LocalStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".entries-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write storage: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to write storage: %v", ErrStoreUnavailable, err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: failed to replace storage: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *LocalStore) Append(_ context.Context, uid string, e models.Entry) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.New().String()
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}

	user := s.data.Users[uid]
	if user == nil {
		user = map[models.Category][]models.Entry{}
		s.data.Users[uid] = user
	}
	prev := user[e.Category]
	user[e.Category] = append(prev[:len(prev):len(prev)], e)

	if err := s.save(); err != nil {
		user[e.Category] = prev
		return models.Entry{}, err
	}
	return e, nil
}

func (s *LocalStore) List(_ context.Context, uid string, c models.Category) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.data.Users[uid][c]
	out := make([]models.Entry, len(src))
	copy(out, src)
	return out, nil
}

func (s *LocalStore) Delete(_ context.Context, uid string, c models.Category, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Users[uid][c]
	idx := -1
	for i, e := range prev {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	next := make([]models.Entry, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	s.data.Users[uid][c] = next

	if err := s.save(); err != nil {
		s.data.Users[uid][c] = prev
		return err
	}
	return nil
}

func (s *LocalStore) Close() error { return nil }
