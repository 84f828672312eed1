package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	models "io.winapps.healthjournal/internal/models/entry"
)

// FirestoreStore keeps entries at users/{uid}/{category}/{id}. It supports
// real-time Subscribe through query snapshots.
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewFirestoreStore(client *firestore.Client, logger *zap.SugaredLogger) *FirestoreStore {
	return &FirestoreStore{client: client, logger: logger, now: time.Now}
}

func (s *FirestoreStore) collection(uid string, c models.Category) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(uid).Collection(string(c))
}

func (s *FirestoreStore) Append(ctx context.Context, uid string, e models.Entry) (models.Entry, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}
	ref := s.collection(uid, e.Category).NewDoc()
	if _, err := ref.Create(ctx, e); err != nil {
		return models.Entry{}, fmt.Errorf("%w: failed to create document: %v", ErrStoreUnavailable, err)
	}
	e.ID = ref.ID
	return e, nil
}

func (s *FirestoreStore) List(ctx context.Context, uid string, c models.Category) ([]models.Entry, error) {
	docs, err := s.collection(uid, c).OrderBy("timestamp", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list documents: %v", ErrStoreUnavailable, err)
	}
	return decodeDocs(docs, c)
}

func decodeDocs(docs []*firestore.DocumentSnapshot, c models.Category) ([]models.Entry, error) {
	entries := make([]models.Entry, 0, len(docs))
	for _, doc := range docs {
		var e models.Entry
		if err := doc.DataTo(&e); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", doc.Ref.ID, err)
		}
		e.ID = doc.Ref.ID
		e.Category = c
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, uid string, c models.Category, id string) error {
	if id == "" {
		return ErrNotFound
	}
	_, err := s.collection(uid, c).Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete document: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Subscribe listens to the category's query snapshots. The first snapshot
// is the current state and does not fire onChange.
func (s *FirestoreStore) Subscribe(ctx context.Context, uid string, c models.Category, onChange func()) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.collection(uid, c).Snapshots(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		first := true
		for {
			snap, err := it.Next()
			if err != nil {
				if !errors.Is(err, iterator.Done) && status.Code(err) != codes.Canceled && ctx.Err() == nil && s.logger != nil {
					s.logger.Errorw("firestore listener stopped", "user_uid", uid, "category", c, "error", err)
				}
				return
			}
			if first {
				first = false
				continue
			}
			if len(snap.Changes) > 0 {
				onChange()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			it.Stop()
			<-done
		})
	}, nil
}
