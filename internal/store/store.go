package store

import (
	"context"
	"errors"

	models "io.winapps.healthjournal/internal/models/entry"
)

var (
	// ErrNotFound is returned when deleting an id the scope does not hold.
	ErrNotFound = errors.New("entry not found")
	// ErrStoreUnavailable wraps failures of the backing medium.
	ErrStoreUnavailable = errors.New("entry store unavailable")
	// ErrSubscribeUnsupported is returned by wrappers around stores that
	// cannot announce changes.
	ErrSubscribeUnsupported = errors.New("store does not support change notifications")
)

// Store persists entries per user and category. List order is unspecified;
// callers sort.
type Store interface {
	// Append assigns an id, and a timestamp when unset, and persists e.
	Append(ctx context.Context, uid string, e models.Entry) (models.Entry, error)
	List(ctx context.Context, uid string, c models.Category) ([]models.Entry, error)
	Delete(ctx context.Context, uid string, c models.Category, id string) error
}

// Subscriber is implemented by stores that can announce changes. onChange
// fires after any add or remove visible to (uid, c); the returned func stops
// the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, uid string, c models.Category, onChange func()) (func(), error)
}

// Topic names the change stream of one user's category.
func Topic(uid string, c models.Category) string {
	return "entries:" + uid + ":" + string(c)
}
