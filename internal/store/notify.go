package store

import (
	"context"

	"go.uber.org/zap"

	models "io.winapps.healthjournal/internal/models/entry"
)

// NotifyingStore publishes a change on its Broker after every successful
// Append or Delete, giving any backend Subscribe support.
type NotifyingStore struct {
	Store
	broker Broker
	logger *zap.SugaredLogger
}

func NewNotifyingStore(s Store, b Broker, logger *zap.SugaredLogger) *NotifyingStore {
	return &NotifyingStore{Store: s, broker: b, logger: logger}
}

func (n *NotifyingStore) Append(ctx context.Context, uid string, e models.Entry) (models.Entry, error) {
	saved, err := n.Store.Append(ctx, uid, e)
	if err != nil {
		return saved, err
	}
	n.publish(ctx, uid, saved.Category)
	return saved, nil
}

func (n *NotifyingStore) Delete(ctx context.Context, uid string, c models.Category, id string) error {
	if err := n.Store.Delete(ctx, uid, c, id); err != nil {
		return err
	}
	n.publish(ctx, uid, c)
	return nil
}

func (n *NotifyingStore) Subscribe(ctx context.Context, uid string, c models.Category, onChange func()) (func(), error) {
	return n.broker.Subscribe(ctx, Topic(uid, c), onChange)
}

// publish never fails the mutation: the write already happened.
func (n *NotifyingStore) publish(ctx context.Context, uid string, c models.Category) {
	if err := n.broker.Publish(ctx, Topic(uid, c)); err != nil && n.logger != nil {
		n.logger.Warnw("failed to publish entry change", "user_uid", uid, "category", c, "error", err)
	}
}
