package cache

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "changes:"

// RedisBroker carries entry change notifications between server instances
// over Redis pub/sub.
type RedisBroker struct {
	redis  *redis.Client
	logger *zap.SugaredLogger
}

func NewRedisBroker(client *redis.Client, logger *zap.SugaredLogger) *RedisBroker {
	return &RedisBroker{redis: client, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string) error {
	return b.redis.Publish(ctx, channelPrefix+topic, "changed").Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string, fn func()) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := b.redis.Subscribe(ctx, channelPrefix+topic)

	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil && b.logger != nil {
				b.logger.Warnw("failed to close subscription", "topic", topic, "error", err)
			}
			<-done
		})
	}, nil
}
