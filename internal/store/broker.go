package store

import (
	"context"
	"sync"
)

// Broker fans change notifications out to subscribers of a topic.
type Broker interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string, fn func()) (func(), error)
}

// MemoryBroker is a Broker for a single process.
type MemoryBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func()
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[int]func())}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string) error {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.subs[topic]))
	for _, fn := range b.subs[topic] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, topic string, fn func()) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]func())
	}
	b.subs[topic][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set := b.subs[topic]; set != nil {
				delete(set, id)
				if len(set) == 0 {
					delete(b.subs, topic)
				}
			}
		})
	}, nil
}
