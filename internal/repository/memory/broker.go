package memory

import (
	"context"
	"sync"

	"temple-services-backend/internal/repository"
)

const watchBufferSize = 16

// broker fans service snapshots out to the watchers of each service.
type broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan repository.ServiceSnapshot]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[string]map[chan repository.ServiceSnapshot]struct{})}
}

// subscribe registers a watcher for key that first receives initial. The
// channel is closed when ctx is cancelled.
func (b *broker) subscribe(ctx context.Context, key string, initial repository.ServiceSnapshot) <-chan repository.ServiceSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(chan repository.ServiceSnapshot, watchBufferSize)
	sub <- initial
	if b.subs[key] == nil {
		b.subs[key] = make(map[chan repository.ServiceSnapshot]struct{})
	}
	b.subs[key][sub] = struct{}{}

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[key], sub)
		if len(b.subs[key]) == 0 {
			delete(b.subs, key)
		}
		close(sub)
	}()

	return sub
}

// publish never blocks. A watcher whose buffer is full loses its oldest
// snapshot so that the latest state is always delivered.
func (b *broker) publish(key string, snap repository.ServiceSnapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[key] {
		select {
		case sub <- snap:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- snap:
			default:
			}
		}
	}
}

func (b *broker) count(key string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[key])
}
