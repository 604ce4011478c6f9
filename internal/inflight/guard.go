// Package inflight suppresses duplicate operations on the same key.
package inflight

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophrelief/internal/common"
)

// Guard is a set of keys with an operation pending. Each pending key owns a
// channel closed on release, so waiters can block until the slot frees up.
type Guard struct {
	mu      sync.Mutex
	pending map[string]chan struct{}
}

func NewGuard() *Guard {
	return &Guard{pending: make(map[string]chan struct{})}
}

// TryAcquire takes the slot for key or fails with
// common.ErrOperationInFlight. The returned release must be called exactly
// once.
func (g *Guard) TryAcquire(key string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.pending[key]; busy {
		return nil, common.ErrOperationInFlight
	}
	return g.take(key), nil
}

// Acquire waits until the slot for key is free and takes it.
func (g *Guard) Acquire(ctx context.Context, key string) (release func(), err error) {
	for {
		g.mu.Lock()
		done, busy := g.pending[key]
		if !busy {
			release = g.take(key)
			g.mu.Unlock()
			return release, nil
		}
		g.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Busy reports whether key has an operation pending.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.pending[key]
	return busy
}

// take must be called with g.mu held.
func (g *Guard) take(key string) func() {
	done := make(chan struct{})
	g.pending[key] = done

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.pending, key)
			g.mu.Unlock()
			close(done)
		})
	}
}
