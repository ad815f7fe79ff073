// Package asynchook moves hook delivery off the request path. Events go
// through a bounded queue and are dropped when it is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    FallbackEvery: 10, // sample logs: ~every 10th fallback
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	svc, _ := cacheaside.New(cacheaside.Options{
//	    Store: st,
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/cacheaside"
)

type Hooks struct {
	inner   cacheaside.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed queue
	closed  bool
	dropped atomic.Uint64
}

var _ cacheaside.Hooks = (*Hooks)(nil)

func New(inner cacheaside.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped counts events discarded because the queue was full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) BackendFallback(op, key string, err error) {
	h.try(func() { h.inner.BackendFallback(op, key, err) })
}
func (h *Hooks) WriteBackDropped(key string, err error) {
	h.try(func() { h.inner.WriteBackDropped(key, err) })
}
func (h *Hooks) ProducerInvoked(key, reason string) {
	h.try(func() { h.inner.ProducerInvoked(key, reason) })
}
func (h *Hooks) DecodeFailed(key string, err error) { h.try(func() { h.inner.DecodeFailed(key, err) }) }
