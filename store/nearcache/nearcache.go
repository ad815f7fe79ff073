// Package nearcache decorates a Store with a small in-process ristretto tier
// for string reads. Local writes and deletes invalidate the tier; writes made
// by other processes are observed once the short near TTL lapses. A local copy
// never outlives the backend entry it was read from.
package nearcache

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/cacheaside/store"
)

const (
	DefaultNumCounters = 100_000
	DefaultMaxCost     = 64 << 20 // bytes
	DefaultBufferItems = 64
	DefaultTTL         = 5 * time.Second
)

var ErrNilStore = errors.New("nearcache: nil store")

// Near serves Get from a local tier before falling through to the wrapped
// Store. Every other operation is delegated.
type Near struct {
	store.Store
	l1  *rc.Cache
	ttl time.Duration
	now func() time.Time
}

// local is a tier entry. deadline is the earlier of the near TTL and the
// backend entry's own expiry.
type local struct {
	b        []byte
	deadline time.Time
}

var _ store.Store = (*Near)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // cost is the value length in bytes
	BufferItems int64
	TTL         time.Duration // upper bound on local staleness
	Metrics     bool
	Clock       func() time.Time // default time.Now; share it with the wrapped store in tests
}

func New(next store.Store, cfg Config) (*Near, error) {
	if next == nil {
		return nil, ErrNilStore
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = DefaultNumCounters
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = DefaultMaxCost
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = DefaultBufferItems
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Near{Store: next, l1: c, ttl: cfg.TTL, now: now}, nil
}

// Metrics is nil unless Config.Metrics was set.
func (n *Near) Metrics() *rc.Metrics { return n.l1.Metrics }

func (n *Near) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := n.l1.Get(key); ok {
		if e, ok := v.(local); ok && n.now().Before(e.deadline) {
			return clone(e.b), true, nil
		}
		n.l1.Del(key) // lapsed or unexpected shape
	}
	b, ok, err := n.Store.Get(ctx, key)
	if err != nil || !ok {
		return b, ok, err
	}
	n.fill(ctx, key, b)
	return b, true, nil
}

// fill keeps b locally for the near TTL or the backend's remaining TTL,
// whichever is shorter. When the remaining TTL cannot be read, b is not kept.
func (n *Near) fill(ctx context.Context, key string, b []byte) {
	life := n.ttl
	rem, ok, err := n.Store.TTL(ctx, key)
	if err != nil || !ok {
		return
	}
	if rem > 0 && rem < life {
		life = rem
	}
	n.l1.SetWithTTL(key, local{b: clone(b), deadline: n.now().Add(life)}, int64(len(b))+1, life)
	n.l1.Wait()
}

func (n *Near) Set(ctx context.Context, key string, value []byte, ttl time.Duration, cond store.Condition) (bool, error) {
	n.l1.Del(key)
	return n.Store.Set(ctx, key, value, ttl, cond)
}

func (n *Near) Delete(ctx context.Context, keys ...string) (int64, error) {
	for _, k := range keys {
		n.l1.Del(k)
	}
	return n.Store.Delete(ctx, keys...)
}

func (n *Near) HashSet(ctx context.Context, key string, fields map[string]string) error {
	n.l1.Del(key)
	return n.Store.HashSet(ctx, key, fields)
}

func (n *Near) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	n.l1.Del(key)
	return n.Store.Expire(ctx, key, ttl)
}

// Eval invalidates the script's declared keys.
func (n *Near) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	for _, k := range keys {
		n.l1.Del(k)
	}
	return n.Store.Eval(ctx, script, keys, args...)
}

func (n *Near) FlushAll(ctx context.Context) error {
	err := n.Store.FlushAll(ctx)
	if err == nil {
		n.l1.Clear()
	}
	return err
}

func (n *Near) Close() error {
	n.l1.Close()
	return n.Store.Close()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
