package nearcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cacheaside/errs"
	"github.com/unkn0wn-root/cacheaside/store"
	"github.com/unkn0wn-root/cacheaside/store/memory"
)

// countingStore records how many Gets reach the wrapped store.
type countingStore struct {
	store.Store
	gets int
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets++
	return c.Store.Get(ctx, key)
}

func newTestNear(t *testing.T) (*countingStore, *Near) {
	t.Helper()
	mem, err := memory.New(memory.Config{Shards: 16, AllowAdmin: true})
	require.NoError(t, err)
	inner := &countingStore{Store: mem}
	n, err := New(inner, Config{TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return inner, n
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newClockedNear shares one clock between the memory store and the local tier.
func newClockedNear(t *testing.T, cfg Config) (*clock, *memory.Memory, *Near) {
	t.Helper()
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	mem, err := memory.New(memory.Config{Shards: 16, Clock: clk.Now})
	require.NoError(t, err)
	cfg.Clock = clk.Now
	n, err := New(mem, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return clk, mem, n
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil, Config{})
	assert.ErrorIs(t, err, ErrNilStore)
}

func TestReadThroughServesLocally(t *testing.T) {
	ctx := context.Background()
	inner, n := newTestNear(t)
	_, err := n.Set(ctx, "k", []byte("v"), 0, store.Always)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		b, ok, err := n.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "v", string(b))
	}
	assert.Equal(t, 1, inner.gets)
}

func TestReturnedBytesAreCopies(t *testing.T) {
	ctx := context.Background()
	_, n := newTestNear(t)
	_, _ = n.Set(ctx, "k", []byte("abc"), 0, store.Always)

	b, _, _ := n.Get(ctx, "k")
	b[0] = 'X'
	b2, _, _ := n.Get(ctx, "k")
	assert.Equal(t, "abc", string(b2))
}

func TestMissIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner, n := newTestNear(t)

	_, ok, err := n.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	_, _, _ = n.Get(ctx, "missing")
	assert.Equal(t, 2, inner.gets)
}

func TestWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	_, n := newTestNear(t)
	_, _ = n.Set(ctx, "k", []byte("v1"), 0, store.Always)
	_, _, _ = n.Get(ctx, "k")

	_, err := n.Set(ctx, "k", []byte("v2"), 0, store.Always)
	require.NoError(t, err)
	b, _, _ := n.Get(ctx, "k")
	assert.Equal(t, "v2", string(b))

	_, err = n.Delete(ctx, "k")
	require.NoError(t, err)
	_, ok, _ := n.Get(ctx, "k")
	assert.False(t, ok)
}

func TestFlushAllClearsLocalTier(t *testing.T) {
	ctx := context.Background()
	_, n := newTestNear(t)
	_, _ = n.Set(ctx, "k", []byte("v"), 0, store.Always)
	_, _, _ = n.Get(ctx, "k")

	require.NoError(t, n.FlushAll(ctx))
	_, ok, err := n.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelegatesOtherOps(t *testing.T) {
	ctx := context.Background()
	_, n := newTestNear(t)

	require.NoError(t, n.HashSet(ctx, "h", map[string]string{"f": "v"}))
	all, err := n.HashGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f": "v"}, all)

	total, _, err := n.Scan(ctx, "*", 0, store.All)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, err = n.Eval(ctx, "return 1", nil)
	assert.True(t, errs.IsUsage(err))
}

func TestLocalCopyNeverOutlivesBackendExpiry(t *testing.T) {
	ctx := context.Background()
	clk, mem, n := newClockedNear(t, Config{}) // default 5s near TTL

	_, err := n.Set(ctx, "k", []byte("v"), 100*time.Millisecond, store.Always)
	require.NoError(t, err)
	b, ok, err := n.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(b))

	clk.Advance(time.Second)

	_, ok, err = mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "backend entry expired")
	_, ok, err = n.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "local copy must expire with the backend entry")
}

func TestNearTTLBoundsStaleness(t *testing.T) {
	ctx := context.Background()
	clk, mem, n := newClockedNear(t, Config{TTL: time.Minute})

	_, err := n.Set(ctx, "k", []byte("v1"), 0, store.Always)
	require.NoError(t, err)
	_, _, err = n.Get(ctx, "k")
	require.NoError(t, err)

	// a write that bypasses this process's tier
	_, err = mem.Set(ctx, "k", []byte("v2"), 0, store.Always)
	require.NoError(t, err)
	b, _, _ := n.Get(ctx, "k")
	assert.Equal(t, "v1", string(b))

	clk.Advance(2 * time.Minute)
	b, ok, err := n.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(b))
}
