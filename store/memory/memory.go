// Package memory is an in-process Store backed by bigcache. It is meant for
// tests, single-node deployments and local tooling; it has no scripting.
//
// bigcache evicts on a global life window only, so every entry is framed with
// its own deadline (see internal/wire) and expired entries read as misses.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/unkn0wn-root/cacheaside/errs"
	"github.com/unkn0wn-root/cacheaside/internal/util"
	"github.com/unkn0wn-root/cacheaside/internal/wire"
	"github.com/unkn0wn-root/cacheaside/store"
)

// DefaultLifeWindow bounds how long bigcache keeps any entry, regardless of
// the entry's own TTL.
const DefaultLifeWindow = 24 * time.Hour

var errWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

type Memory struct {
	// mu serializes read-modify-write sequences (conditional sets, hash
	// merges, expiry updates). Plain reads go straight to bigcache.
	mu         sync.Mutex
	c          *bc.BigCache
	now        func() time.Time
	allowAdmin bool
	closeOnce  sync.Once
}

var _ store.Store = (*Memory)(nil)

type Config struct {
	LifeWindow         time.Duration // default DefaultLifeWindow
	CleanWindow        time.Duration
	Shards             int
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
	AllowAdmin         bool
	Clock              func() time.Time // default time.Now
}

func New(cfg Config) (*Memory, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = DefaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Memory{c: c, now: now, allowAdmin: cfg.AllowAdmin}, nil
}

// load returns the live entry under key. Expired entries read as absent.
func (m *Memory) load(op, key string) (wire.Entry, bool, error) {
	b, err := m.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return wire.Entry{}, false, nil
	}
	if err != nil {
		return wire.Entry{}, false, errs.Transport(op, key, err)
	}
	e, err := wire.Decode(b)
	if err != nil {
		return wire.Entry{}, false, errs.Transport(op, key, err)
	}
	if e.Expired(m.now()) {
		return wire.Entry{}, false, nil
	}
	return e, true, nil
}

func (m *Memory) put(op, key string, e wire.Entry) error {
	if err := m.c.Set(key, wire.Encode(e)); err != nil {
		return errs.Transport(op, key, err)
	}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok, err := m.load("get", key)
	if err != nil || !ok {
		return nil, false, err
	}
	if e.Kind != wire.KindString {
		return nil, false, errs.Usage("get", key, errWrongType)
	}
	return e.Payload, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration, cond store.Condition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cond != store.Always {
		_, exists, err := m.load("set", key)
		if err != nil {
			return false, err
		}
		if (cond == store.IfAbsent) == exists {
			return false, nil
		}
	}
	e := wire.Entry{Kind: wire.KindString, ExpiresAt: wire.Deadline(m.now(), ttl), Payload: value}
	if err := m.put("set", key, e); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, k := range keys {
		_, live, err := m.load("del", k)
		if err != nil {
			return n, err
		}
		if err := m.c.Delete(k); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
			return n, errs.Transport("del", k, err)
		}
		if live {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	_, ok, err := m.load("exists", key)
	return ok, err
}

// Scan returns matching keys in lexical order, so windows are stable between
// calls on an unchanged keyspace.
func (m *Memory) Scan(_ context.Context, pattern string, skip, take int) (int, []string, error) {
	if err := store.ValidateWindow(skip, take); err != nil {
		return 0, nil, err
	}
	now := m.now()
	var keys []string
	it := m.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			// entry evicted between SetNext and Value
			continue
		}
		k := info.Key()
		if !util.Match(pattern, k) {
			continue
		}
		e, err := wire.Decode(info.Value())
		if err != nil || e.Expired(now) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return len(keys), store.Window(keys, skip, take), nil
}

func (m *Memory) loadHash(op, key string) (map[string]string, wire.Entry, bool, error) {
	e, ok, err := m.load(op, key)
	if err != nil || !ok {
		return nil, e, false, err
	}
	if e.Kind != wire.KindHash {
		return nil, e, false, errs.Usage(op, key, errWrongType)
	}
	var fields map[string]string
	if err := msgpack.Unmarshal(e.Payload, &fields); err != nil {
		return nil, e, false, errs.Transport(op, key, err)
	}
	return fields, e, true, nil
}

func (m *Memory) HashGet(_ context.Context, key, field string) (string, bool, error) {
	fields, _, ok, err := m.loadHash("hget", key)
	if err != nil || !ok {
		return "", false, err
	}
	v, ok := fields[field]
	return v, ok, nil
}

// HashSet merges fields into the hash, keeping any expiry already attached.
func (m *Memory) HashSet(_ context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, e, ok, err := m.loadHash("hset", key)
	if err != nil {
		return err
	}
	if !ok {
		cur = make(map[string]string, len(fields))
		e = wire.Entry{Kind: wire.KindHash}
	}
	for f, v := range fields {
		cur[f] = v
	}
	payload, err := msgpack.Marshal(cur)
	if err != nil {
		return errs.Transport("hset", key, err)
	}
	e.Payload = payload
	return m.put("hset", key, e)
}

func (m *Memory) HashGetAll(_ context.Context, key string) (map[string]string, error) {
	fields, _, ok, err := m.loadHash("hgetall", key)
	if err != nil {
		return nil, err
	}
	if !ok || fields == nil {
		return map[string]string{}, nil
	}
	return fields, nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok, err := m.load("expire", key)
	if err != nil || !ok {
		return false, err
	}
	e.ExpiresAt = wire.Deadline(m.now(), ttl)
	if err := m.put("expire", key, e); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	e, ok, err := m.load("ttl", key)
	if err != nil || !ok {
		return 0, false, err
	}
	if e.ExpiresAt == 0 {
		return 0, true, nil
	}
	return time.Duration(e.ExpiresAt - m.now().UnixNano()), true, nil
}

func (m *Memory) Eval(_ context.Context, _ string, keys []string, _ ...any) (any, error) {
	key := ""
	if len(keys) > 0 {
		key = keys[0]
	}
	return nil, errs.Usage("eval", key, errs.ErrUnsupported)
}

func (m *Memory) FlushAll(_ context.Context) error {
	if !m.allowAdmin {
		return errs.Usage("flushall", "", errs.ErrAdminDisabled)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.c.Reset(); err != nil {
		return errs.Transport("flushall", "", err)
	}
	return nil
}

// Info renders bigcache statistics in the INFO text layout.
func (m *Memory) Info(_ context.Context) (string, error) {
	st := m.c.Stats()
	var b strings.Builder
	b.WriteString("# Server\r\n")
	b.WriteString("backend:bigcache\r\n")
	b.WriteString("\r\n# Memory\r\n")
	fmt.Fprintf(&b, "used_memory:%d\r\n", m.c.Capacity())
	b.WriteString("\r\n# Stats\r\n")
	fmt.Fprintf(&b, "keyspace_hits:%d\r\n", st.Hits)
	fmt.Fprintf(&b, "keyspace_misses:%d\r\n", st.Misses)
	fmt.Fprintf(&b, "delete_hits:%d\r\n", st.DelHits)
	fmt.Fprintf(&b, "delete_misses:%d\r\n", st.DelMisses)
	fmt.Fprintf(&b, "collisions:%d\r\n", st.Collisions)
	b.WriteString("\r\n# Keyspace\r\n")
	fmt.Fprintf(&b, "db0:keys=%d\r\n", m.c.Len())
	return b.String(), nil
}

// Close stops bigcache's janitor. Repeated calls are no-ops.
func (m *Memory) Close() error {
	var err error
	m.closeOnce.Do(func() { err = m.c.Close() })
	return err
}
