// Package store defines the backend abstraction used by cacheaside.
//
// A Store is a thin adapter over a key-value backend. It owns transport concerns
// (pooling, topology, read preference) and classifies every failure it returns
// with an errs.Kind: transport failures are errs.KindTransport, wrong-type access
// and malformed arguments are errs.KindUsage. Caller cancellation
// (context.Canceled) is returned unchanged.
//
// Keys are caller-chosen and opaque. A key holds either a string value or a hash;
// reading one as the other fails with a usage error (WRONGTYPE).
package store

import (
	"context"
	"time"

	"github.com/unkn0wn-root/cacheaside/errs"
)

// Condition selects when Set takes effect.
type Condition uint8

const (
	Always    Condition = iota // create or overwrite
	IfAbsent                   // NX
	IfPresent                  // XX
)

func (c Condition) String() string {
	switch c {
	case IfAbsent:
		return "nx"
	case IfPresent:
		return "xx"
	default:
		return "always"
	}
}

// All as a Scan take means "every key after skip".
const All = -1

// Store must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value under cond. ttl <= 0 means no expiry; otherwise the
	// expiry is attached atomically with the write. applied reports whether the
	// condition held and the write took effect.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, cond Condition) (applied bool, err error)

	// Delete removes keys and reports how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)

	Exists(ctx context.Context, key string) (bool, error)

	// Scan enumerates keys matching a glob pattern (empty = "*"). total is the
	// size of the whole match set; keys is the [skip, skip+take) window of it.
	// Order is backend-defined. take == All returns everything after skip.
	Scan(ctx context.Context, pattern string, skip, take int) (total int, keys []string, err error)

	HashGet(ctx context.Context, key, field string) (string, bool, error)
	HashSet(ctx context.Context, key string, fields map[string]string) error
	// HashGetAll returns an empty map for a missing key.
	HashGetAll(ctx context.Context, key string) (map[string]string, error)

	// Expire attaches a TTL to an existing key; false when the key is missing.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// TTL reports how long key has left. ok is false for a missing key; a key
	// without expiry reports 0.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)

	// Eval runs a server-side script. Stores without scripting return
	// errs.ErrUnsupported wrapped as a usage error.
	Eval(ctx context.Context, script string, keys []string, args ...any) (any, error)

	// FlushAll removes every key on every reachable endpoint. Administrative.
	FlushAll(ctx context.Context) error

	// Info returns the backend's raw server status text.
	Info(ctx context.Context) (string, error)

	Close() error
}

// ValidateWindow checks Scan's skip/take arguments.
func ValidateWindow(skip, take int) error {
	if skip < 0 {
		return errs.Usagef("scan", "", "negative skip %d", skip)
	}
	if take < All {
		return errs.Usagef("scan", "", "invalid take %d", take)
	}
	return nil
}

// Window slices an ordered match set to [skip, skip+take).
func Window(keys []string, skip, take int) []string {
	if skip >= len(keys) || take == 0 {
		return []string{}
	}
	end := len(keys)
	if take != All && take < end-skip {
		end = skip + take
	}
	out := make([]string, end-skip)
	copy(out, keys[skip:end])
	return out
}
