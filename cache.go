package cacheaside

import (
	"context"
	"time"

	"github.com/unkn0wn-root/cacheaside/codec"
	"github.com/unkn0wn-root/cacheaside/errs"
	"github.com/unkn0wn-root/cacheaside/fieldmap"
	"github.com/unkn0wn-root/cacheaside/store"
)

// Producer reasons reported to Hooks.ProducerInvoked.
const (
	ReasonMiss     = "miss"
	ReasonFallback = "fallback"
)

type cache[V any] struct {
	s     *service
	codec codec.Codec[V]
}

var _ Cache[any] = (*cache[any])(nil)

// lookup returns the stored bytes. Empty and null payloads are misses.
func (c *cache[V]) lookup(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := c.s.st.Get(ctx, key)
	if err != nil || !ok || codec.NoValue(raw) {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *cache[V]) decode(key string, raw []byte) (V, error) {
	v, err := c.codec.Decode(raw)
	if err != nil {
		var zero V
		return zero, c.s.decodeFailed(key, errs.Decode("get", key, err))
	}
	return v, nil
}

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, ok, err := c.lookup(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := c.decode(key, raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (c *cache[V]) write(ctx context.Context, key string, v V, ttl time.Duration, cond store.Condition) (bool, error) {
	raw, err := c.codec.Encode(v)
	if err != nil {
		return false, errs.Usage("set", key, err)
	}
	return c.s.st.Set(ctx, key, raw, c.s.expiry(ttl), cond)
}

func (c *cache[V]) Set(ctx context.Context, key string, v V, ttl time.Duration) (bool, error) {
	return c.write(ctx, key, v, ttl, store.Always)
}

func (c *cache[V]) Insert(ctx context.Context, key string, v V, ttl time.Duration) (bool, error) {
	return c.write(ctx, key, v, ttl, store.IfAbsent)
}

func (c *cache[V]) Update(ctx context.Context, key string, v V, ttl time.Duration) (bool, error) {
	return c.write(ctx, key, v, ttl, store.IfPresent)
}

func (c *cache[V]) Delete(ctx context.Context, key string) (bool, error) {
	return c.s.Delete(ctx, key)
}

// GetOrFetch:
//
//	hit                 -> decode, write back (refreshes expiry), return
//	miss / no value     -> produce, write back, return
//	transport failure   -> produce, write back, return
//	decode / usage / canceled -> return the error
//
// produce runs at most once per call. Concurrent callers on the same key may
// each run it; there is no stampede suppression.
func (c *cache[V]) GetOrFetch(ctx context.Context, key string, produce Producer[V], ttl time.Duration) (V, error) {
	var zero V
	if produce == nil {
		return zero, errs.Usage("get_or_fetch", key, ErrNilProducer)
	}

	raw, ok, err := c.lookup(ctx, key)
	switch {
	case err == nil && ok:
		v, err := c.decode(key, raw)
		if err != nil {
			return zero, err
		}
		c.s.discardWriteBack(key, func() error {
			_, err := c.s.st.Set(ctx, key, raw, c.s.expiry(ttl), store.Always)
			return err
		})
		return v, nil
	case err == nil:
		c.s.hooks.ProducerInvoked(key, ReasonMiss)
	case errs.IsTransport(err):
		c.s.fallback("get", key, err)
		c.s.hooks.ProducerInvoked(key, ReasonFallback)
	default:
		return zero, err
	}

	v, err := produce(ctx)
	if err != nil {
		return zero, err
	}
	c.s.discardWriteBack(key, func() error {
		_, err := c.write(ctx, key, v, ttl, store.Always)
		return err
	})
	return v, nil
}

// HashSet writes v's fields into the hash at key. Existing fields not in v
// are left in place; expiry already attached to key is kept.
func (c *cache[V]) HashSet(ctx context.Context, key string, v V, schema *fieldmap.Schema[V]) error {
	fields, err := schema.ToFields(&v)
	if err != nil {
		return errs.WithKey(err, key)
	}
	return c.s.st.HashSet(ctx, key, fields)
}

// HashGetAll rebuilds a V from the hash at key. A missing or empty hash is a miss.
func (c *cache[V]) HashGetAll(ctx context.Context, key string, schema *fieldmap.Schema[V]) (V, bool, error) {
	var zero V
	m, err := c.s.st.HashGetAll(ctx, key)
	if err != nil || len(m) == 0 {
		return zero, false, err
	}
	v, err := schema.FromFields(m)
	if err != nil {
		return zero, false, c.s.decodeFailed(key, errs.WithKey(err, key))
	}
	return v, true, nil
}

// writeHash stores fields and, when an expiry applies, attaches it. Without
// an expiry the hash keeps whatever TTL it already had.
func (c *cache[V]) writeHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if err := c.s.st.HashSet(ctx, key, fields); err != nil {
		return err
	}
	if exp := c.s.expiry(ttl); exp > 0 {
		if _, err := c.s.st.Expire(ctx, key, exp); err != nil {
			return err
		}
	}
	return nil
}

// GetOrFetchHash is GetOrFetch for hash-shaped entries.
func (c *cache[V]) GetOrFetchHash(ctx context.Context, key string, schema *fieldmap.Schema[V], produce Producer[V], ttl time.Duration) (V, error) {
	var zero V
	if produce == nil {
		return zero, errs.Usage("get_or_fetch_hash", key, ErrNilProducer)
	}

	m, err := c.s.st.HashGetAll(ctx, key)
	switch {
	case err == nil && len(m) > 0:
		v, err := schema.FromFields(m)
		if err != nil {
			return zero, c.s.decodeFailed(key, errs.WithKey(err, key))
		}
		c.s.discardWriteBack(key, func() error {
			return c.writeHash(ctx, key, m, ttl)
		})
		return v, nil
	case err == nil:
		c.s.hooks.ProducerInvoked(key, ReasonMiss)
	case errs.IsTransport(err):
		c.s.fallback("hgetall", key, err)
		c.s.hooks.ProducerInvoked(key, ReasonFallback)
	default:
		return zero, err
	}

	v, err := produce(ctx)
	if err != nil {
		return zero, err
	}
	c.s.discardWriteBack(key, func() error {
		fields, err := schema.ToFields(&v)
		if err != nil {
			return errs.WithKey(err, key)
		}
		return c.writeHash(ctx, key, fields, ttl)
	})
	return v, nil
}

// HashField reads one hash field and converts it with conv.
func HashField[F any](ctx context.Context, svc Service, key, field string, conv fieldmap.Conv[F]) (F, bool, error) {
	var zero F
	s, ok, err := svc.Store().HashGet(ctx, key, field)
	if err != nil || !ok {
		return zero, false, err
	}
	f, err := conv.Parse(s)
	if err != nil {
		return zero, false, errs.Conversion("hget", key, err)
	}
	return f, true, nil
}
