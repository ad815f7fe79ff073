package cacheaside

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/cacheaside/codec"
	"github.com/unkn0wn-root/cacheaside/config"
	"github.com/unkn0wn-root/cacheaside/fieldmap"
	"github.com/unkn0wn-root/cacheaside/store"
	"github.com/unkn0wn-root/cacheaside/store/redis"
)

// NoExpiry as a ttl stores the entry without expiry even when Options.DefaultTTL is set.
const NoExpiry time.Duration = -1

// Producer computes a value on a cache miss or when the store is unreachable.
type Producer[V any] func(ctx context.Context) (V, error)

// Page is one slice of a key listing. Total counts the whole match set.
type Page struct {
	Total int
	Keys  []string
}

// Service is the untyped surface over one store: key-space navigation,
// administration, raw hashes and polymorphic values. Typed access goes
// through For.
type Service interface {
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)

	// Keys lists every matching key. Unbounded; meant for diagnostics.
	Keys(ctx context.Context, pattern string) ([]string, error)
	KeysPage(ctx context.Context, pattern string, pageIndex, pageSize int) (Page, error)
	KeysRange(ctx context.Context, pattern string, skip, take int) (Page, error)
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	// Clear flushes every reachable endpoint. Requires admin permission.
	Clear(ctx context.Context) error
	Info(ctx context.Context) (map[string]string, error)
	RawInfo(ctx context.Context) (string, error)

	HashGetAll(ctx context.Context, key string) (map[string]string, error)

	// SetVariant and GetVariant store values tagged with their concrete type.
	// Both require Options.Variants.
	SetVariant(ctx context.Context, key string, v codec.Variant, ttl time.Duration) (bool, error)
	GetVariant(ctx context.Context, key string) (codec.Variant, bool, error)

	Eval(ctx context.Context, script string, keys []string, args ...any) (any, error)

	// Store exposes the backend for operations outside this interface.
	Store() store.Store
	Close(ctx context.Context) error
}

// Cache is the typed surface for values of V.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (v V, ok bool, err error)
	// Set always writes. Insert writes only if key is absent, Update only if
	// present; both report false without error when the condition fails.
	Set(ctx context.Context, key string, v V, ttl time.Duration) (bool, error)
	Insert(ctx context.Context, key string, v V, ttl time.Duration) (bool, error)
	Update(ctx context.Context, key string, v V, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)

	// GetOrFetch reads key, calling produce on a miss or when the store is
	// unreachable, then writes the value back. The write-back never fails the call.
	GetOrFetch(ctx context.Context, key string, produce Producer[V], ttl time.Duration) (V, error)

	// Hash-shaped storage, one hash field per schema field.
	HashSet(ctx context.Context, key string, v V, schema *fieldmap.Schema[V]) error
	HashGetAll(ctx context.Context, key string, schema *fieldmap.Schema[V]) (V, bool, error)
	GetOrFetchHash(ctx context.Context, key string, schema *fieldmap.Schema[V], produce Producer[V], ttl time.Duration) (V, error)
}

// Options configure a Service. Only Store is required.
type Options struct {
	Store store.Store

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// DefaultTTL applies when an operation is called with ttl 0.
	// 0 => entries persist.
	DefaultTTL time.Duration

	// Variants enables SetVariant/GetVariant.
	Variants *codec.Registry

	// CloseStore makes Close release the store. Set it only when the
	// service exclusively owns the store.
	CloseStore bool
}

func New(opts Options) (Service, error) {
	return newService(opts)
}

// Open connects a redis store from settings and builds a Service that owns it.
// settings.DefaultTTL fills opts.DefaultTTL when the latter is unset.
func Open(ctx context.Context, settings config.Settings, opts Options) (Service, error) {
	if opts.Store != nil {
		return nil, fmt.Errorf("cacheaside: Open builds its own store; Options.Store must be nil")
	}
	st, err := redis.Connect(ctx, settings)
	if err != nil {
		return nil, err
	}
	opts.Store = st
	opts.CloseStore = true
	opts.DefaultTTL = coalesce(opts.DefaultTTL, settings.DefaultTTL)
	svc, err := newService(opts)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if !settings.AbortOnConnectFail {
		svc.log.Debug("store connects lazily", Fields{"endpoints": settings.Endpoints})
	}
	return svc, nil
}

// For binds a codec to svc. The result shares svc's store, logger and hooks.
// svc must come from New or Open; For panics on any other implementation.
func For[V any](svc Service, c codec.Codec[V]) Cache[V] {
	s, ok := svc.(*service)
	if !ok {
		panic(fmt.Sprintf("cacheaside: For needs a Service built by New or Open, got %T", svc))
	}
	if c == nil {
		c = codec.JSON[V]{}
	}
	return &cache[V]{s: s, codec: c}
}
