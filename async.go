package cacheaside

import (
	"context"
	"time"

	"github.com/unkn0wn-root/cacheaside/codec"
	"github.com/unkn0wn-root/cacheaside/fieldmap"
)

// Future is the result of an operation running on its own goroutine.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn on a new goroutine.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the operation finishes or ctx ends. Returning early on
// ctx does not stop the operation; cancel the ctx passed to the call for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Lookup carries a (value, found) pair through a Future.
type Lookup[V any] struct {
	Value V
	Found bool
}

func found[V any](v V, ok bool, err error) (Lookup[V], error) {
	return Lookup[V]{Value: v, Found: ok}, err
}

// AsyncService mirrors Service; each call runs the synchronous form.
type AsyncService struct{ svc Service }

func Async(svc Service) *AsyncService { return &AsyncService{svc: svc} }

func (a *AsyncService) Delete(ctx context.Context, key string) *Future[bool] {
	return Go(func() (bool, error) { return a.svc.Delete(ctx, key) })
}

func (a *AsyncService) Exists(ctx context.Context, key string) *Future[bool] {
	return Go(func() (bool, error) { return a.svc.Exists(ctx, key) })
}

func (a *AsyncService) Keys(ctx context.Context, pattern string) *Future[[]string] {
	return Go(func() ([]string, error) { return a.svc.Keys(ctx, pattern) })
}

func (a *AsyncService) KeysPage(ctx context.Context, pattern string, pageIndex, pageSize int) *Future[Page] {
	return Go(func() (Page, error) { return a.svc.KeysPage(ctx, pattern, pageIndex, pageSize) })
}

func (a *AsyncService) KeysRange(ctx context.Context, pattern string, skip, take int) *Future[Page] {
	return Go(func() (Page, error) { return a.svc.KeysRange(ctx, pattern, skip, take) })
}

func (a *AsyncService) DeleteByPattern(ctx context.Context, pattern string) *Future[int64] {
	return Go(func() (int64, error) { return a.svc.DeleteByPattern(ctx, pattern) })
}

func (a *AsyncService) Clear(ctx context.Context) *Future[struct{}] {
	return Go(func() (struct{}, error) { return struct{}{}, a.svc.Clear(ctx) })
}

func (a *AsyncService) Info(ctx context.Context) *Future[map[string]string] {
	return Go(func() (map[string]string, error) { return a.svc.Info(ctx) })
}

func (a *AsyncService) RawInfo(ctx context.Context) *Future[string] {
	return Go(func() (string, error) { return a.svc.RawInfo(ctx) })
}

func (a *AsyncService) HashGetAll(ctx context.Context, key string) *Future[map[string]string] {
	return Go(func() (map[string]string, error) { return a.svc.HashGetAll(ctx, key) })
}

func (a *AsyncService) SetVariant(ctx context.Context, key string, v codec.Variant, ttl time.Duration) *Future[bool] {
	return Go(func() (bool, error) { return a.svc.SetVariant(ctx, key, v, ttl) })
}

func (a *AsyncService) GetVariant(ctx context.Context, key string) *Future[Lookup[codec.Variant]] {
	return Go(func() (Lookup[codec.Variant], error) { return found[codec.Variant](a.svc.GetVariant(ctx, key)) })
}

func (a *AsyncService) Eval(ctx context.Context, script string, keys []string, args ...any) *Future[any] {
	return Go(func() (any, error) { return a.svc.Eval(ctx, script, keys, args...) })
}

// AsyncCache mirrors Cache[V]; each call runs the synchronous form.
type AsyncCache[V any] struct{ c Cache[V] }

func AsyncFor[V any](c Cache[V]) *AsyncCache[V] { return &AsyncCache[V]{c: c} }

func (a *AsyncCache[V]) Get(ctx context.Context, key string) *Future[Lookup[V]] {
	return Go(func() (Lookup[V], error) { return found[V](a.c.Get(ctx, key)) })
}

func (a *AsyncCache[V]) Set(ctx context.Context, key string, v V, ttl time.Duration) *Future[bool] {
	return Go(func() (bool, error) { return a.c.Set(ctx, key, v, ttl) })
}

func (a *AsyncCache[V]) Insert(ctx context.Context, key string, v V, ttl time.Duration) *Future[bool] {
	return Go(func() (bool, error) { return a.c.Insert(ctx, key, v, ttl) })
}

func (a *AsyncCache[V]) Update(ctx context.Context, key string, v V, ttl time.Duration) *Future[bool] {
	return Go(func() (bool, error) { return a.c.Update(ctx, key, v, ttl) })
}

func (a *AsyncCache[V]) Delete(ctx context.Context, key string) *Future[bool] {
	return Go(func() (bool, error) { return a.c.Delete(ctx, key) })
}

func (a *AsyncCache[V]) GetOrFetch(ctx context.Context, key string, produce Producer[V], ttl time.Duration) *Future[V] {
	return Go(func() (V, error) { return a.c.GetOrFetch(ctx, key, produce, ttl) })
}

func (a *AsyncCache[V]) HashSet(ctx context.Context, key string, v V, schema *fieldmap.Schema[V]) *Future[struct{}] {
	return Go(func() (struct{}, error) { return struct{}{}, a.c.HashSet(ctx, key, v, schema) })
}

func (a *AsyncCache[V]) HashGetAll(ctx context.Context, key string, schema *fieldmap.Schema[V]) *Future[Lookup[V]] {
	return Go(func() (Lookup[V], error) { return found[V](a.c.HashGetAll(ctx, key, schema)) })
}

func (a *AsyncCache[V]) GetOrFetchHash(ctx context.Context, key string, schema *fieldmap.Schema[V], produce Producer[V], ttl time.Duration) *Future[V] {
	return Go(func() (V, error) { return a.c.GetOrFetchHash(ctx, key, schema, produce, ttl) })
}
