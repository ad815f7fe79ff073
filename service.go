package cacheaside

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/cacheaside/codec"
	"github.com/unkn0wn-root/cacheaside/errs"
	"github.com/unkn0wn-root/cacheaside/store"
)

type service struct {
	st         store.Store
	log        Logger
	hooks      Hooks
	defaultTTL time.Duration
	variants   *codec.Registry
	closeStore bool
}

var _ Service = (*service)(nil)

func newService(opts Options) (*service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("cacheaside: store is required")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("cacheaside: negative default ttl %v", opts.DefaultTTL)
	}
	return &service{
		st:         opts.Store,
		log:        coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:      coalesce[Hooks](opts.Hooks, NopHooks{}),
		defaultTTL: opts.DefaultTTL,
		variants:   opts.Variants,
		closeStore: opts.CloseStore,
	}, nil
}

func (s *service) Store() store.Store { return s.st }

// expiry resolves a per-call ttl: 0 takes the default, negative means none.
// The store reads 0 as "no expiry".
func (s *service) expiry(ttl time.Duration) time.Duration {
	switch {
	case ttl < 0:
		return 0
	case ttl == 0:
		return s.defaultTTL
	default:
		return ttl
	}
}

// discardWriteBack runs the write-back step of a get-or-fetch. Its error is
// intentionally dropped: the caller already holds the value, so a failed
// write-back only costs a future miss. Hooks and the logger still see it.
func (s *service) discardWriteBack(key string, write func() error) {
	err := write()
	if err == nil {
		return
	}
	s.hooks.WriteBackDropped(key, err)
	s.log.Warn("write-back dropped", Fields{"key": key, "err": err})
}

// fallback records a lookup that failed with a transport error and is being
// served by the producer instead.
func (s *service) fallback(op, key string, err error) {
	s.hooks.BackendFallback(op, key, err)
	s.log.Debug("store unavailable; using producer", Fields{"op": op, "key": key, "err": err})
}

func (s *service) decodeFailed(key string, err error) error {
	s.hooks.DecodeFailed(key, err)
	return err
}

func (s *service) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.st.Delete(ctx, key)
	return n > 0, err
}

func (s *service) Exists(ctx context.Context, key string) (bool, error) {
	return s.st.Exists(ctx, key)
}

func (s *service) Clear(ctx context.Context) error {
	if err := s.st.FlushAll(ctx); err != nil {
		return err
	}
	s.log.Info("cache cleared", nil)
	return nil
}

func (s *service) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.st.HashGetAll(ctx, key)
}

func (s *service) SetVariant(ctx context.Context, key string, v codec.Variant, ttl time.Duration) (bool, error) {
	if s.variants == nil {
		return false, errs.Usage("set_variant", key, ErrNoVariants)
	}
	raw, err := s.variants.Encode(v)
	if err != nil {
		return false, errs.Usage("set_variant", key, err)
	}
	return s.st.Set(ctx, key, raw, s.expiry(ttl), store.Always)
}

func (s *service) GetVariant(ctx context.Context, key string) (codec.Variant, bool, error) {
	if s.variants == nil {
		return nil, false, errs.Usage("get_variant", key, ErrNoVariants)
	}
	raw, ok, err := s.st.Get(ctx, key)
	if err != nil || !ok || codec.NoValue(raw) {
		return nil, false, err
	}
	v, err := s.variants.Decode(raw)
	if err != nil {
		return nil, false, s.decodeFailed(key, errs.Decode("get_variant", key, err))
	}
	return v, true, nil
}

func (s *service) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	return s.st.Eval(ctx, script, keys, args...)
}

// Close releases the store when the service owns it.
func (s *service) Close(_ context.Context) error {
	if !s.closeStore {
		return nil
	}
	return s.st.Close()
}
