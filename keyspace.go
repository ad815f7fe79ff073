package cacheaside

import (
	"context"
	"math"

	"github.com/unkn0wn-root/cacheaside/errs"
	"github.com/unkn0wn-root/cacheaside/store"
)

func (s *service) Keys(ctx context.Context, pattern string) ([]string, error) {
	_, keys, err := s.st.Scan(ctx, pattern, 0, store.All)
	return keys, err
}

// KeysPage returns page pageIndex (0-based) of pageSize keys.
func (s *service) KeysPage(ctx context.Context, pattern string, pageIndex, pageSize int) (Page, error) {
	if pageIndex < 0 || pageSize < 0 {
		return Page{}, errs.Usagef("keys_page", pattern, "invalid page %d of size %d", pageIndex, pageSize)
	}
	if pageSize > 0 && pageIndex > math.MaxInt/pageSize {
		// offset overflows; no key set is that large
		return s.KeysRange(ctx, pattern, math.MaxInt, 0)
	}
	return s.KeysRange(ctx, pattern, pageIndex*pageSize, pageSize)
}

// KeysRange returns take keys after skipping skip of them.
func (s *service) KeysRange(ctx context.Context, pattern string, skip, take int) (Page, error) {
	if skip < 0 || take < 0 {
		return Page{}, errs.Usagef("keys_range", pattern, "invalid skip %d / take %d", skip, take)
	}
	total, keys, err := s.st.Scan(ctx, pattern, skip, take)
	if err != nil {
		return Page{}, err
	}
	return Page{Total: total, Keys: keys}, nil
}

// DeleteByPattern removes the keys matching pattern at call time in one
// store Delete. On partitioned deployments the key set is the scanned
// endpoint's view.
func (s *service) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	keys, err := s.Keys(ctx, pattern)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.st.Delete(ctx, keys...)
	if err != nil {
		return n, err
	}
	s.log.Debug("deleted by pattern", Fields{"pattern": pattern, "matched": len(keys), "deleted": n})
	return n, nil
}
