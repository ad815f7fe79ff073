package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/cacheaside/errs"
	"github.com/unkn0wn-root/cacheaside/store"
)

var ErrNilClient = errors.New("redis store: nil client")

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 250

// scanAnchor picks the cluster node scans run on: the master owning its slot.
const scanAnchor = "cacheaside:scan"

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	allowAdmin  bool
	// splitDeletes sends one DEL per key; a cluster rejects a multi-key DEL
	// whose keys hash to different slots.
	splitDeletes bool
}

var _ store.Store = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client
	AllowAdmin  bool // permits FlushAll
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	_, cluster := cfg.Client.(*goredis.ClusterClient)
	return &Redis{
		rdb:          cfg.Client,
		closeClient:  cfg.CloseClient,
		allowAdmin:   cfg.AllowAdmin,
		splitDeletes: cluster,
	}, nil
}

// Client exposes the underlying client for commands outside the Store contract.
func (r *Redis) Client() goredis.UniversalClient { return r.rdb }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, classify("get", key, err)
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration, cond store.Condition) (bool, error) {
	if ttl < 0 {
		ttl = 0 // non-positive => no expiry
	}
	var (
		ok  bool
		err error
	)
	switch cond {
	case store.IfAbsent:
		ok, err = r.rdb.SetNX(ctx, key, value, ttl).Result()
	case store.IfPresent:
		ok, err = r.rdb.SetXX(ctx, key, value, ttl).Result()
	default:
		err = r.rdb.Set(ctx, key, value, ttl).Err()
		ok = err == nil
	}
	if err == goredis.Nil {
		// SET NX/XX replies nil when the condition does not hold.
		return false, nil
	}
	if err != nil {
		return false, classify("set", key, err)
	}
	return ok, nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	if r.splitDeletes && len(keys) > 1 {
		return r.deleteEach(ctx, keys)
	}
	n, err := r.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, classify("del", firstKey(keys), err)
	}
	return n, nil
}

// deleteEach pipelines one DEL per key. The cluster client groups the
// pipeline by node.
func (r *Redis) deleteEach(ctx context.Context, keys []string) (int64, error) {
	cmds := make([]*goredis.IntCmd, len(keys))
	_, err := r.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.Del(ctx, k)
		}
		return nil
	})
	if err != nil {
		return 0, classify("del", firstKey(keys), err)
	}
	var n int64
	for _, c := range cmds {
		n += c.Val()
	}
	return n, nil
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, classify("exists", key, err)
	}
	return n > 0, nil
}

// scanner returns the client a whole SCAN runs on. A cluster client routes
// each SCAN step by the hash slot of its cursor argument, so cursors would
// hop between nodes; scans are pinned to one master instead.
func (r *Redis) scanner(ctx context.Context) (goredis.Cmdable, error) {
	if c, ok := r.rdb.(*goredis.ClusterClient); ok {
		return c.MasterForKey(ctx, scanAnchor)
	}
	return r.rdb, nil
}

// Scan walks the keyspace of a single endpoint. On a cluster that is one
// master, so the result is that node's view only.
func (r *Redis) Scan(ctx context.Context, pattern string, skip, take int) (int, []string, error) {
	if err := store.ValidateWindow(skip, take); err != nil {
		return 0, nil, err
	}
	if pattern == "" {
		pattern = "*"
	}
	node, err := r.scanner(ctx)
	if err != nil {
		return 0, nil, classify("scan", pattern, err)
	}

	// SCAN may return a key more than once; count distinct keys.
	seen := make(map[string]struct{})
	var window []string
	total := 0
	it := node.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for it.Next(ctx) {
		k := it.Val()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if total >= skip && (take == store.All || total-skip < take) {
			window = append(window, k)
		}
		total++
	}
	if err := it.Err(); err != nil {
		return 0, nil, classify("scan", pattern, err)
	}
	if window == nil {
		window = []string{}
	}
	return total, window, nil
}

func (r *Redis) HashGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := r.rdb.HGet(ctx, key, field).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("hget", key, err)
	}
	return v, true, nil
}

func (r *Redis) HashSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]any, len(fields))
	for f, v := range fields {
		values[f] = v
	}
	if err := r.rdb.HSet(ctx, key, values).Err(); err != nil {
		return classify("hset", key, err)
	}
	return nil
}

func (r *Redis) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, classify("hgetall", key, err)
	}
	return m, nil
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	var (
		ok  bool
		err error
	)
	if ttl <= 0 {
		ok, err = r.rdb.Persist(ctx, key).Result()
		if err == nil && !ok {
			// PERSIST reports false for keys without a TTL too.
			ok, err = r.Exists(ctx, key)
			return ok, err
		}
	} else {
		ok, err = r.rdb.PExpire(ctx, key, ttl).Result()
	}
	if err != nil {
		return false, classify("expire", key, err)
	}
	return ok, nil
}

func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := r.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, classify("pttl", key, err)
	}
	switch {
	case d == -2: // missing
		return 0, false, nil
	case d < 0: // no expiry
		return 0, true, nil
	}
	return d, true, nil
}

func (r *Redis) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	v, err := r.rdb.Eval(ctx, script, keys, args...).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, classify("eval", firstKey(keys), err)
	}
	return v, nil
}

// FlushAll clears every master of a cluster, every shard of a ring, or the
// single server otherwise.
func (r *Redis) FlushAll(ctx context.Context) error {
	if !r.allowAdmin {
		return errs.Usage("flushall", "", errs.ErrAdminDisabled)
	}
	var err error
	switch c := r.rdb.(type) {
	case *goredis.ClusterClient:
		err = c.ForEachMaster(ctx, func(ctx context.Context, node *goredis.Client) error {
			return node.FlushAll(ctx).Err()
		})
	case *goredis.Ring:
		err = c.ForEachShard(ctx, func(ctx context.Context, shard *goredis.Client) error {
			return shard.FlushAll(ctx).Err()
		})
	default:
		err = r.rdb.FlushAll(ctx).Err()
	}
	if err != nil {
		return classify("flushall", "", err)
	}
	return nil
}

func (r *Redis) Info(ctx context.Context) (string, error) {
	s, err := r.rdb.Info(ctx).Result()
	if err != nil {
		return "", classify("info", "", err)
	}
	return s, nil
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (r *Redis) Close() error {
	if r.closeClient {
		if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func firstKey(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
