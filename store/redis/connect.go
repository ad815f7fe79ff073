package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/cacheaside/config"
	"github.com/unkn0wn-root/cacheaside/errs"
)

// Options maps connection settings onto go-redis universal options. One
// endpoint yields a plain client, several a cluster client, and a MasterName a
// failover client.
func Options(s config.Settings) *goredis.UniversalOptions {
	retries := s.RetryAttempts
	if retries == 0 {
		retries = -1 // go-redis reads 0 as "use default"
	}
	return &goredis.UniversalOptions{
		Addrs:        s.Endpoints,
		DB:           s.DefaultDatabase,
		Username:     s.Username,
		Password:     s.Password,
		MasterName:   s.MasterName,
		DialTimeout:  s.ConnectTimeout,
		ReadTimeout:  s.SyncTimeout,
		WriteTimeout: s.SyncTimeout,
		MaxRetries:   retries,

		// prefer-replica reads
		ReadOnly:      s.PreferReplica,
		RouteRandomly: s.PreferReplica,
	}
}

// Connect builds a store that owns its client. With AbortOnConnectFail the
// backend is pinged and an unreachable backend fails construction; otherwise
// the client connects lazily on first use.
func Connect(ctx context.Context, s config.Settings) (*Redis, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	client := goredis.NewUniversalClient(Options(s))
	if s.AbortOnConnectFail {
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis store: connect %v: %w", s.Endpoints, errs.Transport("ping", "", err))
		}
	}
	return New(Config{Client: client, CloseClient: true, AllowAdmin: s.AllowAdmin})
}
