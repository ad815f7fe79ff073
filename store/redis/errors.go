package redis

import (
	"context"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/cacheaside/errs"
)

// Server error prefixes that indicate a caller bug rather than an unavailable backend.
var usagePrefixes = []string{
	"WRONGTYPE",
	"CROSSSLOT",
	"NOSCRIPT",
	"ERR syntax error",
	"ERR wrong number of arguments",
	"ERR unknown command",
	"ERR invalid expire time",
	"ERR value is not an integer",
	"ERR Error compiling script",
	"ERR Error running script",
	"ERR user_script",
}

// classify maps a go-redis error to the errs taxonomy. Caller cancellation is
// returned as is.
func classify(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var rerr goredis.Error
	if errors.As(err, &rerr) && isUsage(rerr.Error()) {
		return errs.Usage(op, key, err)
	}
	// network errors, timeouts, closed client, pool exhaustion, LOADING,
	// READONLY, CLUSTERDOWN, MASTERDOWN, BUSY, OOM ...
	return errs.Transport(op, key, err)
}

func isUsage(msg string) bool {
	for _, p := range usagePrefixes {
		if strings.HasPrefix(msg, p) {
			return true
		}
	}
	return false
}
