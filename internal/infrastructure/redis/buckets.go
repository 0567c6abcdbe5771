package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const scanCount = 200

// Bucket is one live rate-limit counter.
type Bucket struct {
	Key   string
	Count int
	TTL   time.Duration
}

// Buckets lists live counters matching scope and identity; empty values
// match everything.
func (l *FixedWindowLimiter) Buckets(ctx context.Context, scope, identity string) ([]Bucket, error) {
	if l.rdb == nil {
		return nil, nil
	}
	keys, err := l.scan(ctx, bucketPattern(scope, identity))
	if err != nil {
		return nil, err
	}

	out := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		val, err := l.rdb.Get(ctx, k).Result()
		if errors.Is(err, goredis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, domain.ErrRedisUnavailable(fmt.Errorf("ratelimit get: %w", err))
		}
		ttl, err := l.rdb.PTTL(ctx, k).Result()
		if err != nil {
			return nil, domain.ErrRedisUnavailable(fmt.Errorf("ratelimit ttl: %w", err))
		}
		n, _ := strconv.Atoi(val)
		out = append(out, Bucket{Key: k, Count: n, TTL: ttl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Reset deletes the matching counters and returns how many were removed.
func (l *FixedWindowLimiter) Reset(ctx context.Context, scope, identity string) (int, error) {
	if l.rdb == nil {
		return 0, nil
	}
	keys, err := l.scan(ctx, bucketPattern(scope, identity))
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	n, err := l.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, domain.ErrRedisUnavailable(fmt.Errorf("ratelimit del: %w", err))
	}
	return int(n), nil
}

func (l *FixedWindowLimiter) scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := l.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, domain.ErrRedisUnavailable(fmt.Errorf("ratelimit scan: %w", err))
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func bucketPattern(scope, identity string) string {
	if scope == "" {
		scope = "*"
	}
	if identity == "" {
		identity = "*"
	}
	return keyPrefix + scope + ":" + identity + ":*"
}
