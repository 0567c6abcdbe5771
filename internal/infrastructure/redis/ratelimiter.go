package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const keyPrefix = "account:rl:"

// Rule is a request budget per fixed window.
type Rule struct {
	Limit  int
	Window time.Duration
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // 0 if allowed
	ResetAt    time.Time
	Count      int
}

// FixedWindowLimiter counts hits per (scope, identity, window bucket) in
// Redis. The first hit of a bucket sets its expiry.
type FixedWindowLimiter struct {
	rdb *goredis.Client
	now func() time.Time
}

func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	l := &FixedWindowLimiter{now: time.Now}
	if c != nil {
		l.rdb = c.rdb
	}
	return l
}

func (l *FixedWindowLimiter) WithClock(now func() time.Time) *FixedWindowLimiter {
	if now != nil {
		l.now = now
	}
	return l
}

// atomic INCR + expire on first hit; returns {count, ttl_ms}
var fixedWindowScript = goredis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`)

func bucketKey(scope, identity string, window time.Duration, at time.Time) string {
	bucket := at.UnixMilli() / window.Milliseconds()
	return keyPrefix + scope + ":" + identity + ":" + strconv.FormatInt(bucket, 10)
}

// Allow records one hit and reports whether it fits the rule. A nil client
// or a non-positive limit always allows.
func (l *FixedWindowLimiter) Allow(ctx context.Context, scope, identity string, rule Rule) (Decision, error) {
	if rule.Limit <= 0 || l.rdb == nil {
		return Decision{Allowed: true, Limit: rule.Limit, Remaining: max(0, rule.Limit)}, nil
	}
	window := rule.Window
	if window < time.Second {
		window = time.Minute
	}

	now := l.now()
	key := bucketKey(scope, identity, window, now)

	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return Decision{}, domain.ErrRedisUnavailable(fmt.Errorf("ratelimit eval: %w", err))
	}
	arr, ok := res.([]any)
	if !ok || len(arr) != 2 {
		return Decision{}, domain.ErrRedisUnavailable(fmt.Errorf("ratelimit eval: unexpected result %T", res))
	}
	count, _ := arr[0].(int64)
	ttlMs, _ := arr[1].(int64)
	ttl := time.Duration(ttlMs) * time.Millisecond

	d := Decision{
		Allowed:   int(count) <= rule.Limit,
		Limit:     rule.Limit,
		Remaining: max(0, rule.Limit-int(count)),
		Count:     int(count),
		ResetAt:   now.Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
		if d.RetryAfter <= 0 {
			d.RetryAfter = window
		}
	}
	return d, nil
}
