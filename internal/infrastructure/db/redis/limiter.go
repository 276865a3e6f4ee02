package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bizdesk/customer-service/internal/infrastructure/ratelimit"
)

const limiterKeyPrefix = "bizdesk:ratelimit:login:"

// tokenBucketScript refills one token per interval, consumes one if
// available and returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

if interval_ms > 0 then
    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + intervals)
        last_refill = last_refill + (intervals * interval_ms)
    end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// LoginLimiter is a token bucket shared by every API instance through Redis.
type LoginLimiter struct {
	client   redis.Scripter
	capacity int
	interval time.Duration
	now      func() time.Time
}

func NewLoginLimiter(client redis.Scripter, capacity int, interval time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, capacity: capacity, interval: interval, now: time.Now}
}

// Allow consumes one token for key.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	ttl := int64((time.Duration(l.capacity)*l.interval + time.Minute) / time.Second)
	vals, err := tokenBucketScript.Run(ctx, l.client, []string{limiterKeyPrefix + key},
		l.now().UnixMilli(),
		l.capacity,
		l.interval.Milliseconds(),
		ttl,
	).Result()
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	return parseDecision(vals, l.capacity)
}

func parseDecision(vals interface{}, capacity int) (ratelimit.Decision, error) {
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return ratelimit.Decision{}, fmt.Errorf("unexpected rate limit result %#v", vals)
	}
	return ratelimit.Decision{
		Allowed:    asInt64(arr[0]) == 1,
		Limit:      capacity,
		Remaining:  int(asInt64(arr[1])),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// Pinger adapts a client to the readiness check.
type Pinger struct {
	Client *redis.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
