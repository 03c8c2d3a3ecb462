// Package ratelimit throttles requests per client key with a token bucket
// kept in Redis, so every API replica shares the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces bucket keys.
const DefaultPrefix = "taskmanager:ratelimit:"

const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

if rate <= 0 or burst <= 0 then
  return {1, 0}
end

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

tokens = math.min(burst, tokens + (math.max(0, now - ts) * rate) / 1000.0)

local allowed = tokens >= 1
local wait_ms = 0
if allowed then
  tokens = tokens - 1
else
  wait_ms = math.ceil((1 - tokens) * 1000.0 / rate)
end

redis.call("HSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

return {allowed and 1 or 0, wait_ms}
`

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RedisLimiter grants one token per call from a bucket per key.
type RedisLimiter struct {
	rdb    redis.Scripter
	prefix string
	rate   float64
	burst  float64
	script *redis.Script
	now    func() time.Time
}

// NewRedisLimiter refills rate tokens per second up to burst. A non-positive
// rate or burst disables limiting.
func NewRedisLimiter(rdb redis.Scripter, prefix string, rate, burst float64) *RedisLimiter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisLimiter{
		rdb:    rdb,
		prefix: prefix,
		rate:   rate,
		burst:  burst,
		script: redis.NewScript(tokenBucketLua),
		now:    time.Now,
	}
}

// Allow takes one token from key's bucket.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l == nil || l.rate <= 0 || l.burst <= 0 {
		return Decision{Allowed: true}, nil
	}
	res, err := l.script.Run(ctx, l.rdb, []string{l.prefix + key},
		l.rate, l.burst, l.now().UnixMilli()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit eval: %w", err)
	}
	values, ok := res.([]interface{})
	if !ok || len(values) < 2 {
		return Decision{}, fmt.Errorf("ratelimit invalid result %v", res)
	}
	return Decision{
		Allowed:    toInt64(values[0]) == 1,
		RetryAfter: time.Duration(toInt64(values[1])) * time.Millisecond,
	}, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if parsed, err := strconv.ParseInt(t, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
