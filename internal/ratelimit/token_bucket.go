// Package ratelimit provides a redis-backed token bucket for the
// client-facing subscription sync endpoint.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
  ts = now
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  local refill = (delta / 1000) * rate
  tokens = math.min(burst, tokens + refill)
  ts = now
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tokens, ts}
`

type TokenBucket struct {
	client *redis.Client
	script *redis.Script
	rate   float64
	burst  int
	ttl    time.Duration
}

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client, ratePerSecond float64, burst int, ttl time.Duration) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
		rate:   ratePerSecond,
		burst:  burst,
		ttl:    ttl,
	}
}

// Allow consumes one token for the key. A nil bucket allows everything so
// the limiter degrades to a no-op without redis.
func (b *TokenBucket) Allow(ctx context.Context, key string) (Result, error) {
	if b == nil || b.client == nil {
		return Result{Allowed: true}, nil
	}
	if key == "" {
		return Result{}, errors.New("rate limit key is empty")
	}

	values, err := b.script.Run(ctx, b.client, []string{key},
		b.rate, b.burst, b.ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, err
	}
	if len(values) < 2 {
		return Result{}, errors.New("unexpected rate limit script reply")
	}

	res := Result{
		Allowed:   values[0] == 1,
		Remaining: int(values[1]),
	}
	if !res.Allowed && b.rate > 0 {
		res.RetryAfter = time.Duration(math.Ceil(1/b.rate)) * time.Second
	}
	return res, nil
}
