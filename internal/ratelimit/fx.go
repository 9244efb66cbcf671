package ratelimit

import (
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/workfolio/workfolio/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SyncLimiter throttles per-team subscription sync attempts.
type SyncLimiter struct {
	*TokenBucket
}

func newRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, rate limiting disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

func newSyncLimiter(client *redis.Client) *SyncLimiter {
	// A user retrying a failed payment poll has no legitimate reason to
	// exceed a handful of attempts per minute.
	return &SyncLimiter{NewTokenBucket(client, 0.2, 5, 10*time.Minute)}
}

var Module = fx.Module("rate.limit",
	fx.Provide(
		newRedisClient,
		newSyncLimiter,
	),
)
