/**
 * @description
 * Redis connection manager using go-redis.
 * Used for caching predictions and for the model reload pub/sub channel.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 * - github.com/alicebob/miniredis/v2: in-process fallback for development
 */

package db

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/logger"
)

// ConnectRedis initializes the Redis client. It returns (nil, nil) when Redis
// is disabled; callers then run without cache and reload notifications.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		logger.Info("Redis disabled; prediction cache and reload channel are off")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}

	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = 5 * time.Second
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = 5 * time.Second
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 5 * time.Second
	}
	if opt.MaxRetries == 0 {
		opt.MaxRetries = 2
	}
	if opt.MinRetryBackoff == 0 {
		opt.MinRetryBackoff = 200 * time.Millisecond
	}
	if opt.MaxRetryBackoff == 0 {
		opt.MaxRetryBackoff = 2 * time.Second
	}
	if opt.PoolSize == 0 {
		opt.PoolSize = 20
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), opt.DialTimeout)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		if cfg.Server.Env != "development" {
			return nil, err
		}
		logger.Warn("Redis unreachable (%v); using in-process miniredis", err)
		return startEmbedded()
	}

	logger.Info("✅ Connected to Redis")
	return client, nil
}

// startEmbedded runs a miniredis server that lives as long as the process.
func startEmbedded() (*redis.Client, error) {
	mr, err := miniredis.Run()
	if err != nil {
		return nil, err
	}
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil
}
