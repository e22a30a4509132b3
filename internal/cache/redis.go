package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a shared Redis instance, for deployments
// running more than one bridge process against the same upstreams.
// Entries are retained past their freshness window so stale-if-error
// still works, bounded by retention.
type Redis struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	logger    *slog.Logger
}

func NewRedis(client *redis.Client, prefix string, retention time.Duration, logger *slog.Logger) *Redis {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Redis{
		client:    client,
		prefix:    prefix,
		retention: retention,
		logger:    logger.With("component", "redis_cache"),
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, time.Duration, bool) {
	values, err := r.client.HMGet(ctx, r.prefix+key, "data", "ts").Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("couldn't read cache entry", "key", key, "error", err)
		}
		return nil, 0, false
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return nil, 0, false
	}

	data, ok := values[0].(string)
	if !ok {
		return nil, 0, false
	}
	tsStr, ok := values[1].(string)
	if !ok {
		return nil, 0, false
	}
	tsMilli, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return nil, 0, false
	}

	age := time.Since(time.UnixMilli(tsMilli))
	return []byte(data), age, true
}

func (r *Redis) Set(ctx context.Context, key string, data []byte) {
	full := r.prefix + key
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, full, "data", data, "ts", time.Now().UnixMilli())
	pipe.Expire(ctx, full, r.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("couldn't write cache entry", "key", key, "error", err)
	}
}
