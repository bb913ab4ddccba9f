package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	indexKey  = "sable:cache:index"
	tagPrefix = "sable:tag:"
)

// Redis is the shared cache backend for multi-worker deployments.
// Backend errors degrade to misses; they are logged, never surfaced.
type Redis struct {
	client     *redis.Client
	ttl        time.Duration
	maxEntries int
	log        *slog.Logger
}

// RedisOptions configures the Redis cache backend.
type RedisOptions struct {
	Address    string
	Password   string
	DB         int
	TTL        time.Duration
	MaxEntries int
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions, log *slog.Logger) (*Redis, error) {
	if log == nil {
		log = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Redis{
		client:     client,
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		log:        log,
	}, nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, tool string, args map[string]any) (any, bool) {
	key := Key(tool, args)
	if key == "" {
		return nil, false
	}

	raw, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.log.Warn("cache get failed, treating as miss", "key", key, "error", err)
		return nil, false
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		r.log.Warn("cache entry undecodable, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return value, true
}

// Set implements Store. Eviction-index updates are best effort: a lost
// update degrades size accounting, and a miss is always safe.
func (r *Redis) Set(ctx context.Context, tool string, args map[string]any, value any, tags []string) {
	key := Key(tool, args)
	if key == "" {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.log.Warn("cache set failed", "key", key, "error", err)
		return
	}

	for _, tag := range tags {
		tagKey := tagPrefix + tag
		if err := r.client.SAdd(ctx, tagKey, key).Err(); err == nil {
			r.client.Expire(ctx, tagKey, r.ttl)
		}
	}

	if err := r.client.RPush(ctx, indexKey, key).Err(); err != nil {
		return
	}
	if r.maxEntries <= 0 {
		return
	}
	size, err := r.client.LLen(ctx, indexKey).Result()
	if err != nil {
		return
	}
	for size > int64(r.maxEntries) {
		oldest, err := r.client.LPop(ctx, indexKey).Result()
		if err != nil {
			return
		}
		r.client.Del(ctx, oldest)
		size--
	}
}

// InvalidateTag implements Store. Tagged entries are removed exactly;
// legacy untagged entries are swept by clearing the whole query index.
func (r *Redis) InvalidateTag(ctx context.Context, tag string) {
	tagKey := tagPrefix + tag
	keys, err := r.client.SMembers(ctx, tagKey).Result()
	if err != nil {
		r.log.Warn("tag lookup failed, sweeping all entries", "tag", tag, "error", err)
		r.Flush(ctx)
		return
	}
	if len(keys) == 0 {
		// no tag index for this tag: older entries may still reference
		// the entity, so sweep coarsely
		r.Flush(ctx)
		return
	}
	r.client.Del(ctx, keys...)
	r.client.Del(ctx, tagKey)
}

// Flush implements Store.
func (r *Redis) Flush(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
	r.client.Del(ctx, indexKey)
}

// Close releases the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
