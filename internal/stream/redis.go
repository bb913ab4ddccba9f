package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sable:stream:"

// Redis is the shared store backend so pollers can live in a different
// process than the producer.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// RedisOptions configures the Redis stream store.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions, log *slog.Logger) (*Redis, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Redis{client: client, ttl: opts.TTL, log: log}, nil
}

// Publish implements Store.
func (r *Redis) Publish(ctx context.Context, requestID string, snap Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, keyPrefix+requestID, raw, r.ttl).Err(); err != nil {
		r.log.Warn("stream publish failed", "request_id", requestID, "error", err)
	}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, requestID string) (Snapshot, bool) {
	raw, err := r.client.Get(ctx, keyPrefix+requestID).Result()
	if err != nil {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}

// Close releases the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
