package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a Redis server. Keys are namespaced with a
// prefix so several instances can share one database. The byte quota is
// configured, not read from the server; Used counts the stored values via
// MEMORY USAGE.
type Redis struct {
	client *redis.Client
	prefix string
	quota  int64
}

// RedisConfig holds connection settings for the Redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Quota    int64
}

// NewRedis connects a Redis store and verifies the server is reachable.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	quota := cfg.Quota
	if quota <= 0 {
		quota = DefaultQuota
	}

	return &Redis{client: client, prefix: cfg.Prefix, quota: quota}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET failed: %w", err)
	}

	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	usage, err := r.Usage(ctx)
	if err != nil {
		return err
	}
	if usage.Used+int64(len(key)+len(value)) > usage.Quota {
		return ErrQuotaExceeded
	}

	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}

	return nil
}

func (r *Redis) Usage(ctx context.Context) (Usage, error) {
	var used int64

	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		size, err := r.client.MemoryUsage(ctx, iter.Val()).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return Usage{}, fmt.Errorf("redis MEMORY USAGE failed: %w", err)
		}
		used += size
	}
	if err := iter.Err(); err != nil {
		return Usage{}, fmt.Errorf("redis SCAN failed: %w", err)
	}

	return Usage{Used: used, Quota: r.quota}, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
