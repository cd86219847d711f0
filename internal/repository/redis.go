package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"canary/internal/config"
	"canary/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	itemsKey   = "items:all"
	versionKey = "items:version"
)

// RedisItemCache stores the item list as JSON. The version key is advanced
// by every Invalidate and guards SetItems through WATCH.
type RedisItemCache struct {
	client     *redis.Client
	key        string
	versionKey string
	ttl        time.Duration
}

// NewRedisClient builds a Redis client from the config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisItemCache(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisItemCache {
	return &RedisItemCache{
		client:     client,
		key:        keyPrefix + itemsKey,
		versionKey: keyPrefix + versionKey,
		ttl:        ttl,
	}
}

func (r *RedisItemCache) GetItems(ctx context.Context) ([]models.Item, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get items from redis: %w", err)
	}

	var items []models.Item
	if err := json.Unmarshal(val, &items); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, true, nil
}

func (r *RedisItemCache) Version(ctx context.Context) (uint64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	return readVersion(ctx, r.client, r.versionKey)
}

// SetItems writes items only if the version key still holds version. A
// concurrent Invalidate aborts the transaction and the write is dropped.
func (r *RedisItemCache) SetItems(ctx context.Context, items []models.Item, version uint64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, r.versionKey)
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, data, r.ttl)
			return nil
		})
		return err
	}, r.versionKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set items in redis: %w", err)
	}
	return nil
}

func (r *RedisItemCache) Invalidate(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, r.versionKey)
		pipe.Del(ctx, r.key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate items in redis: %w", err)
	}
	return nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, c stringGetter, key string) (uint64, error) {
	v, err := c.Get(ctx, key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read items version from redis: %w", err)
	}
	return v, nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes client. A nil client is ignored.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
