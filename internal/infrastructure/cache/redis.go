package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sangkips/posflow-api/internal/domain/repository"
)

const keyPrefix = "posflow:staging:"

// RedisStore keeps staged entries in Redis so they survive across processes
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a staging store on top of a Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores the value under key until ttl elapses
func (r *RedisStore) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(key), data, ttl).Err()
}

// Get decodes the entry stored under key into dst
func (r *RedisStore) Get(ctx context.Context, key string, dst interface{}) error {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return repository.ErrStagedEntryNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Delete removes the entries
func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = redisKey(key)
	}
	return r.client.Del(ctx, prefixed...).Err()
}

func redisKey(key string) string {
	return keyPrefix + key
}
