package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Processed records which source URLs have already been ingested
type Processed interface {
	IsProcessed(ctx context.Context, url string) (bool, error)
	MarkProcessed(ctx context.Context, url string, ttl time.Duration) error
	ClearProcessed(ctx context.Context) error
}

// Key hashes a URL into a fixed-length cache key
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

type RedisClient struct {
	client *redis.Client
	prefix string
}

// Connect parses the URL and pings the server
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisClient wraps an existing connection; keys live under prefix + "processed:"
func NewRedisClient(client *redis.Client, prefix string) *RedisClient {
	return &RedisClient{
		client: client,
		prefix: prefix + "processed:",
	}
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) IsProcessed(ctx context.Context, url string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.prefix+Key(url)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return exists > 0, nil
}

func (r *RedisClient) MarkProcessed(ctx context.Context, url string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+Key(url), "1", ttl).Err()
}

func (r *RedisClient) ClearProcessed(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning keys: %w", err)
	}

	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("error deleting keys: %w", err)
		}
	}

	return nil
}
