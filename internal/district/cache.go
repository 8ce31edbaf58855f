package district

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache remembers resolved districts by ZIP code.
type Cache interface {
	Get(ctx context.Context, zip string) (*Entry, error)
	Set(ctx context.Context, entry Entry, ttl time.Duration) error
}

// Entry is a cached resolution.
type Entry struct {
	ZipCode    string    `json:"zip_code"`
	District   string    `json:"district"`
	Source     Source    `json:"source"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// RedisCache stores entries as JSON under district:<zip>.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "district:",
	}
}

func (c *RedisCache) key(zip string) string {
	return c.prefix + zip
}

// Get returns nil on a cache miss.
func (c *RedisCache) Get(ctx context.Context, zip string) (*Entry, error) {
	data, err := c.client.Get(ctx, c.key(zip)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get district for %s: %w", zip, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode district for %s: %w", zip, err)
	}
	return &entry, nil
}

func (c *RedisCache) Set(ctx context.Context, entry Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode district for %s: %w", entry.ZipCode, err)
	}
	if err := c.client.Set(ctx, c.key(entry.ZipCode), data, ttl).Err(); err != nil {
		return fmt.Errorf("set district for %s: %w", entry.ZipCode, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
