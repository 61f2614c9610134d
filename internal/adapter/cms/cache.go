package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TopicCache stores resolved topics by their topic id list.
type TopicCache interface {
	Get(ctx context.Context, key string) (Topic, bool, error)
	Set(ctx context.Context, key string, t Topic, ttl time.Duration) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(ctx context.Context, key string) (Topic, bool, error) { return Topic{}, false, nil }

func (NopCache) Set(ctx context.Context, key string, t Topic, ttl time.Duration) error { return nil }

const redisKeyPrefix = "tutor:cms:topic:"

// RedisCache keeps topics in redis as JSON.
type RedisCache struct {
	rdb *goredis.Client
}

// NewRedisCache connects to addr. The connection is lazy; Ping to check it.
func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{rdb: goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
	})}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Topic, bool, error) {
	raw, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Topic{}, false, nil
	}
	if err != nil {
		return Topic{}, false, fmt.Errorf("redis get: %w", err)
	}
	var t Topic
	if err := json.Unmarshal(raw, &t); err != nil {
		return Topic{}, false, fmt.Errorf("decode cached topic: %w", err)
	}
	return t, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, t Topic, ttl time.Duration) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode topic: %w", err)
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
