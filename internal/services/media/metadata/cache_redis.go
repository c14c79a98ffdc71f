package metadata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"mediagate/internal/domain/ports"
)

const redisCachePrefix = "mgate:meta:"

// RedisCacheBackend stores content info in Redis with JSON serialization.
type RedisCacheBackend struct {
	client *redis.Client
}

func NewRedisCacheBackend(client *redis.Client) *RedisCacheBackend {
	return &RedisCacheBackend{client: client}
}

func (r *RedisCacheBackend) Get(ctx context.Context, key string) (ports.ContentInfo, bool, error) {
	data, err := r.client.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ports.ContentInfo{}, false, nil
		}
		return ports.ContentInfo{}, false, err
	}
	var info ports.ContentInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return ports.ContentInfo{}, false, err
	}
	return info, true, nil
}

func (r *RedisCacheBackend) Set(ctx context.Context, key string, info ports.ContentInfo, ttl time.Duration) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisCachePrefix+key, data, ttl).Err()
}

func (r *RedisCacheBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisCachePrefix+key).Err()
}

func (r *RedisCacheBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
