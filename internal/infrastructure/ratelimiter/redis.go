package ratelimiter

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// redisCache backs the limiter with Redis so bucket state is shared
// across instances.
type redisCache struct {
	client *redis.Client
}

func NewRedis(addr string) GetterSetter {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	return &redisCache{
		client: client,
	}
}

func (r *redisCache) Get(key string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(raw)
}

func (r *redisCache) Set(key string, value int) error {
	return r.SetWithExpiration(key, value, 0)
}

func (r *redisCache) SetWithExpiration(key string, value int, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
