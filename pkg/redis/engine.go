package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

func RedisClient(address, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       0,
		Protocol: 2,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
