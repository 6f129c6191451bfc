package client

import (
	"context"
	"fmt"
	"time"

	"travel-storefront/internal/config"

	"github.com/redis/go-redis/v9"
)

func InitRedisClient(ctx context.Context, redisCfg config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", redisCfg.Addr, err)
	}

	return rdb, nil
}
