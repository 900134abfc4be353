package redistools

import (
	"context"
	"fmt"
	"time"

	"github.com/Leopold1975/recipes_control/internal/pkg/config"
	"github.com/redis/go-redis/v9"
)

const maxDelay = time.Second * 10

// Connect builds a client for cfg and waits until it answers PING,
// backing off one extra second per attempt.
func Connect(ctx context.Context, cfg config.RedisCache) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{ //nolint:exhaustruct
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	delay := time.Second

	for {
		err := rdb.Ping(ctx).Err()
		if err == nil {
			return rdb, nil
		}

		if delay > maxDelay {
			rdb.Close()

			return nil, fmt.Errorf("cannot ping redis db error: %w", err)
		}

		select {
		case <-ctx.Done():
			rdb.Close()

			return nil, fmt.Errorf("context error: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay += time.Second
	}
}
