package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/usercache"
	"github.com/redis/go-redis/v9"
)

// UserCache keeps authenticated users by id so token checks skip postgres.
type UserCache struct {
	rdb     *redis.Client
	expTime time.Duration
}

func New(rdb *redis.Client, expTime time.Duration) UserCache {
	return UserCache{
		rdb:     rdb,
		expTime: expTime,
	}
}

func key(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

func (uc UserCache) GetUser(ctx context.Context, id int64) (models.User, error) {
	userJSON, err := uc.rdb.Get(ctx, key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return models.User{}, usercache.ErrMiss
	} else if err != nil {
		return models.User{}, fmt.Errorf("get error: %w", err)
	}

	var u models.User

	if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
		return models.User{}, fmt.Errorf("unmarshal error: %w", err)
	}

	return u, nil
}

// SetUser stores u without its password hash.
func (uc UserCache) SetUser(ctx context.Context, u models.User) error {
	userJSON, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := uc.rdb.Set(ctx, key(u.ID), userJSON, uc.expTime).Err(); err != nil {
		return fmt.Errorf("set error: %w", err)
	}

	return nil
}

func (uc UserCache) DeleteUser(ctx context.Context, id int64) error {
	if err := uc.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("del error: %w", err)
	}

	return nil
}

func (uc UserCache) Close() error {
	return uc.rdb.Close()
}
