package cursor

import (
	"context"
	"errors"

	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/services/collector/domain"

	"github.com/redis/go-redis/v9"
)

// Redis keeps the cursor document under one key
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedis returns a cursor stored at key
func NewRedis(rdb *redis.Client, key string) *Redis { return &Redis{rdb: rdb, key: key} }

// Load GETs the key; a missing key reads as the epoch
func (c *Redis) Load(ctx context.Context) (domain.Position, error) {
	b, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Min(), nil
	}
	if err != nil {
		return domain.Position{}, perr.Wrapf(err, perr.ErrorCodeStorage, "redis get %s", c.key)
	}
	return Decode(b)
}

// Save SETs the key without expiry
func (c *Redis) Save(ctx context.Context, p domain.Position) error {
	b, err := Encode(p)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.key, b, 0).Err(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "redis set %s", c.key)
	}
	return nil
}
