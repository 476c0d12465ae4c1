// Package cache holds the redis-backed rankings view. Every ledger commit
// bumps a monotonic version key, which invalidates every cached limit at
// once; stale entries simply age out through their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rt2013G/hexa-bot/internal/storage"
)

const (
	versionKey = "guessgame:rankings:ver"
	entryTTL   = 7 * 24 * time.Hour
)

type RankingsCache struct {
	rdb *redis.Client
	log zerolog.Logger
}

func New(ctx context.Context, addr, password string, db int, logger zerolog.Logger) (*RankingsCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RankingsCache{rdb: rdb, log: logger}, nil
}

func (c *RankingsCache) Close() error {
	return c.rdb.Close()
}

// Get returns the cached rankings for the limit, if present under the
// current version.
func (c *RankingsCache) Get(ctx context.Context, limit int) ([]storage.RankedUser, bool) {
	key, err := c.entryKey(ctx, limit)
	if err != nil {
		c.log.Debug().Err(err).Msg("rankings cache version read failed")
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug().Err(err).Msg("rankings cache read failed")
		}
		return nil, false
	}
	var ranked []storage.RankedUser
	if err := json.Unmarshal([]byte(raw), &ranked); err != nil {
		c.log.Warn().Err(err).Msg("corrupt rankings cache entry")
		return nil, false
	}
	return ranked, true
}

// Set stores the rankings under the current version.
func (c *RankingsCache) Set(ctx context.Context, limit int, ranked []storage.RankedUser) {
	key, err := c.entryKey(ctx, limit)
	if err != nil {
		return
	}
	raw, err := json.Marshal(ranked)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, entryTTL).Err(); err != nil {
		c.log.Debug().Err(err).Msg("rankings cache write failed")
	}
}

// Invalidate bumps the version token so every cached entry goes stale.
func (c *RankingsCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, versionKey).Err(); err != nil {
		c.log.Warn().Err(err).Msg("rankings cache invalidation failed")
	}
}

func (c *RankingsCache) entryKey(ctx context.Context, limit int) (string, error) {
	ver, err := c.rdb.Get(ctx, versionKey).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return "", err
		}
		ver = 0
	}
	return fmt.Sprintf("guessgame:rankings:v%d:l%d", ver, limit), nil
}
