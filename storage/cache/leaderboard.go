// Package cache keeps hot read paths in redis.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/gamification"
)

const leaderboardKeyPrefix = "elimu:leaderboard:"

// Leaderboard caches the entries of another source for a while.
// Redis failures fall through to the source.
type Leaderboard struct {
	rdb    *redis.Client
	source gamification.LeaderboardSource
	ttl    time.Duration
	logger core.Logger
}

var (
	_ gamification.LeaderboardSource      = (*Leaderboard)(nil)
	_ gamification.LeaderboardInvalidator = (*Leaderboard)(nil)
)

func NewLeaderboard(rdb *redis.Client, source gamification.LeaderboardSource, conf *core.Config, logger core.Logger) *Leaderboard {
	return &Leaderboard{rdb: rdb, source: source, ttl: conf.Redis.LeaderboardTTL, logger: logger}
}

func leaderboardKey(limit int) string { return leaderboardKeyPrefix + strconv.Itoa(limit) }

func (lb *Leaderboard) Leaderboard(ctx context.Context, limit int) ([]gamification.LeaderboardEntry, error) {
	key := leaderboardKey(limit)

	data, err := lb.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entries []gamification.LeaderboardEntry
		if err := json.Unmarshal(data, &entries); err == nil {
			return entries, nil
		}
	case err != redis.Nil:
		lb.logger.Warn("cache.Leaderboard: reading cache", errors.Wrap(err, key))
	}

	entries, err := lb.source.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	if data, err = json.Marshal(entries); err == nil {
		if err = lb.rdb.Set(ctx, key, data, lb.ttl).Err(); err != nil {
			lb.logger.Warn("cache.Leaderboard: writing cache", errors.Wrap(err, key))
		}
	}
	return entries, nil
}

// Invalidate drops every cached leaderboard; the gamification service calls it after recalculating levels.
func (lb *Leaderboard) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := lb.rdb.Scan(ctx, cursor, leaderboardKeyPrefix+"*", 100).Result()
		if err != nil {
			return errors.Wrap(err, "scanning leaderboard keys")
		}
		if len(keys) > 0 {
			if err := lb.rdb.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "deleting leaderboard keys")
			}
		}
		if cursor = next; cursor == 0 {
			return nil
		}
	}
}

// NewRedisClient connects to the configured redis server.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return rdb, nil
}
