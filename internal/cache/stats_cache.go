package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bossbudget/usuarios-api/internal/domain/entity"
	"github.com/bossbudget/usuarios-api/pkg/helpers"
)

const statsKey = "usuarios:stats"

// StatsCache keeps the aggregate user stats in Redis with a short TTL,
// invalidated on every write. A nil *StatsCache (or one built without a
// client) disables caching, so callers never branch on availability.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached stats, or nil on miss.
func (c *StatsCache) Get(ctx context.Context) (*entity.UserStats, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}
	var stats entity.UserStats
	hit, err := helpers.RedisGetJSON(ctx, c.rdb, statsKey, &stats)
	if err != nil || !hit {
		return nil, err
	}
	if stats.PorRol == nil {
		stats.PorRol = map[string]int64{}
	}
	return &stats, nil
}

// Set stores the stats for the configured TTL.
func (c *StatsCache) Set(ctx context.Context, stats *entity.UserStats) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return helpers.RedisSetJSON(ctx, c.rdb, statsKey, stats, c.ttl)
}

// Invalidate drops the cached stats.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return helpers.RedisDel(ctx, c.rdb, statsKey)
}
