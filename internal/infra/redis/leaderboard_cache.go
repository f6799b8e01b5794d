package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"practice-arena-service/internal/domain"
)

// LeaderboardCache keeps short-lived JSON snapshots of leaderboard pages:
//
//	SET leaderboard:page:{page}:{size} {json} EX ttl
//
// Best effort: a Redis failure just means the ranker recomputes.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func (c *LeaderboardCache) Get(ctx context.Context, page, pageSize int) (domain.LeaderboardPage, bool) {
	raw, err := c.client.Get(ctx, c.key(page, pageSize)).Bytes()
	if err != nil {
		return domain.LeaderboardPage{}, false
	}
	var lp domain.LeaderboardPage
	if err := json.Unmarshal(raw, &lp); err != nil {
		return domain.LeaderboardPage{}, false
	}
	return lp, true
}

func (c *LeaderboardCache) Set(ctx context.Context, lp domain.LeaderboardPage) {
	raw, err := json.Marshal(lp)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(lp.Page, lp.PageSize), raw, c.ttl).Err()
}

func (c *LeaderboardCache) key(page, pageSize int) string {
	return fmt.Sprintf("leaderboard:page:%d:%d", page, pageSize)
}
