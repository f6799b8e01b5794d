package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"practice-arena-service/internal/domain"
)

func TestLeaderboardCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	cache := NewLeaderboardCache(newClient(mr), 15*time.Second)

	if _, ok := cache.Get(ctx, 1, 10); ok {
		t.Fatalf("expected miss on empty cache")
	}

	page := domain.LeaderboardPage{
		Page:     1,
		PageSize: 10,
		Total:    2,
		Rows: []domain.LeaderboardRow{
			{StudentID: "s1", Name: "Alice", Rank: 1, TotalPoints: 100},
			{StudentID: "s2", Name: "Bob", Rank: 2, TotalPoints: 40},
		},
	}
	cache.Set(ctx, page)

	got, ok := cache.Get(ctx, 1, 10)
	if !ok {
		t.Fatalf("expected hit after set")
	}
	if got.Total != 2 || len(got.Rows) != 2 || got.Rows[0].StudentID != "s1" {
		t.Fatalf("unexpected page: %+v", got)
	}

	// A different page size is a different key.
	if _, ok := cache.Get(ctx, 1, 25); ok {
		t.Fatalf("page size must partition the cache")
	}

	mr.FastForward(16 * time.Second)
	if _, ok := cache.Get(ctx, 1, 10); ok {
		t.Fatalf("expected expiry after ttl")
	}
}
