package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"practice-arena-service/internal/domain"
	"practice-arena-service/internal/infra/memory"
)

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

type countingSource struct {
	*memory.Store
	gets int
	tags int
}

func (c *countingSource) Get(ctx context.Context, id string) (domain.Question, error) {
	c.gets++
	return c.Store.Get(ctx, id)
}

func (c *countingSource) DistinctActiveTags(ctx context.Context) ([]string, error) {
	c.tags++
	return c.Store.DistinctActiveTags(ctx)
}

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	source := &countingSource{Store: memory.NewStore()}
	_ = source.Create(ctx, domain.Question{ID: "q1", Title: "one", Tags: []string{"arrays"}, IsActive: true})

	cache := NewQuestionCache(newClient(mr), source, time.Minute)

	if _, err := cache.Get(ctx, "q1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if source.gets != 1 {
		t.Fatalf("expected source read once, got %d", source.gets)
	}
	if !mr.Exists("question:q1") {
		t.Fatalf("expected cached value in redis")
	}

	// Second call should hit redis, source not incremented.
	q, err := cache.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if q.Title != "one" || source.gets != 1 {
		t.Fatalf("expected cache hit, got %+v after %d reads", q, source.gets)
	}
}

func TestQuestionCacheInvalidatesOnWrite(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	source := &countingSource{Store: memory.NewStore()}
	_ = source.Create(ctx, domain.Question{ID: "q1", Title: "one", Tags: []string{"arrays"}, IsActive: true})

	cache := NewQuestionCache(newClient(mr), source, time.Minute)
	if _, err := cache.Get(ctx, "q1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := cache.DistinctActiveTags(ctx); err != nil {
		t.Fatalf("tags: %v", err)
	}

	if err := cache.Update(ctx, domain.Question{ID: "q1", Title: "renamed", Tags: []string{"graphs"}, IsActive: true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if mr.Exists("question:q1") || mr.Exists("question:tags") {
		t.Fatalf("write must drop cached keys")
	}

	q, err := cache.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if q.Title != "renamed" {
		t.Fatalf("stale read after update: %+v", q)
	}
	tags, _ := cache.DistinctActiveTags(ctx)
	if len(tags) != 1 || tags[0] != "graphs" {
		t.Fatalf("stale tags after update: %v", tags)
	}
}

func TestQuestionCacheSurvivesRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	ctx := context.Background()
	source := &countingSource{Store: memory.NewStore()}
	_ = source.Create(ctx, domain.Question{ID: "q1", Title: "one", Tags: []string{"arrays"}, IsActive: true})

	cache := NewQuestionCache(newClient(mr), source, time.Minute)
	mr.Close()

	// Redis being gone degrades to direct source reads.
	q, err := cache.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("get with redis down: %v", err)
	}
	if q.Title != "one" {
		t.Fatalf("unexpected question: %+v", q)
	}
}
