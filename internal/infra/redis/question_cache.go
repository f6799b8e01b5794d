package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"practice-arena-service/internal/domain"
)

// QuestionSource is the backing catalog a cache fills from.
type QuestionSource interface {
	Get(ctx context.Context, id string) (domain.Question, error)
	Create(ctx context.Context, q domain.Question) error
	Update(ctx context.Context, q domain.Question) error
	ListActive(ctx context.Context) ([]domain.Question, error)
	ListActiveByTag(ctx context.Context, tag string) ([]domain.Question, error)
	DistinctActiveTags(ctx context.Context) ([]string, error)
	IncrementSubmissionCounters(ctx context.Context, id string, solved bool) error
}

// QuestionCache caches question records in Redis as JSON values:
//
//	SET question:{id} {json} EX ttl
//	SET question:tags {json}  EX ttl
//
// Cache misses fall back to the source through singleflight; Redis failures
// degrade to direct source reads.
type QuestionCache struct {
	client *redis.Client
	source QuestionSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, source QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Get(ctx context.Context, id string) (domain.Question, error) {
	key := c.questionKey(id)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err == nil {
			return q, nil
		}
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var q domain.Question
			if err := json.Unmarshal(raw, &q); err == nil {
				return q, nil
			}
		}

		q, err := c.source.Get(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		if raw, err := json.Marshal(q); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) DistinctActiveTags(ctx context.Context) ([]string, error) {
	if raw, err := c.client.Get(ctx, c.tagsKey()).Bytes(); err == nil {
		var tags []string
		if err := json.Unmarshal(raw, &tags); err == nil {
			return tags, nil
		}
	}

	tags, err := c.source.DistinctActiveTags(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(tags); err == nil {
		_ = c.client.Set(ctx, c.tagsKey(), raw, c.ttlWithJitter()).Err()
	}
	return tags, nil
}

func (c *QuestionCache) Create(ctx context.Context, q domain.Question) error {
	if err := c.source.Create(ctx, q); err != nil {
		return err
	}
	c.invalidate(ctx, q.ID)
	return nil
}

func (c *QuestionCache) Update(ctx context.Context, q domain.Question) error {
	if err := c.source.Update(ctx, q); err != nil {
		return err
	}
	c.invalidate(ctx, q.ID)
	return nil
}

func (c *QuestionCache) IncrementSubmissionCounters(ctx context.Context, id string, solved bool) error {
	if err := c.source.IncrementSubmissionCounters(ctx, id, solved); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// List queries always read the source; only point reads and the tag set are
// worth caching here.

func (c *QuestionCache) ListActive(ctx context.Context) ([]domain.Question, error) {
	return c.source.ListActive(ctx)
}

func (c *QuestionCache) ListActiveByTag(ctx context.Context, tag string) ([]domain.Question, error) {
	return c.source.ListActiveByTag(ctx, tag)
}

func (c *QuestionCache) invalidate(ctx context.Context, id string) {
	_ = c.client.Del(ctx, c.questionKey(id), c.tagsKey()).Err()
}

func (c *QuestionCache) questionKey(id string) string {
	return "question:" + id
}

func (c *QuestionCache) tagsKey() string {
	return "question:tags"
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
