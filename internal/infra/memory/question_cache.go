package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

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

// QuestionCache caches single-question reads and the distinct tag set with a
// TTL to avoid repeated backing-store hits. Writes pass through and drop the
// affected entries.
type QuestionCache struct {
	source QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestion
	tags  *cachedTags
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

type cachedTags struct {
	tags      []string
	expiresAt time.Time
}

func NewQuestionCache(source QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestion),
	}
}

func (c *QuestionCache) Get(ctx context.Context, id string) (domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.question, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.question, nil
		}
		c.mu.RUnlock()

		q, err := c.source.Get(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}

		c.mu.Lock()
		c.cache[id] = cachedQuestion{question: q, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) DistinctActiveTags(ctx context.Context) ([]string, error) {
	now := c.clock()
	c.mu.RLock()
	if c.tags != nil && c.tags.expiresAt.After(now) {
		tags := c.tags.tags
		c.mu.RUnlock()
		return tags, nil
	}
	c.mu.RUnlock()

	tags, err := c.source.DistinctActiveTags(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.tags = &cachedTags{tags: tags, expiresAt: now.Add(c.ttlWithJitter())}
	c.mu.Unlock()
	return tags, nil
}

func (c *QuestionCache) Create(ctx context.Context, q domain.Question) error {
	if err := c.source.Create(ctx, q); err != nil {
		return err
	}
	c.invalidate(q.ID)
	return nil
}

func (c *QuestionCache) Update(ctx context.Context, q domain.Question) error {
	if err := c.source.Update(ctx, q); err != nil {
		return err
	}
	c.invalidate(q.ID)
	return nil
}

func (c *QuestionCache) IncrementSubmissionCounters(ctx context.Context, id string, solved bool) error {
	if err := c.source.IncrementSubmissionCounters(ctx, id, solved); err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

// List queries are not cached; they always read the source.

func (c *QuestionCache) ListActive(ctx context.Context) ([]domain.Question, error) {
	return c.source.ListActive(ctx)
}

func (c *QuestionCache) ListActiveByTag(ctx context.Context, tag string) ([]domain.Question, error) {
	return c.source.ListActiveByTag(ctx, tag)
}

func (c *QuestionCache) invalidate(id string) {
	c.mu.Lock()
	delete(c.cache, id)
	c.tags = nil
	c.mu.Unlock()
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
