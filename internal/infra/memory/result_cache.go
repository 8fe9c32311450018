package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"team-event-service/internal/app"
	"team-event-service/internal/domain"
)

// ResultCache caches leaderboard reads with a short TTL so polling viewers
// do not each hit the database.
type ResultCache struct {
	reader app.ResultReader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedResults
}

type cachedResults struct {
	results   []domain.EventResult
	expiresAt time.Time
}

func NewResultCache(reader app.ResultReader, ttl time.Duration) *ResultCache {
	return NewResultCacheWithClock(reader, ttl, time.Now)
}

func NewResultCacheWithClock(reader app.ResultReader, ttl time.Duration, clock func() time.Time) *ResultCache {
	return &ResultCache{
		reader: reader,
		ttl:    ttl,
		clock:  clock,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedResults),
	}
}

func (c *ResultCache) Leaderboard(ctx context.Context, eventID string) ([]domain.EventResult, error) {
	if results, ok := c.lookup(eventID); ok {
		return results, nil
	}

	result, err, _ := c.sf.Do(eventID, func() (interface{}, error) {
		if results, ok := c.lookup(eventID); ok {
			return results, nil
		}

		results, err := c.reader.ListResults(ctx, eventID)
		if err != nil {
			return nil, err
		}

		expiresAt := c.clock().Add(c.ttlWithJitter())
		c.mu.Lock()
		c.cache[eventID] = cachedResults{results: results, expiresAt: expiresAt}
		c.mu.Unlock()
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return copyResults(result.([]domain.EventResult)), nil
}

// Invalidate drops the cached rows after results were rewritten.
func (c *ResultCache) Invalidate(_ context.Context, eventID string) {
	c.mu.Lock()
	delete(c.cache, eventID)
	c.mu.Unlock()
}

func (c *ResultCache) lookup(eventID string) ([]domain.EventResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[eventID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return copyResults(entry.results), true
}

func (c *ResultCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func copyResults(in []domain.EventResult) []domain.EventResult {
	return append([]domain.EventResult(nil), in...)
}
