package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"team-event-service/internal/app"
	"team-event-service/internal/domain"
)

// ResultCache caches event results in Redis (one hash per event) and falls
// back to the record store on a miss.
// Rows are stored as: HSET event:{eventID}:results {teamID} {json row}
type ResultCache struct {
	client *redis.Client
	reader app.ResultReader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewResultCache(client *redis.Client, reader app.ResultReader, ttl time.Duration) *ResultCache {
	return &ResultCache{
		client: client,
		reader: reader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ResultCache) Leaderboard(ctx context.Context, eventID string) ([]domain.EventResult, error) {
	key := c.resultsKey(eventID)

	if cached, err := c.client.HGetAll(ctx, key).Result(); err == nil && len(cached) > 0 {
		if results, ok := decodeResults(cached); ok {
			return results, nil
		}
	}

	result, err, _ := c.sf.Do(eventID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, err := c.client.HGetAll(ctx, key).Result(); err == nil && len(cached) > 0 {
			if results, ok := decodeResults(cached); ok {
				return results, nil
			}
		}

		results, err := c.reader.ListResults(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return results, nil
		}

		pipe := c.client.TxPipeline()
		pipe.Del(ctx, key)
		for _, r := range results {
			data, err := json.Marshal(r)
			if err != nil {
				return nil, err
			}
			pipe.HSet(ctx, key, strconv.Itoa(r.TeamID), data)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("cache results for %s: %v", eventID, err)
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.EventResult(nil), result.([]domain.EventResult)...), nil
}

// Invalidate drops the cached rows after results were rewritten.
func (c *ResultCache) Invalidate(ctx context.Context, eventID string) {
	if err := c.client.Del(ctx, c.resultsKey(eventID)).Err(); err != nil {
		log.Printf("invalidate results for %s: %v", eventID, err)
	}
}

func (c *ResultCache) resultsKey(eventID string) string {
	return "event:" + eventID + ":results"
}

func decodeResults(cached map[string]string) ([]domain.EventResult, bool) {
	results := make([]domain.EventResult, 0, len(cached))
	for _, raw := range cached {
		var r domain.EventResult
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, false
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Rank != results[j].Rank {
			return results[i].Rank < results[j].Rank
		}
		return results[i].TeamID < results[j].TeamID
	})
	return results, true
}

func (c *ResultCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
