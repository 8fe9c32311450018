package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewerRegistry marks live marking devices with expiring keys, so every
// server instance sees the same device count.
type ViewerRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewViewerRegistry(client *redis.Client, ttl time.Duration) *ViewerRegistry {
	return &ViewerRegistry{client: client, ttl: ttl}
}

func (r *ViewerRegistry) Touch(ctx context.Context, eventID, sessionID string) error {
	return r.client.Set(ctx, r.key(eventID, sessionID), "1", r.ttl).Err()
}

func (r *ViewerRegistry) Remove(ctx context.Context, eventID, sessionID string) error {
	return r.client.Del(ctx, r.key(eventID, sessionID)).Err()
}

// Count scans the event's viewer keys; expired devices have already dropped out.
func (r *ViewerRegistry) Count(ctx context.Context, eventID string) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, r.key(eventID, "*"), 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ViewerRegistry) key(eventID, sessionID string) string {
	return "event:" + eventID + ":viewer:" + sessionID
}
