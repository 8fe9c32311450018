package memory

import (
	"context"
	"sync"
	"time"
)

// ViewerRegistry is an in-memory implementation of app.ViewerRegistry.
// A device counts as live until ttl passes without a Touch.
type ViewerRegistry struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.Mutex
	viewers map[string]map[string]time.Time
}

func NewViewerRegistry(ttl time.Duration) *ViewerRegistry {
	return NewViewerRegistryWithClock(ttl, time.Now)
}

func NewViewerRegistryWithClock(ttl time.Duration, clock func() time.Time) *ViewerRegistry {
	return &ViewerRegistry{
		ttl:     ttl,
		clock:   clock,
		viewers: make(map[string]map[string]time.Time),
	}
}

func (r *ViewerRegistry) Touch(_ context.Context, eventID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions, ok := r.viewers[eventID]
	if !ok {
		sessions = make(map[string]time.Time)
		r.viewers[eventID] = sessions
	}
	sessions[sessionID] = r.clock().Add(r.ttl)
	return nil
}

func (r *ViewerRegistry) Remove(_ context.Context, eventID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions, ok := r.viewers[eventID]
	if !ok {
		return nil
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(r.viewers, eventID)
	}
	return nil
}

// Count returns the live devices and drops expired ones.
func (r *ViewerRegistry) Count(_ context.Context, eventID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock()
	sessions := r.viewers[eventID]
	for id, expiresAt := range sessions {
		if !expiresAt.After(now) {
			delete(sessions, id)
		}
	}
	return len(sessions), nil
}
