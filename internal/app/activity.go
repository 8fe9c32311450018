package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"team-event-service/internal/domain"
)

// ActivityStatus is the ActivityMaster sub-state.
type ActivityStatus int

const (
	ActivityIdle ActivityStatus = iota
	ActivityRunning
	ActivityCompleted
)

func (s ActivityStatus) String() string {
	switch s {
	case ActivityRunning:
		return "running"
	case ActivityCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// MarshalText renders the status by name in JSON payloads.
func (s ActivityStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ActivitySnapshot is the timer as a client should display it.
type ActivitySnapshot struct {
	Status    ActivityStatus `json:"status"`
	ElapsedMS int64          `json:"elapsedMs"`
	MaxMS     int64          `json:"maxMs"`
}

// RecoverActivity rebuilds the sub-state from the persisted window alone.
// clampAt is set when a running activity overran max and still has to be
// stopped in the store.
func RecoverActivity(st domain.EventState, now time.Time, max time.Duration) (status ActivityStatus, elapsed time.Duration, clampAt *time.Time) {
	if st.ActivityActive && st.StartedAt != nil {
		elapsed = now.Sub(*st.StartedAt)
		if elapsed >= max {
			end := st.StartedAt.Add(max)
			return ActivityCompleted, max, &end
		}
		if elapsed < 0 {
			elapsed = 0
		}
		return ActivityRunning, elapsed, nil
	}
	if !st.ActivityActive && st.EndedAt != nil {
		if st.StartedAt != nil {
			elapsed = st.EndedAt.Sub(*st.StartedAt)
		}
		if elapsed > max {
			elapsed = max
		}
		return ActivityCompleted, elapsed, nil
	}
	return ActivityIdle, 0, nil
}

// ActivityClock drives the activity stopwatch. Elapsed time is always
// recomputed as now - anchor, and the stop side effects fire at most once
// whether triggered by a tick or by the operator.
type ActivityClock struct {
	eventID string
	states  EventStateStore
	max     time.Duration
	tick    time.Duration
	now     func() time.Time

	mu      sync.Mutex
	status  ActivityStatus
	anchor  time.Time
	elapsed time.Duration
	cancel  context.CancelFunc

	stopping atomic.Bool
}

func NewActivityClock(eventID string, states EventStateStore, max, tick time.Duration, now func() time.Time) *ActivityClock {
	return &ActivityClock{eventID: eventID, states: states, max: max, tick: tick, now: now}
}

// Restore reloads the sub-state from the store, resuming the ticker when the
// activity is still running.
func (c *ActivityClock) Restore(ctx context.Context) (ActivitySnapshot, error) {
	st, err := c.states.GetEventState(ctx, c.eventID)
	if errors.Is(err, domain.ErrNotFound) {
		st = domain.EventState{EventID: c.eventID}
	} else if err != nil {
		return c.Snapshot(), fmt.Errorf("restore activity: %w", err)
	}

	status, elapsed, clampAt := RecoverActivity(st, c.now(), c.max)

	c.mu.Lock()
	c.stopTickerLocked()
	switch status {
	case ActivityRunning:
		c.status = ActivityRunning
		c.anchor = *st.StartedAt
		c.stopping.Store(false)
		c.startTickerLocked()
	case ActivityCompleted:
		if clampAt != nil {
			// Overran while nobody was watching; persist the stop below. The
			// ticker retries the clamped stop if that write fails.
			c.status = ActivityRunning
			c.anchor = *st.StartedAt
			c.stopping.Store(false)
			c.startTickerLocked()
		} else {
			c.status = ActivityCompleted
			c.elapsed = elapsed
			c.stopping.Store(true)
		}
	default:
		c.status = ActivityIdle
		c.elapsed = 0
		c.stopping.Store(false)
	}
	c.mu.Unlock()

	if clampAt != nil {
		if err := c.stop(ctx, *clampAt); err != nil {
			return c.Snapshot(), err
		}
	}
	return c.Snapshot(), nil
}

// Start unlocks the activity and starts the stopwatch.
func (c *ActivityClock) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != ActivityIdle {
		return fmt.Errorf("%w: activity already %s", domain.ErrInvariantViolation, c.status)
	}
	at := c.now()
	if err := c.states.StartActivity(ctx, c.eventID, at); err != nil {
		return fmt.Errorf("start activity: %w", err)
	}
	c.status = ActivityRunning
	c.anchor = at
	c.stopping.Store(false)
	c.startTickerLocked()
	return nil
}

// Stop ends a running activity now. Calling it again is a no-op.
func (c *ActivityClock) Stop(ctx context.Context) error {
	return c.stop(ctx, c.now())
}

func (c *ActivityClock) stop(ctx context.Context, at time.Time) error {
	if !c.stopping.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	if c.status != ActivityRunning {
		c.mu.Unlock()
		return nil
	}
	anchor := c.anchor
	c.mu.Unlock()

	if limit := anchor.Add(c.max); at.After(limit) {
		at = limit
	}
	if _, err := c.states.StopActivity(ctx, c.eventID, at); err != nil {
		c.stopping.Store(false)
		return fmt.Errorf("stop activity: %w", err)
	}

	elapsed := at.Sub(anchor)
	if elapsed > c.max {
		elapsed = c.max
	}
	c.mu.Lock()
	c.status = ActivityCompleted
	c.elapsed = elapsed
	c.stopTickerLocked()
	c.mu.Unlock()
	log.Printf("activity stopped after %s", elapsed.Round(time.Millisecond))
	return nil
}

// Snapshot reports the current sub-state and elapsed time.
func (c *ActivityClock) Snapshot() ActivitySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := c.elapsed
	if c.status == ActivityRunning {
		elapsed = c.now().Sub(c.anchor)
		if elapsed > c.max {
			elapsed = c.max
		}
	}
	return ActivitySnapshot{
		Status:    c.status,
		ElapsedMS: elapsed.Milliseconds(),
		MaxMS:     c.max.Milliseconds(),
	}
}

// Close stops the background ticker.
func (c *ActivityClock) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickerLocked()
}

func (c *ActivityClock) startTickerLocked() {
	if c.tick <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx, c.anchor)
}

func (c *ActivityClock) stopTickerLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *ActivityClock) run(ctx context.Context, anchor time.Time) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.now().Sub(anchor) < c.max {
				continue
			}
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := c.stop(stopCtx, anchor.Add(c.max))
			cancel()
			if err != nil {
				// Retried on the next tick.
				log.Printf("activity timeout: %v", err)
				continue
			}
			return
		}
	}
}
