package memory

import (
	"context"
	"testing"
	"time"

	"team-event-service/internal/domain"
)

func TestResultCacheCaches(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.UpsertResults(ctx, []domain.EventResult{{EventID: "ev", TeamID: 1, TotalPoints: 10, Rank: 1}}); err != nil {
		t.Fatalf("seed results: %v", err)
	}
	reader := &countingReader{Store: store}
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	cache := NewResultCacheWithClock(reader, time.Minute, func() time.Time { return now })

	if _, err := cache.Leaderboard(ctx, "ev"); err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if reader.calls != 1 {
		t.Fatalf("expected reader once, got %d", reader.calls)
	}

	rows, err := cache.Leaderboard(ctx, "ev")
	if err != nil {
		t.Fatalf("leaderboard 2: %v", err)
	}
	if reader.calls != 1 {
		t.Fatalf("expected cache hit, reader calls %d", reader.calls)
	}
	if len(rows) != 1 || rows[0].TotalPoints != 10 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestResultCacheExpiresAndInvalidates(t *testing.T) {
	ctx := context.Background()
	reader := &countingReader{Store: NewStore()}
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	cache := NewResultCacheWithClock(reader, time.Second, func() time.Time { return now })

	_, _ = cache.Leaderboard(ctx, "ev")
	cache.Invalidate(ctx, "ev")
	_, _ = cache.Leaderboard(ctx, "ev")
	if reader.calls != 2 {
		t.Fatalf("expected reload after invalidate, reader calls %d", reader.calls)
	}

	// ttl plus the maximum jitter
	now = now.Add(1100 * time.Millisecond)
	_, _ = cache.Leaderboard(ctx, "ev")
	if reader.calls != 3 {
		t.Fatalf("expected reload after expiry, reader calls %d", reader.calls)
	}
}

type countingReader struct {
	*Store
	calls int
}

func (r *countingReader) ListResults(ctx context.Context, eventID string) ([]domain.EventResult, error) {
	r.calls++
	return r.Store.ListResults(ctx, eventID)
}
