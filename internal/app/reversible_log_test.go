package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"team-event-service/internal/app"
	"team-event-service/internal/domain"
	"team-event-service/internal/infra/memory"
)

func newOutLog(store app.MarkStore, clock *fakeClock) *app.ReversibleLog {
	return app.NewReversibleLogWithClock(store, eventID, domain.MarkOut, 60*time.Second, 60*time.Second, clock.Now)
}

func TestUndoWindowBoundary(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := memory.NewStore()
	outs := newOutLog(store, clock)
	require.NoError(t, outs.Load(ctx))

	recorded, err := outs.Record(ctx, 7)
	require.NoError(t, err)
	require.True(t, recorded)

	clock.Advance(59_999 * time.Millisecond)
	require.True(t, outs.CanRevoke(7))

	clock.Advance(2 * time.Millisecond)
	require.False(t, outs.CanRevoke(7))
	revoked, err := outs.Revoke(ctx, 7)
	require.NoError(t, err)
	require.False(t, revoked)

	marks, err := store.ListMarks(ctx, eventID, domain.MarkOut)
	require.NoError(t, err)
	require.Len(t, marks, 1)
}

func TestRevokeInsideWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := memory.NewStore()
	outs := newOutLog(store, clock)
	require.NoError(t, outs.Load(ctx))

	_, err := outs.Record(ctx, 7)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	revoked, err := outs.Revoke(ctx, 7)
	require.NoError(t, err)
	require.True(t, revoked)
	_, marked := outs.Marked(7)
	require.False(t, marked)

	// Recording again after an undo starts a fresh window.
	recorded, err := outs.Record(ctx, 7)
	require.NoError(t, err)
	require.True(t, recorded)
}

func TestRecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	outs := newOutLog(memory.NewStore(), clock)
	require.NoError(t, outs.Load(ctx))

	first, err := outs.Record(ctx, 3)
	require.NoError(t, err)
	require.True(t, first)
	second, err := outs.Record(ctx, 3)
	require.NoError(t, err)
	require.False(t, second)
}

func TestReloadRejectsUndoOfExistingMarks(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := memory.NewStore()
	outs := newOutLog(store, clock)
	require.NoError(t, outs.Load(ctx))
	_, err := outs.Record(ctx, 9)
	require.NoError(t, err)

	clock.Advance(5 * time.Second)
	reloaded := newOutLog(store, clock)
	require.NoError(t, reloaded.Load(ctx))

	_, marked := reloaded.Marked(9)
	require.True(t, marked)
	require.False(t, reloaded.CanRevoke(9))
	revoked, err := reloaded.Revoke(ctx, 9)
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestOtherClientsMarksAreNotRevocable(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := memory.NewStore()
	phoneA := newOutLog(store, clock)
	phoneB := newOutLog(store, clock)
	require.NoError(t, phoneA.Load(ctx))
	require.NoError(t, phoneB.Load(ctx))

	_, err := phoneA.Record(ctx, 11)
	require.NoError(t, err)

	// B has not synced yet and loses the insert race.
	recorded, err := phoneB.Record(ctx, 11)
	require.NoError(t, err)
	require.False(t, recorded)
	require.False(t, phoneB.CanRevoke(11))

	_, err = phoneA.Record(ctx, 12)
	require.NoError(t, err)
	require.NoError(t, phoneB.Sync(ctx))
	_, marked := phoneB.Marked(12)
	require.True(t, marked)
	require.False(t, phoneB.CanRevoke(12))
	require.True(t, phoneA.CanRevoke(12))

	revoked, err := phoneA.Revoke(ctx, 12)
	require.NoError(t, err)
	require.True(t, revoked)
	require.NoError(t, phoneB.Sync(ctx))
	_, marked = phoneB.Marked(12)
	require.False(t, marked)
}

func TestEntriesOrdering(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	outs := newOutLog(memory.NewStore(), clock)
	require.NoError(t, outs.Load(ctx))

	_, _ = outs.Record(ctx, 2)
	clock.Advance(time.Second)
	_, _ = outs.Record(ctx, 5)

	entries := outs.Entries([]int{5, 4, 2, 1, 3})
	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.SubjectID)
	}
	require.Equal(t, []int{1, 3, 4, 5, 2}, ids)
	require.True(t, entries[3].Marked)
	require.True(t, entries[3].Revocable)
}
