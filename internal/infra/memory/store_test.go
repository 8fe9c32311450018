package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"team-event-service/internal/domain"
)

func TestStoreIncrementUsageCreatesRow(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for want := 1; want <= 2; want++ {
		got, err := store.IncrementUsage(ctx, "ev", 3)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}
	rows, _ := store.ListUsage(ctx, "ev")
	if len(rows) != 1 || rows[0].TeamID != 3 || rows[0].Count != 2 {
		t.Fatalf("unexpected usage %+v", rows)
	}
}

func TestStoreClaimQuestionOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.InsertQuestions(ctx, []domain.QuizQuestion{{ID: "q1", Correct: domain.OptionA}})

	q, err := store.ClaimQuestion(ctx)
	if err != nil || q.ID != "q1" || !q.Used {
		t.Fatalf("claim: %+v %v", q, err)
	}
	if _, err := store.ClaimQuestion(ctx); !errors.Is(err, domain.ErrNoQuestionsLeft) {
		t.Fatalf("expected ErrNoQuestionsLeft, got %v", err)
	}
}

func TestStoreInsertMarkConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	mark := domain.Mark{EventID: "ev", SubjectID: 4, Kind: domain.MarkOut, CreatedAt: time.Now()}

	if err := store.InsertMark(ctx, mark); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.InsertMark(ctx, mark); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	absent, _ := store.ListMarks(ctx, "ev", domain.MarkAbsent)
	if len(absent) != 0 {
		t.Fatalf("marks of another kind leaked: %+v", absent)
	}
}

func TestStoreStopActivityFiresOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	start := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	if stopped, _ := store.StopActivity(ctx, "ev", start); stopped {
		t.Fatalf("stop without a running activity must report false")
	}
	_ = store.StartActivity(ctx, "ev", start)
	if stopped, _ := store.StopActivity(ctx, "ev", start.Add(time.Minute)); !stopped {
		t.Fatalf("expected first stop to win")
	}
	if stopped, _ := store.StopActivity(ctx, "ev", start.Add(2*time.Minute)); stopped {
		t.Fatalf("expected second stop to be a no-op")
	}
	st, _ := store.GetEventState(ctx, "ev")
	if st.ActivityActive || !st.EndedAt.Equal(start.Add(time.Minute)) {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestStoreFinalizeResults(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.UpsertResults(ctx, []domain.EventResult{
		{EventID: "ev", TeamID: 1, TotalPoints: 50, Rank: 1},
		{EventID: "ev", TeamID: 2, TotalPoints: 50, Rank: 1},
	})
	if err := store.FinalizeResults(ctx, "ev", []domain.EventResult{
		{TeamID: 1, TotalPoints: 53, Rank: 1},
		{TeamID: 2, TotalPoints: 50, Rank: 2},
	}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	rows, _ := store.ListResults(ctx, "ev")
	if rows[0].TotalPoints != 53 || rows[0].Rank != 1 || rows[1].Rank != 2 {
		t.Fatalf("unexpected results %+v", rows)
	}
	for _, r := range rows {
		if !r.IsFinal {
			t.Fatalf("expected all rows final: %+v", rows)
		}
	}

	err := store.FinalizeResults(ctx, "ev", []domain.EventResult{{TeamID: 1, TotalPoints: 56, Rank: 1}})
	if !errors.Is(err, domain.ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal, got %v", err)
	}
	row, _ := store.GetResult(ctx, "ev", 1)
	if row.TotalPoints != 53 {
		t.Fatalf("expected total untouched, got %d", row.TotalPoints)
	}
}

func TestStoreActivityLockFlag(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	start := time.Date(2024, 11, 22, 18, 0, 0, 0, time.UTC)

	if err := store.StartActivity(ctx, "ev", start); err != nil {
		t.Fatalf("start: %v", err)
	}
	st, _ := store.GetEventState(ctx, "ev")
	if !st.ActivityActive || st.Locked {
		t.Fatalf("expected active and unlocked, got %+v", st)
	}
	if _, err := store.StopActivity(ctx, "ev", start.Add(time.Minute)); err != nil {
		t.Fatalf("stop: %v", err)
	}
	st, _ = store.GetEventState(ctx, "ev")
	if st.ActivityActive || !st.Locked {
		t.Fatalf("expected inactive and locked, got %+v", st)
	}
}
