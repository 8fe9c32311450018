package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"team-event-service/internal/app"
	"team-event-service/internal/domain"
	"team-event-service/internal/infra/memory"
)

const eventID = "3f1c2b9e-8a4d-4e6b-9c1f-2d7a5e0b6c11"

var t0 = time.Date(2024, 11, 22, 18, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: t0}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testSettings() app.Settings {
	return app.Settings{
		EventID:          eventID,
		Teams:            app.TeamIDs(7),
		MaxSelections:    2,
		AnswerWindow:     15 * time.Second,
		ActivityDuration: 20 * time.Minute,
		ActivityBlock:    5 * time.Minute,
		UndoWindow:       60 * time.Second,
		SettlePeriod:     60 * time.Second,
	}
}

// seededStore holds 7 teams of 3 participants (ids 1..21) and 20 questions
// whose correct option is always A.
func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	participants := make([]domain.Participant, 0, 21)
	for id := 1; id <= 21; id++ {
		participants = append(participants, domain.Participant{
			ID:      id,
			Name:    fmt.Sprintf("Player %02d", id),
			TeamID:  (id-1)/3 + 1,
			Present: true,
		})
	}
	require.NoError(t, store.InsertParticipants(ctx, participants))

	questions := make([]domain.QuizQuestion, 0, 20)
	for i := 1; i <= 20; i++ {
		questions = append(questions, domain.QuizQuestion{
			ID:      fmt.Sprintf("q%02d", i),
			Text:    fmt.Sprintf("Question %d", i),
			Options: [4]string{"alpha", "beta", "gamma", "delta"},
			Correct: domain.OptionA,
		})
	}
	require.NoError(t, store.InsertQuestions(ctx, questions))
	return store
}

func option(l domain.OptionLabel) *domain.OptionLabel {
	return &l
}

func intPtr(v int) *int {
	return &v
}
