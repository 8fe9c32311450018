package http

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"team-event-service/internal/app"
	"team-event-service/internal/domain"
	"team-event-service/internal/infra/memory"
)

const testEventID = "9a1d6c52-3b7e-4f0a-8e21-5c4b7d9f0e13"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store      *memory.Store
	clock      *testClock
	controller *app.EventController
	server     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	var roster []domain.Participant
	for id := 1; id <= 6; id++ {
		roster = append(roster, domain.Participant{ID: id, Name: fmt.Sprintf("Player %d", id), TeamID: (id-1)/3 + 1, Present: true})
	}
	if err := store.InsertParticipants(ctx, roster); err != nil {
		t.Fatalf("seed participants: %v", err)
	}
	if err := store.InsertQuestions(ctx, []domain.QuizQuestion{
		{ID: "q1", Text: "2 + 2?", Options: [4]string{"4", "3", "5", "22"}, Correct: domain.OptionA},
		{ID: "q2", Text: "Largest planet?", Options: [4]string{"Mars", "Jupiter", "Venus", "Earth"}, Correct: domain.OptionB},
	}); err != nil {
		t.Fatalf("seed questions: %v", err)
	}

	clock := &testClock{now: time.Date(2024, 11, 22, 18, 0, 0, 0, time.UTC)}
	settings := app.Settings{
		EventID:          testEventID,
		Teams:            app.TeamIDs(2),
		MaxSelections:    1,
		AnswerWindow:     15 * time.Second,
		ActivityDuration: 20 * time.Minute,
		ActivityBlock:    5 * time.Minute,
		UndoWindow:       60 * time.Second,
		SettlePeriod:     60 * time.Second,
	}
	cache := memory.NewResultCacheWithClock(store, time.Minute, clock.Now)
	controller := app.NewEventControllerWithClock(settings, store, cache, clock.Now, rand.New(rand.NewSource(7)))
	t.Cleanup(controller.Close)
	if err := controller.Recover(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}
	viewers := memory.NewViewerRegistryWithClock(10*time.Minute, clock.Now)
	marking := app.NewMarkingServiceWithClock(settings, store, viewers, clock.Now)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewConsoleHandler(controller).ServeWS)
	NewAPIHandler(testEventID, controller, marking, cache).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{store: store, clock: clock, controller: controller, server: server}
}
