package app_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"team-event-service/internal/app"
	"team-event-service/internal/domain"
	"team-event-service/internal/infra/memory"
)

func newController(t *testing.T, store app.Store, clock *fakeClock) (*app.EventController, *memory.ResultCache) {
	t.Helper()
	cache := memory.NewResultCache(store, time.Minute)
	ctrl := app.NewEventControllerWithClock(testSettings(), store, cache, clock.Now, rand.New(rand.NewSource(42)))
	t.Cleanup(ctrl.Close)
	require.NoError(t, ctrl.Recover(context.Background()))
	return ctrl, cache
}

// driveToQuiz moves a fresh controller to the Quiz phase with options revealed.
func driveToQuiz(t *testing.T, ctrl *app.EventController) (team, rep int) {
	t.Helper()
	ctx := context.Background()
	if ctrl.Phase() == domain.PhaseAttendance {
		require.NoError(t, ctrl.LockAttendance(ctx))
		require.NoError(t, ctrl.AcknowledgeRules(ctx))
	}
	team, complete, err := ctrl.DrawTeam(ctx)
	require.NoError(t, err)
	require.False(t, complete)
	require.NoError(t, ctrl.ConfirmTeam(ctx))
	reps, err := ctrl.Representatives(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, reps)
	_, err = ctrl.ChooseRepresentative(ctx, reps[0].ID)
	require.NoError(t, err)
	_, err = ctrl.RevealOptions(ctx)
	require.NoError(t, err)
	return team, reps[0].ID
}

func TestEventControllerFullFlow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := seededStore(t)
	ctrl, cache := newController(t, store, clock)
	require.Equal(t, domain.PhaseAttendance, ctrl.Phase())

	marked, err := ctrl.MarkAbsent(ctx, 21)
	require.NoError(t, err)
	require.True(t, marked)
	roster, err := ctrl.Roster(ctx)
	require.NoError(t, err)
	last := roster[len(roster)-1]
	require.Equal(t, 21, last.ID)
	require.True(t, last.Marked)
	require.True(t, last.Revocable)
	require.False(t, last.Present)

	require.NoError(t, ctrl.LockAttendance(ctx))
	require.Equal(t, domain.PhaseQuizRules, ctrl.Phase())
	_, err = ctrl.MarkAbsent(ctx, 20)
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	require.NoError(t, ctrl.AcknowledgeRules(ctx))
	require.Equal(t, domain.PhaseQuizTeamSelect, ctrl.Phase())

	for pick := 0; pick < 14; pick++ {
		team, complete, err := ctrl.DrawTeam(ctx)
		require.NoError(t, err)
		require.False(t, complete)
		require.NoError(t, ctrl.ConfirmTeam(ctx))

		reps, err := ctrl.Representatives(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, reps)
		q, err := ctrl.ChooseRepresentative(ctx, reps[0].ID)
		require.NoError(t, err)
		require.False(t, q.OptionsRevealed)
		require.Nil(t, q.Options)

		_, err = ctrl.RevealOptions(ctx)
		require.NoError(t, err)
		require.True(t, ctrl.Snapshot().Question.OptionsRevealed)

		answer := domain.OptionB
		if team <= 2 {
			answer = domain.OptionA
		}
		out, err := ctrl.SubmitAnswer(ctx, option(answer))
		require.NoError(t, err)
		require.Equal(t, team <= 2, out.Correct)
		require.Equal(t, pick == 13, out.QuizComplete)
	}
	require.Equal(t, domain.PhaseActivityRules, ctrl.Phase())

	require.NoError(t, ctrl.AcknowledgeRules(ctx))
	require.Equal(t, domain.PhaseActivityMaster, ctrl.Phase())
	require.Equal(t, app.ActivityIdle, ctrl.Activity().Status)
	_, err = ctrl.FinishActivity(ctx)
	require.ErrorIs(t, err, domain.ErrInvariantViolation)

	require.NoError(t, ctrl.StartActivity(ctx))
	clock.Advance(20 * time.Minute)
	require.NoError(t, ctrl.StopActivity(ctx))

	// Activity: 12 per present participant. Quiz: teams 1 and 2 +6, the rest -2.
	groups, err := ctrl.FinishActivity(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseResults, ctrl.Phase())
	require.Len(t, groups, 3)
	require.Equal(t, 1, groups[0].Rank)
	require.Equal(t, []app.Standing{{TeamID: 1, Points: 42, Rank: 1}, {TeamID: 2, Points: 42, Rank: 1}}, groups[0].Teams)
	require.Equal(t, 3, groups[1].Rank)
	require.Equal(t, []app.Standing{{TeamID: 7, Points: 22, Rank: 7}}, groups[2].Teams)

	before, err := store.ListResults(ctx, eventID)
	require.NoError(t, err)
	for _, r := range before {
		require.False(t, r.IsFinal)
	}
	again, err := ctrl.ComputeResults(ctx)
	require.NoError(t, err)
	require.Equal(t, groups, again)
	after, err := store.ListResults(ctx, eventID)
	require.NoError(t, err)
	require.Equal(t, before, after)

	require.ErrorIs(t, ctrl.FinishResults(ctx), domain.ErrInvariantViolation)
	reveals := 0
	for {
		_, ok, err := ctrl.RevealNext(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		reveals++
	}
	require.Equal(t, 3, reveals)

	require.NoError(t, ctrl.FinishResults(ctx))
	require.Equal(t, domain.PhaseTieBreakerRules, ctrl.Phase())
	require.NoError(t, ctrl.AcknowledgeRules(ctx))
	require.Equal(t, domain.PhaseTieBreakerRepresentativeSelect, ctrl.Phase())

	// Players 1 and 2 answered for team 1; 4 and 5 for team 2.
	reps, err := ctrl.Representatives(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Participant{{ID: 3, Name: "Player 03", TeamID: 1, Present: true}}, reps)
	require.ErrorIs(t, ctrl.ChooseTieBreakRepresentative(ctx, 1), domain.ErrInvariantViolation)
	require.NoError(t, ctrl.ChooseTieBreakRepresentative(ctx, 3))
	require.NoError(t, ctrl.ChooseTieBreakRepresentative(ctx, 6))
	require.Equal(t, domain.PhaseTieBreakerChallenge, ctrl.Phase())

	winner, err := ctrl.Eliminate(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, *winner)
	require.Equal(t, domain.PhaseComplete, ctrl.Phase())

	board, err := cache.Leaderboard(ctx, eventID)
	require.NoError(t, err)
	require.Equal(t, domain.EventResult{EventID: eventID, TeamID: 1, TotalPoints: 45, Rank: 1, IsFinal: true}, board[0])
	require.Equal(t, domain.EventResult{EventID: eventID, TeamID: 2, TotalPoints: 42, Rank: 2, IsFinal: true}, board[1])

	view := ctrl.Snapshot()
	require.Equal(t, app.Standing{TeamID: 1, Points: 45, Rank: 1}, view.Standings[0])

	reloaded, _ := newController(t, store, clock)
	require.Equal(t, domain.PhaseComplete, reloaded.Phase())
	require.Equal(t, view.Standings, reloaded.Snapshot().Standings)
}

func TestLateAnswerIsTimeout(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := seededStore(t)
	ctrl, _ := newController(t, store, clock)
	team, rep := driveToQuiz(t, ctrl)

	left, ok := ctrl.AnswerRemaining()
	require.True(t, ok)
	require.Equal(t, 15*time.Second, left)

	clock.Advance(16 * time.Second)
	out, err := ctrl.SubmitAnswer(ctx, option(domain.OptionA))
	require.NoError(t, err)
	require.True(t, out.TimedOut)
	require.Nil(t, out.Selected)
	require.Equal(t, -1, out.Points)
	require.Equal(t, domain.PhaseQuizTeamSelect, ctrl.Phase())

	attempts, err := store.ListAttempts(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.Equal(t, team, attempts[0].TeamID)
	require.Equal(t, rep, attempts[0].ParticipantID)
	require.Nil(t, attempts[0].Selected)
}

func TestAnsweredRepresentativeIsRejected(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := seededStore(t)
	ctrl, _ := newController(t, store, clock)
	_, rep := driveToQuiz(t, ctrl)
	_, err := ctrl.SubmitAnswer(ctx, option(domain.OptionA))
	require.NoError(t, err)

	// Force the same team again by exhausting every other team.
	usage, err := store.ListUsage(ctx, eventID)
	require.NoError(t, err)
	team := usage[0].TeamID
	for _, other := range app.TeamIDs(7) {
		if other == team {
			continue
		}
		for i := 0; i < 2; i++ {
			_, err := store.IncrementUsage(ctx, eventID, other)
			require.NoError(t, err)
		}
	}
	drawn, _, err := ctrl.DrawTeam(ctx)
	require.NoError(t, err)
	require.Equal(t, team, drawn)
	require.NoError(t, ctrl.ConfirmTeam(ctx))

	_, err = ctrl.ChooseRepresentative(ctx, rep)
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
	require.Equal(t, domain.PhaseQuizRepresentativeSelect, ctrl.Phase())
}

func TestSubmitRetryDoesNotDuplicateAttempt(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &flakyParticipationStore{Store: seededStore(t), failures: 1}
	ctrl, _ := newController(t, store, clock)
	driveToQuiz(t, ctrl)

	_, err := ctrl.SubmitAnswer(ctx, option(domain.OptionA))
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.Equal(t, domain.PhaseQuiz, ctrl.Phase())

	out, err := ctrl.SubmitAnswer(ctx, option(domain.OptionA))
	require.NoError(t, err)
	require.True(t, out.Correct)

	attempts, err := store.ListAttempts(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	usage, err := store.ListUsage(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	require.Equal(t, 1, usage[0].Count)
}

func TestRestorePresentKeepsAbsenceWhenPresenceWriteFails(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &flakyPresenceStore{Store: seededStore(t), failures: 1}
	ctrl, _ := newController(t, store, clock)

	ok, err := ctrl.MarkAbsent(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(10 * time.Second)
	_, err = ctrl.RestorePresent(ctx, 5)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	marks, err := store.ListMarks(ctx, eventID, domain.MarkAbsent)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	require.False(t, presence(t, store, 5))

	ok, err = ctrl.RestorePresent(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	marks, err = store.ListMarks(ctx, eventID, domain.MarkAbsent)
	require.NoError(t, err)
	require.Empty(t, marks)
	require.True(t, presence(t, store, 5))
}

func presence(t *testing.T, store app.Store, id int) bool {
	t.Helper()
	all, err := store.ListParticipants(context.Background())
	require.NoError(t, err)
	for _, p := range all {
		if p.ID == id {
			return p.Present
		}
	}
	t.Fatalf("participant %d not found", id)
	return false
}

func TestRecoverMidQuizDropsSelection(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := seededStore(t)
	ctrl, _ := newController(t, store, clock)
	driveToQuiz(t, ctrl)
	_, err := ctrl.SubmitAnswer(ctx, option(domain.OptionB))
	require.NoError(t, err)
	_, _, err = ctrl.DrawTeam(ctx)
	require.NoError(t, err)
	require.NoError(t, ctrl.ConfirmTeam(ctx))
	require.Equal(t, domain.PhaseQuizRepresentativeSelect, ctrl.Phase())

	reloaded, _ := newController(t, store, clock)
	require.Equal(t, domain.PhaseQuizTeamSelect, reloaded.Phase())
	view := reloaded.Snapshot()
	require.Nil(t, view.Team)
	require.Nil(t, view.Representative)
}

func TestRecoverResumesRunningActivity(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := seededStore(t)
	for _, team := range app.TeamIDs(7) {
		for i := 0; i < 2; i++ {
			_, err := store.IncrementUsage(ctx, eventID, team)
			require.NoError(t, err)
		}
	}
	ctrl, _ := newController(t, store, clock)
	require.Equal(t, domain.PhaseActivityRules, ctrl.Phase())
	require.NoError(t, ctrl.AcknowledgeRules(ctx))
	require.NoError(t, ctrl.StartActivity(ctx))
	clock.Advance(2 * time.Minute)

	reloaded, _ := newController(t, store, clock)
	require.Equal(t, domain.PhaseActivityMaster, reloaded.Phase())
	snap := reloaded.Activity()
	require.Equal(t, app.ActivityRunning, snap.Status)
	require.Equal(t, (2 * time.Minute).Milliseconds(), snap.ElapsedMS)
}

func TestQuizExhaustedOnEmptyDraw(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := seededStore(t)
	ctrl, _ := newController(t, store, clock)
	require.NoError(t, ctrl.LockAttendance(ctx))
	require.NoError(t, ctrl.AcknowledgeRules(ctx))
	for _, team := range app.TeamIDs(7) {
		for i := 0; i < 2; i++ {
			_, err := store.IncrementUsage(ctx, eventID, team)
			require.NoError(t, err)
		}
	}

	_, complete, err := ctrl.DrawTeam(ctx)
	require.NoError(t, err)
	require.True(t, complete)
	require.Equal(t, domain.PhaseActivityRules, ctrl.Phase())
}

type flakyParticipationStore struct {
	*memory.Store
	failures int
}

func (s *flakyParticipationStore) MarkAnswered(ctx context.Context, eventID string, participantID int) error {
	if s.failures > 0 {
		s.failures--
		return domain.ErrStoreUnavailable
	}
	return s.Store.MarkAnswered(ctx, eventID, participantID)
}

type flakyPresenceStore struct {
	*memory.Store
	failures int
}

func (s *flakyPresenceStore) SetPresent(ctx context.Context, participantID int, present bool) error {
	if present && s.failures > 0 {
		s.failures--
		return domain.ErrStoreUnavailable
	}
	return s.Store.SetPresent(ctx, participantID, present)
}
