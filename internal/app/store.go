package app

import (
	"context"
	"time"

	"team-event-service/internal/domain"
)

// The interfaces below are the record store collections the core consumes.
// Every call is an independent request; none of them assume a surrounding
// transaction.

// ParticipantStore reads and updates the roster.
type ParticipantStore interface {
	// ListParticipants returns every participant ordered by roll number.
	ListParticipants(ctx context.Context) ([]domain.Participant, error)
	SetPresent(ctx context.Context, participantID int, present bool) error
}

// UsageStore tracks how often each team has been chosen as quiz responder.
type UsageStore interface {
	ListUsage(ctx context.Context, eventID string) ([]domain.TeamUsage, error)
	// IncrementUsage atomically creates or bumps the usage row and returns the new count.
	IncrementUsage(ctx context.Context, eventID string, teamID int) (int, error)
}

// QuestionStore hands out unused questions.
type QuestionStore interface {
	// ClaimQuestion marks one unused question as used and returns it.
	// It returns domain.ErrNoQuestionsLeft when the bank is exhausted.
	ClaimQuestion(ctx context.Context) (domain.QuizQuestion, error)
}

// AttemptStore is the append-only quiz attempt log.
type AttemptStore interface {
	InsertAttempt(ctx context.Context, attempt domain.QuizAttempt) error
	ListAttempts(ctx context.Context, eventID string) ([]domain.QuizAttempt, error)
}

// ParticipationStore records who has answered in an event.
type ParticipationStore interface {
	ListParticipation(ctx context.Context, eventID string) ([]domain.QuizParticipation, error)
	MarkAnswered(ctx context.Context, eventID string, participantID int) error
}

// MarkStore backs a ReversibleLog for one mark kind.
type MarkStore interface {
	ListMarks(ctx context.Context, eventID string, kind domain.MarkKind) ([]domain.Mark, error)
	// InsertMark returns domain.ErrConflict when a mark for the subject already exists.
	InsertMark(ctx context.Context, mark domain.Mark) error
	DeleteMark(ctx context.Context, eventID string, kind domain.MarkKind, subjectID int) error
}

// EventStateStore persists the activity window.
type EventStateStore interface {
	// GetEventState returns domain.ErrNotFound when no row exists yet.
	GetEventState(ctx context.Context, eventID string) (domain.EventState, error)
	StartActivity(ctx context.Context, eventID string, at time.Time) error
	// StopActivity ends a running activity. It reports false when the activity
	// was not active, so only one caller ever observes the stop.
	StopActivity(ctx context.Context, eventID string, at time.Time) (bool, error)
}

// ResultStore persists per-team totals and ranks.
type ResultStore interface {
	// ListResults returns rows ordered by rank, then team.
	ListResults(ctx context.Context, eventID string) ([]domain.EventResult, error)
	GetResult(ctx context.Context, eventID string, teamID int) (domain.EventResult, error)
	// UpsertResults overwrites totals, ranks and final flags for the given rows.
	UpsertResults(ctx context.Context, results []domain.EventResult) error
	// FinalizeResults atomically writes totals and ranks for the given teams and
	// marks every row of the event final. It returns ErrAlreadyFinal, writing
	// nothing, when the event was finalized before.
	FinalizeResults(ctx context.Context, eventID string, results []domain.EventResult) error
}

// Store is the full record store used by the event controller.
type Store interface {
	ParticipantStore
	UsageStore
	QuestionStore
	AttemptStore
	ParticipationStore
	MarkStore
	EventStateStore
	ResultStore
}

// ResultReader is the read side the live leaderboard polls.
type ResultReader interface {
	ListResults(ctx context.Context, eventID string) ([]domain.EventResult, error)
}

// ResultCache caches leaderboard reads for polling viewers.
type ResultCache interface {
	Leaderboard(ctx context.Context, eventID string) ([]domain.EventResult, error)
	Invalidate(ctx context.Context, eventID string)
}

// ViewerRegistry tracks live marking devices.
type ViewerRegistry interface {
	Touch(ctx context.Context, eventID, sessionID string) error
	Remove(ctx context.Context, eventID, sessionID string) error
	Count(ctx context.Context, eventID string) (int, error)
}
