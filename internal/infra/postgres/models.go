package postgres

import (
	"time"

	"github.com/uptrace/bun"
	"team-event-service/internal/domain"
)

type participantRow struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID      int    `bun:"id,pk"`
	Name    string `bun:"name,notnull"`
	TeamID  int    `bun:"team_id,notnull"`
	Present bool   `bun:"present,notnull"`
}

func (r participantRow) toDomain() domain.Participant {
	return domain.Participant{ID: r.ID, Name: r.Name, TeamID: r.TeamID, Present: r.Present}
}

type usageRow struct {
	bun.BaseModel `bun:"table:quiz_team_usage,alias:u"`

	EventID string `bun:"event_id,pk,type:uuid"`
	TeamID  int    `bun:"team_id,pk"`
	Count   int    `bun:"count,notnull"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:a"`

	ID             int64     `bun:"id,pk,autoincrement"`
	EventID        string    `bun:"event_id,notnull,type:uuid"`
	TeamID         int       `bun:"team_id,notnull"`
	ParticipantID  int       `bun:"participant_id,notnull"`
	QuestionID     string    `bun:"question_id,notnull"`
	SelectedOption *string   `bun:"selected_option"`
	IsCorrect      bool      `bun:"is_correct,notnull"`
	Points         int       `bun:"points,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

func (r attemptRow) toDomain() domain.QuizAttempt {
	a := domain.QuizAttempt{
		EventID:       r.EventID,
		TeamID:        r.TeamID,
		ParticipantID: r.ParticipantID,
		QuestionID:    r.QuestionID,
		Correct:       r.IsCorrect,
		Points:        r.Points,
		CreatedAt:     r.CreatedAt,
	}
	if r.SelectedOption != nil {
		label := domain.OptionLabel(*r.SelectedOption)
		a.Selected = &label
	}
	return a
}

type participationRow struct {
	bun.BaseModel `bun:"table:quiz_participation,alias:qp"`

	EventID       string `bun:"event_id,pk,type:uuid"`
	ParticipantID int    `bun:"participant_id,pk"`
	HasAnswered   bool   `bun:"has_answered,notnull"`
}

type markRow struct {
	bun.BaseModel `bun:"table:activity_participant_log,alias:m"`

	EventID       string    `bun:"event_id,pk,type:uuid"`
	ParticipantID int       `bun:"participant_id,pk"`
	MarkType      string    `bun:"mark_type,pk"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func (r markRow) toDomain() domain.Mark {
	return domain.Mark{EventID: r.EventID, SubjectID: r.ParticipantID, Kind: domain.MarkKind(r.MarkType), CreatedAt: r.CreatedAt}
}

type stateRow struct {
	bun.BaseModel `bun:"table:event_state,alias:s"`

	EventID        string     `bun:"event_id,pk,type:uuid"`
	ActivityActive bool       `bun:"activity_active,notnull"`
	StartedAt      *time.Time `bun:"started_at"`
	EndedAt        *time.Time `bun:"ended_at"`
	Locked         bool       `bun:"locked,notnull"`
}

func (r stateRow) toDomain() domain.EventState {
	return domain.EventState{
		EventID:        r.EventID,
		ActivityActive: r.ActivityActive,
		StartedAt:      r.StartedAt,
		EndedAt:        r.EndedAt,
		Locked:         r.Locked,
	}
}

type resultRow struct {
	bun.BaseModel `bun:"table:event_results,alias:r"`

	EventID     string `bun:"event_id,pk,type:uuid"`
	TeamID      int    `bun:"team_id,pk"`
	TotalPoints int    `bun:"total_points,notnull"`
	Rank        int    `bun:"rank,notnull"`
	IsFinal     bool   `bun:"is_final,notnull"`
}

func (r resultRow) toDomain() domain.EventResult {
	return domain.EventResult{EventID: r.EventID, TeamID: r.TeamID, TotalPoints: r.TotalPoints, Rank: r.Rank, IsFinal: r.IsFinal}
}
