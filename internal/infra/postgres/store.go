package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"team-event-service/internal/domain"
)

// Store implements app.Store on Postgres through bun. Questions are claimed
// through the pgx-backed QuestionBank.
type Store struct {
	db        *bun.DB
	questions *QuestionBank
}

func NewStore(db *bun.DB, questions *QuestionBank) *Store {
	return &Store{db: db, questions: questions}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertParticipants upserts roster rows.
func (s *Store) InsertParticipants(ctx context.Context, participants []domain.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	rows := make([]participantRow, 0, len(participants))
	for _, p := range participants {
		rows = append(rows, participantRow{ID: p.ID, Name: p.Name, TeamID: p.TeamID, Present: p.Present})
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("team_id = EXCLUDED.team_id").
		Set("present = EXCLUDED.present").
		Exec(ctx)
	return mapErr("insert participants", err)
}

func (s *Store) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	var rows []participantRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, mapErr("list participants", err)
	}
	out := make([]domain.Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) SetPresent(ctx context.Context, participantID int, present bool) error {
	res, err := s.db.NewUpdate().
		Model((*participantRow)(nil)).
		Set("present = ?", present).
		Where("id = ?", participantID).
		Exec(ctx)
	if err != nil {
		return mapErr("set present", err)
	}
	return requireAffected(res, fmt.Sprintf("participant %d", participantID))
}

func (s *Store) ListUsage(ctx context.Context, eventID string) ([]domain.TeamUsage, error) {
	var rows []usageRow
	if err := s.db.NewSelect().Model(&rows).Where("event_id = ?", eventID).Order("team_id ASC").Scan(ctx); err != nil {
		return nil, mapErr("list usage", err)
	}
	out := make([]domain.TeamUsage, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.TeamUsage{EventID: r.EventID, TeamID: r.TeamID, Count: r.Count})
	}
	return out, nil
}

// IncrementUsage creates the usage row or bumps it in a single statement.
func (s *Store) IncrementUsage(ctx context.Context, eventID string, teamID int) (int, error) {
	row := &usageRow{EventID: eventID, TeamID: teamID, Count: 1}
	err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (event_id, team_id) DO UPDATE").
		Set("count = u.count + 1").
		Returning("count").
		Scan(ctx)
	if err != nil {
		return 0, mapErr("increment usage", err)
	}
	return row.Count, nil
}

func (s *Store) ClaimQuestion(ctx context.Context) (domain.QuizQuestion, error) {
	return s.questions.ClaimQuestion(ctx)
}

func (s *Store) InsertAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	row := &attemptRow{
		EventID:       attempt.EventID,
		TeamID:        attempt.TeamID,
		ParticipantID: attempt.ParticipantID,
		QuestionID:    attempt.QuestionID,
		IsCorrect:     attempt.Correct,
		Points:        attempt.Points,
		CreatedAt:     attempt.CreatedAt,
	}
	if attempt.Selected != nil {
		selected := string(*attempt.Selected)
		row.SelectedOption = &selected
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return mapErr("insert attempt", err)
}

func (s *Store) ListAttempts(ctx context.Context, eventID string) ([]domain.QuizAttempt, error) {
	var rows []attemptRow
	if err := s.db.NewSelect().Model(&rows).Where("event_id = ?", eventID).Order("id ASC").Scan(ctx); err != nil {
		return nil, mapErr("list attempts", err)
	}
	out := make([]domain.QuizAttempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) ListParticipation(ctx context.Context, eventID string) ([]domain.QuizParticipation, error) {
	var rows []participationRow
	if err := s.db.NewSelect().Model(&rows).Where("event_id = ?", eventID).Order("participant_id ASC").Scan(ctx); err != nil {
		return nil, mapErr("list participation", err)
	}
	out := make([]domain.QuizParticipation, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.QuizParticipation{EventID: r.EventID, ParticipantID: r.ParticipantID, HasAnswered: r.HasAnswered})
	}
	return out, nil
}

// MarkAnswered sets has_answered and never clears it.
func (s *Store) MarkAnswered(ctx context.Context, eventID string, participantID int) error {
	_, err := s.db.NewInsert().
		Model(&participationRow{EventID: eventID, ParticipantID: participantID, HasAnswered: true}).
		On("CONFLICT (event_id, participant_id) DO UPDATE").
		Set("has_answered = TRUE").
		Exec(ctx)
	return mapErr("mark answered", err)
}

func (s *Store) ListMarks(ctx context.Context, eventID string, kind domain.MarkKind) ([]domain.Mark, error) {
	var rows []markRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("event_id = ?", eventID).
		Where("mark_type = ?", string(kind)).
		Order("participant_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapErr("list marks", err)
	}
	out := make([]domain.Mark, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// InsertMark returns domain.ErrConflict when the subject is already marked.
func (s *Store) InsertMark(ctx context.Context, mark domain.Mark) error {
	res, err := s.db.NewInsert().
		Model(&markRow{EventID: mark.EventID, ParticipantID: mark.SubjectID, MarkType: string(mark.Kind), CreatedAt: mark.CreatedAt}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return mapErr("insert mark", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (s *Store) DeleteMark(ctx context.Context, eventID string, kind domain.MarkKind, subjectID int) error {
	_, err := s.db.NewDelete().
		Model((*markRow)(nil)).
		Where("event_id = ?", eventID).
		Where("mark_type = ?", string(kind)).
		Where("participant_id = ?", subjectID).
		Exec(ctx)
	return mapErr("delete mark", err)
}

func (s *Store) GetEventState(ctx context.Context, eventID string) (domain.EventState, error) {
	var row stateRow
	if err := s.db.NewSelect().Model(&row).Where("event_id = ?", eventID).Scan(ctx); err != nil {
		return domain.EventState{}, mapErr("get event state", err)
	}
	return row.toDomain(), nil
}

func (s *Store) StartActivity(ctx context.Context, eventID string, at time.Time) error {
	_, err := s.db.NewInsert().
		Model(&stateRow{EventID: eventID, ActivityActive: true, StartedAt: &at}).
		On("CONFLICT (event_id) DO UPDATE").
		Set("activity_active = TRUE").
		Set("locked = FALSE").
		Set("started_at = EXCLUDED.started_at").
		Set("ended_at = NULL").
		Exec(ctx)
	return mapErr("start activity", err)
}

// StopActivity only touches an active row, so concurrent stops persist once.
func (s *Store) StopActivity(ctx context.Context, eventID string, at time.Time) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*stateRow)(nil)).
		Set("activity_active = FALSE").
		Set("locked = TRUE").
		Set("ended_at = ?", at).
		Where("event_id = ?", eventID).
		Where("activity_active").
		Exec(ctx)
	if err != nil {
		return false, mapErr("stop activity", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapErr("stop activity", err)
	}
	return n == 1, nil
}

func (s *Store) ListResults(ctx context.Context, eventID string) ([]domain.EventResult, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("event_id = ?", eventID).
		Order("rank ASC", "team_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapErr("list results", err)
	}
	out := make([]domain.EventResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetResult(ctx context.Context, eventID string, teamID int) (domain.EventResult, error) {
	var row resultRow
	err := s.db.NewSelect().
		Model(&row).
		Where("event_id = ?", eventID).
		Where("team_id = ?", teamID).
		Scan(ctx)
	if err != nil {
		return domain.EventResult{}, mapErr("get result", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpsertResults(ctx context.Context, results []domain.EventResult) error {
	if len(results) == 0 {
		return nil
	}
	rows := make([]resultRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, resultRow{EventID: r.EventID, TeamID: r.TeamID, TotalPoints: r.TotalPoints, Rank: r.Rank, IsFinal: r.IsFinal})
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (event_id, team_id) DO UPDATE").
		Set("total_points = EXCLUDED.total_points").
		Set("rank = EXCLUDED.rank").
		Set("is_final = EXCLUDED.is_final").
		Exec(ctx)
	return mapErr("upsert results", err)
}

// FinalizeResults writes the given totals and ranks and marks every row of the
// event final in one transaction. It fails with ErrAlreadyFinal when any row
// was finalized before.
func (s *Store) FinalizeResults(ctx context.Context, eventID string, results []domain.EventResult) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var final []resultRow
		err := tx.NewSelect().
			Model(&final).
			Where("event_id = ?", eventID).
			Where("is_final").
			For("UPDATE").
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if len(final) > 0 {
			return domain.ErrAlreadyFinal
		}
		for _, r := range results {
			res, err := tx.NewUpdate().
				Model((*resultRow)(nil)).
				Set("total_points = ?", r.TotalPoints).
				Set("rank = ?", r.Rank).
				Where("event_id = ?", eventID).
				Where("team_id = ?", r.TeamID).
				Exec(ctx)
			if err != nil {
				return err
			}
			if err := requireAffected(res, fmt.Sprintf("result for team %d", r.TeamID)); err != nil {
				return err
			}
		}
		_, err = tx.NewUpdate().
			Model((*resultRow)(nil)).
			Set("is_final = TRUE").
			Where("event_id = ?", eventID).
			Exec(ctx)
		return err
	})
	if errors.Is(err, domain.ErrAlreadyFinal) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return mapErr("finalize results", err)
}

func mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", what, domain.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
