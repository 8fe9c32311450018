package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"team-event-service/internal/domain"
)

// QuestionBank hands out quiz questions straight through pgx.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

const claimQuestionSQL = `
UPDATE quiz_questions SET used = TRUE
WHERE id = (
	SELECT id FROM quiz_questions
	WHERE NOT used
	ORDER BY id
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING id, question, option_a, option_b, option_c, option_d, correct_option`

// ClaimQuestion marks the first unused question as used and returns it.
// Concurrent claims never receive the same row.
func (b *QuestionBank) ClaimQuestion(ctx context.Context) (domain.QuizQuestion, error) {
	var (
		q       domain.QuizQuestion
		correct string
	)
	err := b.pool.QueryRow(ctx, claimQuestionSQL).Scan(
		&q.ID, &q.Text, &q.Options[0], &q.Options[1], &q.Options[2], &q.Options[3], &correct,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizQuestion{}, domain.ErrNoQuestionsLeft
	}
	if err != nil {
		return domain.QuizQuestion{}, fmt.Errorf("claim question: %w: %w", domain.ErrStoreUnavailable, err)
	}
	q.Correct = domain.OptionLabel(correct)
	q.Used = true
	return q, nil
}

// InsertQuestions upserts questions in one batch. Existing rows keep their used flag.
func (b *QuestionBank) InsertQuestions(ctx context.Context, questions []domain.QuizQuestion) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		if !q.Correct.Valid() {
			return fmt.Errorf("question %s: invalid correct option %q", q.ID, q.Correct)
		}
		batch.Queue(`
INSERT INTO quiz_questions (id, question, option_a, option_b, option_c, option_d, correct_option)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	question = EXCLUDED.question,
	option_a = EXCLUDED.option_a,
	option_b = EXCLUDED.option_b,
	option_c = EXCLUDED.option_c,
	option_d = EXCLUDED.option_d,
	correct_option = EXCLUDED.correct_option`,
			q.ID, q.Text, q.Options[0], q.Options[1], q.Options[2], q.Options[3], string(q.Correct))
	}
	results := b.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range questions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
	}
	return nil
}

// Remaining counts unused questions.
func (b *QuestionBank) Remaining(ctx context.Context) (int, error) {
	var n int
	if err := b.pool.QueryRow(ctx, `SELECT count(*) FROM quiz_questions WHERE NOT used`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

// Ping checks the pool.
func (b *QuestionBank) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}
