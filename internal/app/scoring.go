package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"team-event-service/internal/domain"
)

const (
	// CorrectPoints is awarded for a correct quiz answer.
	CorrectPoints = 3
	// WrongPoints is awarded for a wrong answer or a timeout.
	WrongPoints = -1
	// BlockPoints is awarded per completed activity block.
	BlockPoints = 3
)

// QuizPoints scores a selection against the question; a nil selection is a timeout.
func QuizPoints(q domain.QuizQuestion, selected *domain.OptionLabel) (bool, int) {
	if selected != nil && *selected == q.Correct {
		return true, CorrectPoints
	}
	return false, WrongPoints
}

// ActivityPoints scores one participant over the activity window. Going out
// costs one point on top of the blocks completed before the mark.
func ActivityPoints(startedAt, endedAt time.Time, outAt *time.Time, block time.Duration) int {
	end := endedAt
	if outAt != nil && outAt.Before(endedAt) {
		end = *outAt
	}
	blocks := 0
	if d := end.Sub(startedAt); d > 0 {
		blocks = int(d / block)
	}
	points := blocks * BlockPoints
	if outAt != nil {
		points += domain.OutPenalty
	}
	return points
}

// Scorer turns the stored logs and attempts into team totals.
type Scorer struct {
	eventID       string
	teams         []int
	maxSelections int
	block         time.Duration
	store         Store
}

func NewScorer(eventID string, teams []int, maxSelections int, block time.Duration, store Store) *Scorer {
	return &Scorer{eventID: eventID, teams: teams, maxSelections: maxSelections, block: block, store: store}
}

// QuizComplete reports whether every configured team has reached the
// selection limit. It always reads the store.
func (s *Scorer) QuizComplete(ctx context.Context) (bool, error) {
	rows, err := s.store.ListUsage(ctx, s.eventID)
	if err != nil {
		return false, fmt.Errorf("quiz completeness: %w", err)
	}
	if len(rows) != len(s.teams) {
		return false, nil
	}
	for _, row := range rows {
		if row.Count < s.maxSelections {
			return false, nil
		}
	}
	return true, nil
}

// Totals computes activity plus quiz points for every configured team.
func (s *Scorer) Totals(ctx context.Context) ([]TeamTotal, error) {
	var (
		state        domain.EventState
		participants []domain.Participant
		outs         []domain.Mark
		attempts     []domain.QuizAttempt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		state, err = s.store.GetEventState(gctx, s.eventID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrActivityWindowMissing
		}
		return err
	})
	g.Go(func() error {
		var err error
		participants, err = s.store.ListParticipants(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		outs, err = s.store.ListMarks(gctx, s.eventID, domain.MarkOut)
		return err
	})
	g.Go(func() error {
		var err error
		attempts, err = s.store.ListAttempts(gctx, s.eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load scoring inputs: %w", err)
	}
	if state.StartedAt == nil || state.EndedAt == nil {
		return nil, domain.ErrActivityWindowMissing
	}

	outAt := make(map[int]time.Time, len(outs))
	for _, m := range outs {
		outAt[m.SubjectID] = m.CreatedAt
	}

	byTeam := make(map[int]int, len(s.teams))
	for _, team := range s.teams {
		byTeam[team] = 0
	}
	for _, p := range participants {
		if !p.Present {
			continue
		}
		var out *time.Time
		if at, ok := outAt[p.ID]; ok {
			out = &at
		}
		byTeam[p.TeamID] += ActivityPoints(*state.StartedAt, *state.EndedAt, out, s.block)
	}
	for _, a := range attempts {
		byTeam[a.TeamID] += a.Points
	}

	totals := make([]TeamTotal, 0, len(byTeam))
	for team, points := range byTeam {
		totals = append(totals, TeamTotal{TeamID: team, Points: points})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].TeamID < totals[j].TeamID })
	return totals, nil
}
