package app

import (
	"context"
	"errors"
	"fmt"

	"team-event-service/internal/domain"
)

// TieBreakBonus is added to the tie-break winner's stored total.
const TieBreakBonus = 3

// TieBreak runs the elimination among teams tied at rank 1.
type TieBreak struct {
	teams     []int
	reps      map[int]int
	remaining []int
}

func NewTieBreak(teams []int) *TieBreak {
	return &TieBreak{
		teams:     append([]int(nil), teams...),
		reps:      make(map[int]int, len(teams)),
		remaining: append([]int(nil), teams...),
	}
}

// Teams returns the tied teams in their original order.
func (t *TieBreak) Teams() []int {
	return append([]int(nil), t.teams...)
}

// NextUnrepresented returns the first tied team without a representative.
func (t *TieBreak) NextUnrepresented() (int, bool) {
	for _, team := range t.teams {
		if _, ok := t.reps[team]; !ok {
			return team, true
		}
	}
	return 0, false
}

// Assign records the representative for a tied team.
func (t *TieBreak) Assign(teamID, participantID int) error {
	if !contains(t.teams, teamID) {
		return fmt.Errorf("%w: team %d is not tied", domain.ErrInvariantViolation, teamID)
	}
	t.reps[teamID] = participantID
	return nil
}

// Representatives returns the team -> participant assignments.
func (t *TieBreak) Representatives() map[int]int {
	out := make(map[int]int, len(t.reps))
	for k, v := range t.reps {
		out[k] = v
	}
	return out
}

// Ready reports whether every tied team has a representative.
func (t *TieBreak) Ready() bool {
	_, missing := t.NextUnrepresented()
	return !missing
}

// Remaining returns the teams still in the challenge.
func (t *TieBreak) Remaining() []int {
	return append([]int(nil), t.remaining...)
}

// Eliminate removes a team; once one team remains it is returned as winner.
func (t *TieBreak) Eliminate(teamID int) (winner int, done bool, err error) {
	if len(t.remaining) <= 1 {
		return 0, false, fmt.Errorf("%w: challenge already decided", domain.ErrInvariantViolation)
	}
	if !contains(t.remaining, teamID) {
		return 0, false, fmt.Errorf("%w: team %d is not in the challenge", domain.ErrInvariantViolation, teamID)
	}
	next := make([]int, 0, len(t.remaining)-1)
	for _, team := range t.remaining {
		if team != teamID {
			next = append(next, team)
		}
	}
	t.remaining = next
	if len(next) == 1 {
		return next[0], true, nil
	}
	return 0, false, nil
}

// Resolver applies a tie-break outcome to the stored results.
type Resolver struct {
	eventID string
	results ResultStore
}

func NewResolver(eventID string, results ResultStore) *Resolver {
	return &Resolver{eventID: eventID, results: results}
}

// Resolve adds the bonus to the winner's stored total, re-ranks and marks
// every row final in a single store write, so a failed attempt can be retried
// without the bonus landing twice.
func (r *Resolver) Resolve(ctx context.Context, winner int) ([]Standing, error) {
	row, err := r.results.GetResult(ctx, r.eventID, winner)
	if err != nil {
		return nil, fmt.Errorf("fetch winner total: %w", err)
	}
	if row.IsFinal {
		return nil, domain.ErrAlreadyFinal
	}
	rows, err := r.results.ListResults(ctx, r.eventID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	totals := totalsFromResults(rows)
	for i := range totals {
		if totals[i].TeamID == winner {
			totals[i].Points += TieBreakBonus
		}
	}
	standings := Rank(totals)
	final := make([]domain.EventResult, 0, len(standings))
	for _, s := range standings {
		final = append(final, domain.EventResult{
			EventID:     r.eventID,
			TeamID:      s.TeamID,
			TotalPoints: s.Points,
			Rank:        s.Rank,
			IsFinal:     true,
		})
	}
	if err := r.results.FinalizeResults(ctx, r.eventID, final); err != nil {
		if errors.Is(err, domain.ErrAlreadyFinal) {
			return nil, err
		}
		return nil, fmt.Errorf("finalize results: %w", err)
	}
	return standings, nil
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
