package app

import (
	"context"
	"log"
	"math/rand"
	"sync"

	"team-event-service/internal/domain"
)

// Eligibility decides which teams and participants may be selected next.
// Read failures return an empty set together with the error so callers block
// instead of double-selecting.
type Eligibility struct {
	eventID       string
	teams         []int
	maxSelections int
	usage         UsageStore
	participants  ParticipantStore
	participation ParticipationStore
	attempts      AttemptStore

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewEligibility(eventID string, teams []int, maxSelections int, store Store, rnd *rand.Rand) *Eligibility {
	return &Eligibility{
		eventID:       eventID,
		teams:         teams,
		maxSelections: maxSelections,
		usage:         store,
		participants:  store,
		participation: store,
		attempts:      store,
		rnd:           rnd,
	}
}

// EligibleTeams returns configured teams whose usage is still below the limit.
func (e *Eligibility) EligibleTeams(ctx context.Context) ([]int, error) {
	rows, err := e.usage.ListUsage(ctx, e.eventID)
	if err != nil {
		log.Printf("eligible teams: %v", err)
		return nil, err
	}
	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.TeamID] = row.Count
	}
	eligible := make([]int, 0, len(e.teams))
	for _, team := range e.teams {
		if counts[team] < e.maxSelections {
			eligible = append(eligible, team)
		}
	}
	return eligible, nil
}

// DrawTeam picks uniformly among eligible teams. ok is false when none remain.
func (e *Eligibility) DrawTeam(ctx context.Context) (team int, ok bool, err error) {
	eligible, err := e.EligibleTeams(ctx)
	if err != nil || len(eligible) == 0 {
		return 0, false, err
	}
	e.mu.Lock()
	idx := e.rnd.Intn(len(eligible))
	e.mu.Unlock()
	return eligible[idx], true, nil
}

// QuizRepresentatives lists present team members who have not answered yet.
func (e *Eligibility) QuizRepresentatives(ctx context.Context, teamID int) ([]domain.Participant, error) {
	members, err := e.presentMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	answered, err := e.answered(ctx)
	if err != nil {
		return nil, err
	}
	return without(members, answered), nil
}

// TieBreakRepresentatives lists present team members who never answered a
// main-quiz question, by participation flag or by attempt.
func (e *Eligibility) TieBreakRepresentatives(ctx context.Context, teamID int) ([]domain.Participant, error) {
	members, err := e.presentMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	answered, err := e.answered(ctx)
	if err != nil {
		return nil, err
	}
	attempts, err := e.attempts.ListAttempts(ctx, e.eventID)
	if err != nil {
		log.Printf("tie-break representatives: %v", err)
		return nil, err
	}
	for _, a := range attempts {
		answered[a.ParticipantID] = struct{}{}
	}
	return without(members, answered), nil
}

// IsQuizRepresentative reports whether participantID is currently eligible for teamID.
func (e *Eligibility) IsQuizRepresentative(ctx context.Context, teamID, participantID int) (bool, error) {
	reps, err := e.QuizRepresentatives(ctx, teamID)
	if err != nil {
		return false, err
	}
	return containsParticipant(reps, participantID), nil
}

func (e *Eligibility) presentMembers(ctx context.Context, teamID int) ([]domain.Participant, error) {
	all, err := e.participants.ListParticipants(ctx)
	if err != nil {
		log.Printf("team %d members: %v", teamID, err)
		return nil, err
	}
	members := make([]domain.Participant, 0)
	for _, p := range all {
		if p.TeamID == teamID && p.Present {
			members = append(members, p)
		}
	}
	return members, nil
}

func (e *Eligibility) answered(ctx context.Context) (map[int]struct{}, error) {
	rows, err := e.participation.ListParticipation(ctx, e.eventID)
	if err != nil {
		log.Printf("quiz participation: %v", err)
		return nil, err
	}
	set := make(map[int]struct{}, len(rows))
	for _, row := range rows {
		if row.HasAnswered {
			set[row.ParticipantID] = struct{}{}
		}
	}
	return set, nil
}

func without(members []domain.Participant, excluded map[int]struct{}) []domain.Participant {
	out := make([]domain.Participant, 0, len(members))
	for _, p := range members {
		if _, ok := excluded[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func containsParticipant(list []domain.Participant, id int) bool {
	for _, p := range list {
		if p.ID == id {
			return true
		}
	}
	return false
}
