package app

import (
	"fmt"

	"team-event-service/internal/domain"
)

// Event is an operator- or engine-driven input to the phase machine.
type Event int

const (
	EventAttendanceLocked Event = iota
	EventRulesAcknowledged
	EventTeamChosen
	EventRepresentativeChosen
	EventQuizContinues
	EventQuizExhausted
	EventActivityFinished
	EventNoTie
	EventRankOneTie
	EventRepresentativesReady
	EventWinnerDeclared
)

var eventNames = [...]string{
	EventAttendanceLocked:     "attendance_locked",
	EventRulesAcknowledged:    "rules_acknowledged",
	EventTeamChosen:           "team_chosen",
	EventRepresentativeChosen: "representative_chosen",
	EventQuizContinues:        "quiz_continues",
	EventQuizExhausted:        "quiz_exhausted",
	EventActivityFinished:     "activity_finished",
	EventNoTie:                "no_tie",
	EventRankOneTie:           "rank_one_tie",
	EventRepresentativesReady: "representatives_ready",
	EventWinnerDeclared:       "winner_declared",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return fmt.Sprintf("event(%d)", int(e))
	}
	return eventNames[e]
}

// transitions is the complete table of legal moves.
var transitions = map[domain.Phase]map[Event]domain.Phase{
	domain.PhaseAttendance: {
		EventAttendanceLocked: domain.PhaseQuizRules,
	},
	domain.PhaseQuizRules: {
		EventRulesAcknowledged: domain.PhaseQuizTeamSelect,
	},
	domain.PhaseQuizTeamSelect: {
		EventTeamChosen:    domain.PhaseQuizRepresentativeSelect,
		EventQuizExhausted: domain.PhaseActivityRules,
	},
	domain.PhaseQuizRepresentativeSelect: {
		EventRepresentativeChosen: domain.PhaseQuiz,
	},
	domain.PhaseQuiz: {
		EventQuizContinues: domain.PhaseQuizTeamSelect,
		EventQuizExhausted: domain.PhaseActivityRules,
	},
	domain.PhaseActivityRules: {
		EventRulesAcknowledged: domain.PhaseActivityMaster,
	},
	domain.PhaseActivityMaster: {
		EventActivityFinished: domain.PhaseResults,
	},
	domain.PhaseResults: {
		EventNoTie:      domain.PhaseComplete,
		EventRankOneTie: domain.PhaseTieBreakerRules,
	},
	domain.PhaseTieBreakerRules: {
		EventRulesAcknowledged: domain.PhaseTieBreakerRepresentativeSelect,
	},
	domain.PhaseTieBreakerRepresentativeSelect: {
		EventRepresentativesReady: domain.PhaseTieBreakerChallenge,
	},
	domain.PhaseTieBreakerChallenge: {
		EventWinnerDeclared: domain.PhaseComplete,
	},
}

// Transition returns the phase reached from p on ev.
func Transition(p domain.Phase, ev Event) (domain.Phase, error) {
	if next, ok := transitions[p][ev]; ok {
		return next, nil
	}
	return p, fmt.Errorf("%w: %s on %s", domain.ErrIllegalTransition, ev, p)
}

// Selection is the in-memory context some phases depend on.
type Selection struct {
	Team           *int
	Representative *int
	TiedTeams      []int
}

// Guard corrects a phase that cannot be shown with the current selection,
// which happens after a reload drops the in-memory state.
func Guard(p domain.Phase, sel Selection) domain.Phase {
	switch p {
	case domain.PhaseQuizRepresentativeSelect:
		if sel.Team == nil {
			return domain.PhaseQuizTeamSelect
		}
	case domain.PhaseQuiz:
		if sel.Team == nil || sel.Representative == nil {
			return domain.PhaseQuizTeamSelect
		}
	case domain.PhaseTieBreakerRepresentativeSelect, domain.PhaseTieBreakerChallenge:
		if len(sel.TiedTeams) < 2 {
			return domain.PhaseTieBreakerRules
		}
	}
	return p
}

// Markers are the persisted facts a reloaded controller recovers from.
type Markers struct {
	State        *domain.EventState
	UsageRows    int
	QuizComplete bool
	Results      []domain.EventResult
}

// RecoverPhase derives the phase to resume at from persisted markers alone.
func RecoverPhase(m Markers) domain.Phase {
	if len(m.Results) > 0 {
		final := true
		for _, r := range m.Results {
			if !r.IsFinal {
				final = false
				break
			}
		}
		if final {
			return domain.PhaseComplete
		}
		if len(RankOneTie(GroupByRank(standingsFromResults(m.Results)))) > 1 {
			return domain.PhaseTieBreakerRules
		}
		return domain.PhaseResults
	}
	if m.State != nil && (m.State.ActivityActive || m.State.EndedAt != nil) {
		return domain.PhaseActivityMaster
	}
	if m.QuizComplete {
		return domain.PhaseActivityRules
	}
	if m.UsageRows > 0 {
		return domain.PhaseQuizTeamSelect
	}
	return domain.PhaseAttendance
}
