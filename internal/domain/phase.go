package domain

import "fmt"

// Phase is the screen the projector flow is currently on.
type Phase int

const (
	PhaseAttendance Phase = iota
	PhaseQuizRules
	PhaseQuizTeamSelect
	PhaseQuizRepresentativeSelect
	PhaseQuiz
	PhaseActivityRules
	PhaseActivityMaster
	PhaseResults
	PhaseTieBreakerRules
	PhaseTieBreakerRepresentativeSelect
	PhaseTieBreakerChallenge
	PhaseComplete
)

var phaseNames = [...]string{
	PhaseAttendance:                     "attendance",
	PhaseQuizRules:                      "quiz_rules",
	PhaseQuizTeamSelect:                 "quiz_team",
	PhaseQuizRepresentativeSelect:       "quiz_representative",
	PhaseQuiz:                           "quiz",
	PhaseActivityRules:                  "activity_rules",
	PhaseActivityMaster:                 "activity_master",
	PhaseResults:                        "results",
	PhaseTieBreakerRules:                "tie_breaker_rules",
	PhaseTieBreakerRepresentativeSelect: "tie_breaker_representative",
	PhaseTieBreakerChallenge:            "tie_breaker_challenge",
	PhaseComplete:                       "complete",
}

// Phases lists every phase in flow order.
func Phases() []Phase {
	out := make([]Phase, 0, len(phaseNames))
	for p := range phaseNames {
		out = append(out, Phase(p))
	}
	return out
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText renders the phase by name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
