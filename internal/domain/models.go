package domain

import "time"

// Participant is a roster entry; the roll number is both identity and sort key.
type Participant struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	TeamID  int    `json:"teamId"`
	Present bool   `json:"present"`
}

// TeamUsage counts how many times a team has answered a quiz question.
type TeamUsage struct {
	EventID string `json:"eventId"`
	TeamID  int    `json:"teamId"`
	Count   int    `json:"count"`
}

// OptionLabel identifies one of the four answer options.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
)

// OptionLabels lists labels in display order.
var OptionLabels = [4]OptionLabel{OptionA, OptionB, OptionC, OptionD}

// Valid reports whether the label is one of A-D.
func (l OptionLabel) Valid() bool {
	switch l {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// QuizQuestion is a four-option question presented at most once per event.
type QuizQuestion struct {
	ID      string      `json:"id" yaml:"id"`
	Text    string      `json:"text" yaml:"text"`
	Options [4]string   `json:"options" yaml:"options"`
	Correct OptionLabel `json:"correct" yaml:"correct"`
	Used    bool        `json:"used" yaml:"-"`
}

// Option returns the text behind a label.
func (q QuizQuestion) Option(label OptionLabel) string {
	for i, l := range OptionLabels {
		if l == label {
			return q.Options[i]
		}
	}
	return ""
}

// QuizAttempt is an immutable record of one representative answering one question.
// Selected is nil when the answer window ran out.
type QuizAttempt struct {
	EventID       string       `json:"eventId"`
	TeamID        int          `json:"teamId"`
	ParticipantID int          `json:"participantId"`
	QuestionID    string       `json:"questionId"`
	Selected      *OptionLabel `json:"selected"`
	Correct       bool         `json:"correct"`
	Points        int          `json:"points"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// QuizParticipation tracks whether a participant already answered in an event.
type QuizParticipation struct {
	EventID       string `json:"eventId"`
	ParticipantID int    `json:"participantId"`
	HasAnswered   bool   `json:"hasAnswered"`
}

// MarkKind names the reversible ledgers kept per event.
type MarkKind string

const (
	// MarkAbsent is an attendance absence.
	MarkAbsent MarkKind = "ABSENT"
	// MarkOut is an activity OUT mark.
	MarkOut MarkKind = "OUT"
)

// OutPenalty is the point delta carried by an OUT mark.
const OutPenalty = -1

// Mark is a timestamped, revocable ledger entry for one subject.
type Mark struct {
	EventID   string    `json:"eventId"`
	SubjectID int       `json:"subjectId"`
	Kind      MarkKind  `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventState is the durable source of truth for the activity timer.
type EventState struct {
	EventID        string     `json:"eventId"`
	ActivityActive bool       `json:"activityActive"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
	Locked         bool       `json:"locked"`
}

// EventResult is a team's stored total and rank.
type EventResult struct {
	EventID     string `json:"eventId"`
	TeamID      int    `json:"teamId"`
	TotalPoints int    `json:"totalPoints"`
	Rank        int    `json:"rank"`
	IsFinal     bool   `json:"isFinal"`
}
