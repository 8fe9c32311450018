package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"team-event-service/internal/domain"
)

// Store is an in-memory implementation of app.Store for tests and demos.
type Store struct {
	mu            sync.Mutex
	participants  map[int]domain.Participant
	questions     []domain.QuizQuestion
	usage         map[usageKey]int
	attempts      []domain.QuizAttempt
	participation map[usageKey]bool
	marks         map[markKey]domain.Mark
	states        map[string]domain.EventState
	results       map[usageKey]domain.EventResult
}

type usageKey struct {
	eventID string
	id      int
}

type markKey struct {
	eventID   string
	kind      domain.MarkKind
	subjectID int
}

func NewStore() *Store {
	return &Store{
		participants:  make(map[int]domain.Participant),
		usage:         make(map[usageKey]int),
		participation: make(map[usageKey]bool),
		marks:         make(map[markKey]domain.Mark),
		states:        make(map[string]domain.EventState),
		results:       make(map[usageKey]domain.EventResult),
	}
}

// InsertParticipants seeds or replaces roster rows.
func (s *Store) InsertParticipants(_ context.Context, participants []domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range participants {
		s.participants[p.ID] = p
	}
	return nil
}

// InsertQuestions appends questions to the bank, replacing rows with the same id.
func (s *Store) InsertQuestions(_ context.Context, questions []domain.QuizQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		replaced := false
		for i := range s.questions {
			if s.questions[i].ID == q.ID {
				s.questions[i] = q
				replaced = true
				break
			}
		}
		if !replaced {
			s.questions = append(s.questions, q)
		}
	}
	return nil
}

func (s *Store) ListParticipants(_ context.Context) ([]domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetPresent(_ context.Context, participantID int, present bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return fmt.Errorf("participant %d: %w", participantID, domain.ErrNotFound)
	}
	p.Present = present
	s.participants[participantID] = p
	return nil
}

func (s *Store) ListUsage(_ context.Context, eventID string) ([]domain.TeamUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TeamUsage, 0, len(s.usage))
	for k, count := range s.usage {
		if k.eventID == eventID {
			out = append(out, domain.TeamUsage{EventID: eventID, TeamID: k.id, Count: count})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out, nil
}

func (s *Store) IncrementUsage(_ context.Context, eventID string, teamID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := usageKey{eventID: eventID, id: teamID}
	s.usage[k]++
	return s.usage[k], nil
}

func (s *Store) ClaimQuestion(_ context.Context) (domain.QuizQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.questions {
		if !s.questions[i].Used {
			s.questions[i].Used = true
			return s.questions[i], nil
		}
	}
	return domain.QuizQuestion{}, domain.ErrNoQuestionsLeft
}

func (s *Store) InsertAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *Store) ListAttempts(_ context.Context, eventID string) ([]domain.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.QuizAttempt
	for _, a := range s.attempts {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListParticipation(_ context.Context, eventID string) ([]domain.QuizParticipation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.QuizParticipation
	for k, answered := range s.participation {
		if k.eventID == eventID {
			out = append(out, domain.QuizParticipation{EventID: eventID, ParticipantID: k.id, HasAnswered: answered})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}

func (s *Store) MarkAnswered(_ context.Context, eventID string, participantID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participation[usageKey{eventID: eventID, id: participantID}] = true
	return nil
}

func (s *Store) ListMarks(_ context.Context, eventID string, kind domain.MarkKind) ([]domain.Mark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Mark
	for k, m := range s.marks {
		if k.eventID == eventID && k.kind == kind {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

func (s *Store) InsertMark(_ context.Context, mark domain.Mark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := markKey{eventID: mark.EventID, kind: mark.Kind, subjectID: mark.SubjectID}
	if _, ok := s.marks[k]; ok {
		return domain.ErrConflict
	}
	s.marks[k] = mark
	return nil
}

func (s *Store) DeleteMark(_ context.Context, eventID string, kind domain.MarkKind, subjectID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.marks, markKey{eventID: eventID, kind: kind, subjectID: subjectID})
	return nil
}

func (s *Store) GetEventState(_ context.Context, eventID string) (domain.EventState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[eventID]
	if !ok {
		return domain.EventState{}, domain.ErrNotFound
	}
	return st, nil
}

func (s *Store) StartActivity(_ context.Context, eventID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[eventID]
	st.EventID = eventID
	st.ActivityActive = true
	st.Locked = false
	st.StartedAt = &at
	st.EndedAt = nil
	s.states[eventID] = st
	return nil
}

func (s *Store) StopActivity(_ context.Context, eventID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[eventID]
	if !ok || !st.ActivityActive {
		return false, nil
	}
	st.ActivityActive = false
	st.Locked = true
	st.EndedAt = &at
	s.states[eventID] = st
	return true, nil
}

// PutEventState overwrites the state row; tests use it to simulate reloads.
func (s *Store) PutEventState(st domain.EventState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.EventID] = st
}

func (s *Store) ListResults(_ context.Context, eventID string) ([]domain.EventResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.EventResult
	for k, r := range s.results {
		if k.eventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out, nil
}

func (s *Store) GetResult(_ context.Context, eventID string, teamID int) (domain.EventResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[usageKey{eventID: eventID, id: teamID}]
	if !ok {
		return domain.EventResult{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) UpsertResults(_ context.Context, results []domain.EventResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		s.results[usageKey{eventID: r.EventID, id: r.TeamID}] = r
	}
	return nil
}

// FinalizeResults writes totals and ranks and marks the event's rows final.
func (s *Store) FinalizeResults(_ context.Context, eventID string, results []domain.EventResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, r := range s.results {
		if k.eventID == eventID && r.IsFinal {
			return domain.ErrAlreadyFinal
		}
	}
	for _, r := range results {
		if _, ok := s.results[usageKey{eventID: eventID, id: r.TeamID}]; !ok {
			return fmt.Errorf("result for team %d: %w", r.TeamID, domain.ErrNotFound)
		}
	}
	for _, r := range results {
		k := usageKey{eventID: eventID, id: r.TeamID}
		row := s.results[k]
		row.TotalPoints = r.TotalPoints
		row.Rank = r.Rank
		s.results[k] = row
	}
	for k, r := range s.results {
		if k.eventID == eventID {
			r.IsFinal = true
			s.results[k] = r
		}
	}
	return nil
}
