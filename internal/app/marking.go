package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"team-event-service/internal/domain"
)

// BoardEntry is one participant on a phone marking page.
type BoardEntry struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	TeamID    int        `json:"teamId"`
	OutAt     *time.Time `json:"outAt,omitempty"`
	Revocable bool       `json:"revocable"`
}

// Board is the marking page for one device.
type Board struct {
	SessionID string       `json:"sessionId"`
	Active    bool         `json:"active"`
	StillIn   []BoardEntry `json:"stillIn"`
	Out       []BoardEntry `json:"out"`
	Devices   int          `json:"devices"`
}

// MarkingService serves the phone marking pages. Every opened session is a
// freshly loaded OUT log, which is how a page reload is modelled.
type MarkingService struct {
	cfg     Settings
	store   Store
	viewers ViewerRegistry
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*ReversibleLog
}

func NewMarkingService(cfg Settings, store Store, viewers ViewerRegistry) *MarkingService {
	return NewMarkingServiceWithClock(cfg, store, viewers, time.Now)
}

// NewMarkingServiceWithClock allows deterministic timestamps in tests.
func NewMarkingServiceWithClock(cfg Settings, store Store, viewers ViewerRegistry, now func() time.Time) *MarkingService {
	return &MarkingService{
		cfg:      cfg,
		store:    store,
		viewers:  viewers,
		now:      now,
		sessions: make(map[string]*ReversibleLog),
	}
}

// OpenSession loads a new OUT log for a device and returns its board.
func (m *MarkingService) OpenSession(ctx context.Context) (Board, error) {
	outs := NewReversibleLogWithClock(m.store, m.cfg.EventID, domain.MarkOut, m.cfg.UndoWindow, m.cfg.SettlePeriod, m.now)
	if err := outs.Load(ctx); err != nil {
		return Board{}, err
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = outs
	m.mu.Unlock()
	return m.board(ctx, id, outs)
}

// CloseSession forgets a device session.
func (m *MarkingService) CloseSession(ctx context.Context, sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if m.viewers != nil {
		if err := m.viewers.Remove(ctx, m.cfg.EventID, sessionID); err != nil {
			log.Printf("remove viewer %s: %v", sessionID, err)
		}
	}
}

// Board refreshes the device's view with marks made elsewhere.
func (m *MarkingService) Board(ctx context.Context, sessionID string) (Board, error) {
	outs, err := m.session(sessionID)
	if err != nil {
		return Board{}, err
	}
	if err := outs.Sync(ctx); err != nil {
		return Board{}, err
	}
	return m.board(ctx, sessionID, outs)
}

// MarkOut records that a participant left the activity. Marking is only
// allowed while the activity is running.
func (m *MarkingService) MarkOut(ctx context.Context, sessionID string, participantID int) (bool, error) {
	outs, err := m.session(sessionID)
	if err != nil {
		return false, err
	}
	active, err := m.activityActive(ctx)
	if err != nil {
		return false, err
	}
	if !active {
		return false, domain.ErrActivityInactive
	}
	present, err := m.presentParticipants(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := present[participantID]; !ok {
		return false, fmt.Errorf("%w: participant %d is not present", domain.ErrInvariantViolation, participantID)
	}
	return outs.Record(ctx, participantID)
}

// UndoOut revokes an OUT mark made from this device inside the undo window.
func (m *MarkingService) UndoOut(ctx context.Context, sessionID string, participantID int) (bool, error) {
	outs, err := m.session(sessionID)
	if err != nil {
		return false, err
	}
	return outs.Revoke(ctx, participantID)
}

// ActivityActive reports whether OUT marks are currently accepted.
func (m *MarkingService) ActivityActive(ctx context.Context) bool {
	active, err := m.activityActive(ctx)
	if err != nil {
		log.Printf("activity state: %v", err)
		return false
	}
	return active
}

func (m *MarkingService) session(id string) (*ReversibleLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	outs, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return outs, nil
}

func (m *MarkingService) activityActive(ctx context.Context) (bool, error) {
	st, err := m.store.GetEventState(ctx, m.cfg.EventID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read activity state: %w", err)
	}
	return st.ActivityActive, nil
}

func (m *MarkingService) presentParticipants(ctx context.Context) (map[int]domain.Participant, error) {
	all, err := m.store.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	present := make(map[int]domain.Participant, len(all))
	for _, p := range all {
		if p.Present {
			present[p.ID] = p
		}
	}
	return present, nil
}

func (m *MarkingService) board(ctx context.Context, sessionID string, outs *ReversibleLog) (Board, error) {
	active, err := m.activityActive(ctx)
	if err != nil {
		return Board{}, err
	}
	present, err := m.presentParticipants(ctx)
	if err != nil {
		return Board{}, err
	}
	ids := make([]int, 0, len(present))
	for id := range present {
		ids = append(ids, id)
	}

	b := Board{SessionID: sessionID, Active: active, StillIn: []BoardEntry{}, Out: []BoardEntry{}}
	for _, e := range outs.Entries(ids) {
		p := present[e.SubjectID]
		entry := BoardEntry{ID: p.ID, Name: p.Name, TeamID: p.TeamID, OutAt: e.MarkedAt, Revocable: e.Revocable}
		if e.Marked {
			b.Out = append(b.Out, entry)
		} else {
			b.StillIn = append(b.StillIn, entry)
		}
	}

	if m.viewers != nil {
		if err := m.viewers.Touch(ctx, m.cfg.EventID, sessionID); err != nil {
			log.Printf("touch viewer %s: %v", sessionID, err)
		}
		if n, err := m.viewers.Count(ctx, m.cfg.EventID); err == nil {
			b.Devices = n
		}
	}
	return b, nil
}
