package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"team-event-service/internal/domain"
)

// LogEntry is one subject as shown on an attendance or marking list.
type LogEntry struct {
	SubjectID int        `json:"subjectId"`
	Marked    bool       `json:"marked"`
	MarkedAt  *time.Time `json:"markedAt,omitempty"`
	Revocable bool       `json:"revocable"`
}

// ReversibleLog is a per-client view over one mark ledger. A mark can be
// revoked while now - mark.CreatedAt <= window. Marks that already existed
// when the log was loaded stay locked until the settle period has passed, so
// a reload does not reopen an undo the client did not just perform.
type ReversibleLog struct {
	store   MarkStore
	eventID string
	kind    domain.MarkKind
	window  time.Duration
	settle  time.Duration
	now     func() time.Time

	mu        sync.Mutex
	loadedAt  time.Time
	marks     map[int]time.Time
	inherited map[int]struct{}
	foreign   map[int]struct{}
}

func NewReversibleLog(store MarkStore, eventID string, kind domain.MarkKind, window, settle time.Duration) *ReversibleLog {
	return NewReversibleLogWithClock(store, eventID, kind, window, settle, time.Now)
}

// NewReversibleLogWithClock allows deterministic timestamps in tests.
func NewReversibleLogWithClock(store MarkStore, eventID string, kind domain.MarkKind, window, settle time.Duration, now func() time.Time) *ReversibleLog {
	return &ReversibleLog{
		store:     store,
		eventID:   eventID,
		kind:      kind,
		window:    window,
		settle:    settle,
		now:       now,
		marks:     make(map[int]time.Time),
		inherited: make(map[int]struct{}),
		foreign:   make(map[int]struct{}),
	}
}

// Load replaces the local view with the stored marks and restarts the settle period.
func (l *ReversibleLog) Load(ctx context.Context) error {
	rows, err := l.store.ListMarks(ctx, l.eventID, l.kind)
	if err != nil {
		return fmt.Errorf("load %s marks: %w", l.kind, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadedAt = l.now()
	l.marks = make(map[int]time.Time, len(rows))
	l.inherited = make(map[int]struct{}, len(rows))
	l.foreign = make(map[int]struct{})
	for _, row := range rows {
		l.marks[row.SubjectID] = row.CreatedAt
		l.inherited[row.SubjectID] = struct{}{}
	}
	return nil
}

// Sync merges marks made or revoked by other clients since Load without
// restarting the settle period. Marks learned this way are never revocable here.
func (l *ReversibleLog) Sync(ctx context.Context) error {
	rows, err := l.store.ListMarks(ctx, l.eventID, l.kind)
	if err != nil {
		return fmt.Errorf("sync %s marks: %w", l.kind, err)
	}
	stored := make(map[int]time.Time, len(rows))
	for _, row := range rows {
		stored[row.SubjectID] = row.CreatedAt
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for id := range l.marks {
		if _, ok := stored[id]; !ok {
			delete(l.marks, id)
			delete(l.inherited, id)
			delete(l.foreign, id)
		}
	}
	for id, at := range stored {
		if _, ok := l.marks[id]; !ok {
			l.foreign[id] = struct{}{}
		}
		l.marks[id] = at
	}
	return nil
}

// Record marks subjectID. It is a no-op returning false when a live mark exists.
func (l *ReversibleLog) Record(ctx context.Context, subjectID int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.marks[subjectID]; ok {
		return false, nil
	}
	at := l.now()
	err := l.store.InsertMark(ctx, domain.Mark{EventID: l.eventID, SubjectID: subjectID, Kind: l.kind, CreatedAt: at})
	if errors.Is(err, domain.ErrConflict) {
		// Another client got there first.
		l.marks[subjectID] = at
		l.foreign[subjectID] = struct{}{}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("record %s mark: %w", l.kind, err)
	}
	l.marks[subjectID] = at
	return true, nil
}

// Revoke deletes the mark for subjectID when the undo window allows it.
// It silently returns false when there is nothing to revoke.
func (l *ReversibleLog) Revoke(ctx context.Context, subjectID int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.canRevokeLocked(subjectID, l.now()) {
		return false, nil
	}
	if err := l.store.DeleteMark(ctx, l.eventID, l.kind, subjectID); err != nil {
		return false, fmt.Errorf("revoke %s mark: %w", l.kind, err)
	}
	delete(l.marks, subjectID)
	delete(l.inherited, subjectID)
	return true, nil
}

// CanRevoke reports whether Revoke would currently succeed for subjectID.
func (l *ReversibleLog) CanRevoke(subjectID int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canRevokeLocked(subjectID, l.now())
}

func (l *ReversibleLog) canRevokeLocked(subjectID int, now time.Time) bool {
	at, ok := l.marks[subjectID]
	if !ok {
		return false
	}
	if _, ok := l.foreign[subjectID]; ok {
		return false
	}
	if _, old := l.inherited[subjectID]; old && now.Sub(l.loadedAt) < l.settle {
		return false
	}
	return now.Sub(at) <= l.window
}

// Marked reports whether subjectID currently has a mark and when it was made.
func (l *ReversibleLog) Marked(subjectID int) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.marks[subjectID]
	return at, ok
}

// Entries orders subjects for display: unmarked by ascending id, then marked
// with the most recent mark first.
func (l *ReversibleLog) Entries(subjects []int) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	unmarked := make([]LogEntry, 0, len(subjects))
	marked := make([]LogEntry, 0)
	for _, id := range subjects {
		at, ok := l.marks[id]
		if !ok {
			unmarked = append(unmarked, LogEntry{SubjectID: id})
			continue
		}
		markedAt := at
		marked = append(marked, LogEntry{
			SubjectID: id,
			Marked:    true,
			MarkedAt:  &markedAt,
			Revocable: l.canRevokeLocked(id, now),
		})
	}
	sort.Slice(unmarked, func(i, j int) bool { return unmarked[i].SubjectID < unmarked[j].SubjectID })
	sort.SliceStable(marked, func(i, j int) bool { return marked[i].MarkedAt.After(*marked[j].MarkedAt) })
	return append(unmarked, marked...)
}
