package domain

import "errors"

var (
	// ErrNotFound is an expected absence, e.g. no event_state row yet.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert collides with an existing key.
	ErrConflict = errors.New("record already exists")
	// ErrStoreUnavailable wraps network or backing store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvariantViolation marks an action the eligibility rules should have prevented.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrIllegalTransition is returned for an event the current phase does not accept.
	ErrIllegalTransition = errors.New("illegal phase transition")
	// ErrNoQuestionsLeft indicates the question bank has no unused questions.
	ErrNoQuestionsLeft = errors.New("no unused questions left")
	// ErrActivityWindowMissing indicates results were requested before the activity ran.
	ErrActivityWindowMissing = errors.New("activity time window missing")
	// ErrActivityInactive rejects OUT marks while the activity is not running.
	ErrActivityInactive = errors.New("activity is not active")
	// ErrAlreadyFinal rejects a second tie-break resolution.
	ErrAlreadyFinal = errors.New("results already final")
	// ErrNoTie is returned when a tie-break is requested without a rank-1 tie.
	ErrNoTie = errors.New("no tie at rank 1")
	// ErrSessionNotFound is returned for unknown marking device sessions.
	ErrSessionNotFound = errors.New("marking session not found")
)
