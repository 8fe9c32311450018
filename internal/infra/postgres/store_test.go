package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"team-event-service/internal/domain"
)

func TestMapErr(t *testing.T) {
	if err := mapErr("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := mapErr("op", sql.ErrNoRows); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	driverErr := errors.New("connection refused")
	err := mapErr("list results", driverErr)
	if !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, driverErr) {
		t.Fatalf("expected wrapped unavailable error, got %v", err)
	}
	if err := mapErr("op", context.Canceled); errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("cancellation must not look like an outage: %v", err)
	}
}

func TestAttemptRowKeepsTimeout(t *testing.T) {
	row := attemptRow{EventID: "ev", TeamID: 2, ParticipantID: 5, QuestionID: "q1", Points: -1}
	if a := row.toDomain(); a.Selected != nil || a.Points != -1 {
		t.Fatalf("unexpected attempt %+v", a)
	}
	selected := "C"
	row.SelectedOption = &selected
	if a := row.toDomain(); a.Selected == nil || *a.Selected != domain.OptionC {
		t.Fatalf("expected option C, got %+v", a.Selected)
	}
}
