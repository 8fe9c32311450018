package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"team-event-service/internal/domain"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps domain errors to an HTTP status and a stable client code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errUnsupported):
		return http.StatusBadRequest, "unsupported"
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusConflict, "illegal_transition"
	case errors.Is(err, domain.ErrActivityInactive):
		return http.StatusConflict, "activity_inactive"
	case errors.Is(err, domain.ErrNoQuestionsLeft):
		return http.StatusConflict, "no_questions_left"
	case errors.Is(err, domain.ErrActivityWindowMissing):
		return http.StatusConflict, "activity_window_missing"
	case errors.Is(err, domain.ErrAlreadyFinal), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrInvariantViolation), errors.Is(err, domain.ErrNoTie):
		return http.StatusUnprocessableEntity, "rejected"
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{Code: code, Message: err.Error()})
}
