package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"team-event-service/internal/app"
	"team-event-service/internal/domain"
)

// APIHandler serves the polling views: projector state, activity timer,
// leaderboard and the phone marking pages.
type APIHandler struct {
	eventID    string
	controller *app.EventController
	marking    *app.MarkingService
	cache      app.ResultCache
}

func NewAPIHandler(eventID string, controller *app.EventController, marking *app.MarkingService, cache app.ResultCache) *APIHandler {
	return &APIHandler{eventID: eventID, controller: controller, marking: marking, cache: cache}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", h.state)
	mux.HandleFunc("GET /api/activity", h.activity)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
	mux.HandleFunc("POST /api/marking/sessions", h.openSession)
	mux.HandleFunc("GET /api/marking/sessions/{session}", h.board)
	mux.HandleFunc("DELETE /api/marking/sessions/{session}", h.closeSession)
	mux.HandleFunc("POST /api/marking/sessions/{session}/out/{participant}", h.markOut)
	mux.HandleFunc("DELETE /api/marking/sessions/{session}/out/{participant}", h.undoOut)
}

type leaderboardResponse struct {
	EventID string               `json:"eventId"`
	Final   bool                 `json:"final"`
	Results []domain.EventResult `json:"results"`
}

type markResponse struct {
	Changed bool      `json:"changed"`
	Board   app.Board `json:"board"`
}

func (h *APIHandler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *APIHandler) activity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Activity())
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.cache.Leaderboard(r.Context(), h.eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	final := len(rows) > 0
	for _, row := range rows {
		final = final && row.IsFinal
	}
	if rows == nil {
		rows = []domain.EventResult{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{EventID: h.eventID, Final: final, Results: rows})
}

func (h *APIHandler) openSession(w http.ResponseWriter, r *http.Request) {
	board, err := h.marking.OpenSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, board)
}

func (h *APIHandler) board(w http.ResponseWriter, r *http.Request) {
	board, err := h.marking.Board(r.Context(), r.PathValue("session"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *APIHandler) closeSession(w http.ResponseWriter, r *http.Request) {
	h.marking.CloseSession(r.Context(), r.PathValue("session"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) markOut(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, h.marking.MarkOut)
}

func (h *APIHandler) undoOut(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, h.marking.UndoOut)
}

type markFunc func(ctx context.Context, sessionID string, participantID int) (bool, error)

func (h *APIHandler) mark(w http.ResponseWriter, r *http.Request, fn markFunc) {
	session := r.PathValue("session")
	participant, err := strconv.Atoi(r.PathValue("participant"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Code: "bad_request", Message: fmt.Sprintf("invalid participant %q", r.PathValue("participant"))})
		return
	}
	changed, err := fn(r.Context(), session, participant)
	if err != nil {
		writeError(w, err)
		return
	}
	board, err := h.marking.Board(r.Context(), session)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markResponse{Changed: changed, Board: board})
}
