package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"team-event-service/internal/app"
	"team-event-service/internal/domain"
)

// ConsoleHandler drives the projector flow over a websocket. Each inbound
// command gets a reply of the same type followed by the refreshed state.
// Nothing is sent unprompted; the console polls with "state".
type ConsoleHandler struct {
	controller *app.EventController
	upgrader   websocket.Upgrader
}

func NewConsoleHandler(controller *app.EventController) *ConsoleHandler {
	return &ConsoleHandler{
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type participantPayload struct {
	ParticipantID int `json:"participantId"`
}

type teamPayload struct {
	TeamID int `json:"teamId"`
}

type answerPayload struct {
	Option *domain.OptionLabel `json:"option"`
}

type changedResult struct {
	Changed bool `json:"changed"`
}

type drawResult struct {
	TeamID       int  `json:"teamId,omitempty"`
	QuizComplete bool `json:"quizComplete"`
}

type revealOptionsResult struct {
	Deadline time.Time `json:"deadline"`
}

type revealNextResult struct {
	Group app.RankGroup `json:"group"`
	Done  bool          `json:"done"`
}

type eliminateResult struct {
	Winner *int `json:"winner,omitempty"`
}

type commandError struct {
	Command string `json:"command"`
	errorPayload
}

// errUnsupported is returned for unknown command types.
var errUnsupported = errors.New("unsupported message type")

// ServeWS upgrades the request and serves console commands until the client leaves.
func (h *ConsoleHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "state", Payload: h.controller.Snapshot()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		result, err := h.dispatch(r.Context(), inbound)
		if err != nil {
			_, code := classify(err)
			send <- outboundMessage[any]{Type: "error", Payload: commandError{
				Command:      inbound.Type,
				errorPayload: errorPayload{Code: code, Message: err.Error()},
			}}
			continue
		}
		if result != nil {
			send <- outboundMessage[any]{Type: inbound.Type, Payload: result}
		}
		send <- outboundMessage[any]{Type: "state", Payload: h.controller.Snapshot()}
	}

	close(send)
	<-writerDone
}

func (h *ConsoleHandler) dispatch(ctx context.Context, in inboundMessage) (any, error) {
	c := h.controller
	switch in.Type {
	case "state":
		return nil, nil
	case "roster":
		return c.Roster(ctx)
	case "representatives":
		reps, err := c.Representatives(ctx)
		if reps == nil && err == nil {
			reps = []domain.Participant{}
		}
		return reps, err
	case "markAbsent", "restorePresent":
		var p participantPayload
		if err := decode(in, &p); err != nil {
			return nil, err
		}
		fn := c.MarkAbsent
		if in.Type == "restorePresent" {
			fn = c.RestorePresent
		}
		changed, err := fn(ctx, p.ParticipantID)
		if err != nil {
			return nil, err
		}
		return changedResult{Changed: changed}, nil
	case "lockAttendance":
		return nil, c.LockAttendance(ctx)
	case "acknowledgeRules":
		return nil, c.AcknowledgeRules(ctx)
	case "drawTeam":
		team, complete, err := c.DrawTeam(ctx)
		if err != nil {
			return nil, err
		}
		return drawResult{TeamID: team, QuizComplete: complete}, nil
	case "confirmTeam":
		return nil, c.ConfirmTeam(ctx)
	case "chooseRepresentative":
		var p participantPayload
		if err := decode(in, &p); err != nil {
			return nil, err
		}
		return c.ChooseRepresentative(ctx, p.ParticipantID)
	case "revealOptions":
		deadline, err := c.RevealOptions(ctx)
		if err != nil {
			return nil, err
		}
		return revealOptionsResult{Deadline: deadline}, nil
	case "submitAnswer":
		var p answerPayload
		if err := decode(in, &p); err != nil {
			return nil, err
		}
		return c.SubmitAnswer(ctx, p.Option)
	case "startActivity":
		return nil, c.StartActivity(ctx)
	case "stopActivity":
		return nil, c.StopActivity(ctx)
	case "finishActivity":
		return c.FinishActivity(ctx)
	case "computeResults":
		return c.ComputeResults(ctx)
	case "revealNext":
		g, ok, err := c.RevealNext(ctx)
		if err != nil {
			return nil, err
		}
		return revealNextResult{Group: g, Done: !ok}, nil
	case "finishResults":
		return nil, c.FinishResults(ctx)
	case "chooseTieBreakRepresentative":
		var p participantPayload
		if err := decode(in, &p); err != nil {
			return nil, err
		}
		return nil, c.ChooseTieBreakRepresentative(ctx, p.ParticipantID)
	case "eliminate":
		var p teamPayload
		if err := decode(in, &p); err != nil {
			return nil, err
		}
		winner, err := c.Eliminate(ctx, p.TeamID)
		if err != nil {
			return nil, err
		}
		return eliminateResult{Winner: winner}, nil
	case "resolveTieBreak":
		return nil, c.ResolveTieBreak(ctx)
	}
	return nil, errUnsupported
}

func decode(in inboundMessage, v any) error {
	if len(in.Payload) == 0 {
		return fmt.Errorf("%w: %s needs a payload", domain.ErrInvariantViolation, in.Type)
	}
	if err := json.Unmarshal(in.Payload, v); err != nil {
		return fmt.Errorf("%w: invalid %s payload: %v", domain.ErrInvariantViolation, in.Type, err)
	}
	return nil
}
