package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"kids-activity-service/internal/app"
	"kids-activity-service/internal/domain"
	"kids-activity-service/internal/platform/logger"
)

type PlayHandler struct {
	service  *app.PlayService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewPlayHandler(service *app.PlayService, log *logger.Logger) *PlayHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &PlayHandler{
		service: service,
		log:     log,
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

type selectPayload struct {
	ChoiceID int `json:"choiceId"`
}

type answerPayload struct {
	Value bool `json:"value"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and runs one playthrough per connection.
func (h *PlayHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activityID := q.Get("activityId")
	if activityID == "" {
		http.Error(w, "missing activityId", http.StatusBadRequest)
		return
	}
	nav, err := navFromQuery(q.Get)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	started, err := h.service.Start(ctx, activityID, nav)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	defer h.service.End(ctx, started.PlaythroughID)

	updates, cancel, err := h.service.Subscribe(ctx, started.PlaythroughID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "playthrough", started.PlaythroughID, "error", err)
				return
			}
		}
	}()

	deliver(send, writerDone, outboundMessage[any]{Type: "started", Payload: started})

	// timer-driven transitions only reach the client through this subscription
	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: view}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !deliver(send, writerDone, h.dispatch(r, started.PlaythroughID, inbound)) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *PlayHandler) dispatch(r *http.Request, playthroughID string, in inboundMessage) outboundMessage[any] {
	ctx := r.Context()
	var (
		move app.Move
		err  error
	)
	switch in.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return errorMessage(errorPayload{Message: "invalid select payload"})
		}
		move, err = h.service.Select(ctx, playthroughID, payload.ChoiceID)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return errorMessage(errorPayload{Message: "invalid answer payload"})
		}
		move, err = h.service.Answer(ctx, playthroughID, payload.Value)
	case "next":
		move, err = h.service.Next(ctx, playthroughID)
	case "retry":
		view, err := h.service.Retry(ctx, playthroughID)
		if err != nil {
			return errorMessage(toErrorPayload(err))
		}
		return outboundMessage[any]{Type: "state", Payload: view}
	default:
		return errorMessage(errorPayload{Message: "unsupported message type"})
	}
	if err != nil {
		return errorMessage(toErrorPayload(err))
	}
	return outboundMessage[any]{Type: "outcome", Payload: move}
}

// deliver queues msg for the writer. It reports false once the writer has
// stopped, so callers never block on a dead connection.
func deliver(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func errorMessage(p errorPayload) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: p}
}

// toErrorPayload maps domain errors to stable codes clients can branch on.
func toErrorPayload(err error) errorPayload {
	p := errorPayload{Message: err.Error()}
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		p.Code = "activity_not_found"
	case errors.Is(err, domain.ErrInvalidActivity):
		p.Code = "invalid_activity"
	case errors.Is(err, domain.ErrPlaythroughNotFound):
		p.Code = "playthrough_not_found"
	case errors.Is(err, domain.ErrChoiceNotFound):
		p.Code = "choice_not_found"
	case errors.Is(err, domain.ErrWrongItemKind):
		p.Code = "wrong_item_kind"
	case errors.Is(err, domain.ErrNoSelection):
		p.Code = "no_selection"
	case errors.Is(err, domain.ErrNotEvaluated):
		p.Code = "not_evaluated"
	case errors.Is(err, domain.ErrNotCompleted):
		p.Code = "not_completed"
	case errors.Is(err, domain.ErrRunnerClosed):
		p.Code = "closed"
	}
	return p
}

// navFromQuery reads the optional navigation overrides.
func navFromQuery(get func(string) string) (domain.NavState, error) {
	nav := domain.NavState{
		NextGamePath: get("nextGamePath"),
		NextGameID:   get("nextGameId"),
	}
	for _, f := range []struct {
		key string
		dst *int
	}{
		{"coinsPerLevel", &nav.CoinsPerLevel},
		{"totalCoins", &nav.TotalCoins},
		{"totalXp", &nav.TotalXP},
	} {
		raw := get(f.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return domain.NavState{}, errors.New("invalid " + f.key)
		}
		*f.dst = n
	}
	return nav, nil
}

// Routes mounts the play endpoints and a health probe.
func Routes(h *PlayHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", h.ServeWS)
	return mux
}
