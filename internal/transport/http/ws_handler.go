package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/domain"
)

// EventSource hands out subscriptions to broadcast events.
type EventSource interface {
	Subscribe() (<-chan domain.Event, func())
}

type WSHandler struct {
	events   EventSource
	board    *app.LeaderboardService
	scores   *app.ScoreCoordinator
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(events EventSource, board *app.LeaderboardService, scores *app.ScoreCoordinator, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		events: events,
		board:  board,
		scores: scores,
		log:    logger,
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

type outboundMessage struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq,omitempty"`
	Payload any    `json:"payload"`
}

// ServeLeaderboard upgrades to a websocket, sends the current leaderboard and
// then streams LeaderboardUpdated events. With ?period= only that period's
// updates are forwarded. Clients may submit scores over the same socket.
func (h *WSHandler) ServeLeaderboard(w http.ResponseWriter, r *http.Request) {
	rawPeriod := r.URL.Query().Get("period")
	period, err := domain.ParsePeriod(rawPeriod)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Subscribe before the snapshot so no update between the two is lost.
	updates, cancel := h.events.Subscribe()
	defer cancel()

	lb, err := h.board.Snapshot(r.Context(), period)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}})
		h.log.Error("initial leaderboard failed", zap.Error(err))
		return
	}

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				if rawPeriod != "" && event.Scope != string(period) {
					continue
				}
				msg := outboundMessage{Type: event.Name, Seq: event.Seq, Payload: event.Payload}
				select {
				case send <- msg:
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

	reply := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	reply(outboundMessage{Type: "leaderboard", Payload: lb})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submitScore":
			var req scoreRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				reply(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid score payload"}})
				continue
			}
			result, err := applyScore(r.Context(), h.scores, req)
			if err != nil {
				msg := err.Error()
				if statusFor(err) == http.StatusInternalServerError {
					h.log.Error("ws score submission failed", zap.Error(err))
					msg = "internal error"
				}
				reply(outboundMessage{Type: "error", Payload: errorPayload{Message: msg}})
				continue
			}
			reply(outboundMessage{Type: "scoreAccepted", Payload: result})
		default:
			reply(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
