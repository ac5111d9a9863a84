package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/domain"
)

const DefaultSubject = "trivia.events"

// Relay carries broadcast events between instances over a NATS subject.
type Relay struct {
	conn    *nats.Conn
	subject string
	log     *zap.Logger
}

// Connect dials NATS and returns a relay on subject.
func Connect(url, subject string, logger *zap.Logger) (*Relay, error) {
	conn, err := nats.Connect(url, nats.Name("trivia-duel-service"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewRelay(conn, subject, logger), nil
}

func NewRelay(conn *nats.Conn, subject string, logger *zap.Logger) *Relay {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{conn: conn, subject: subject, log: logger}
}

func (r *Relay) BroadcastToAll(_ context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := r.conn.Publish(r.subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Run forwards events from the subject to sink until ctx is done.
// ready, if non-nil, is closed once the subscription is registered.
func (r *Relay) Run(ctx context.Context, sink app.Broadcaster, ready chan<- struct{}) error {
	msgs := make(chan *nats.Msg, 64)
	sub, err := r.conn.ChanSubscribe(r.subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.subject, err)
	}
	defer sub.Unsubscribe()
	if err := r.conn.Flush(); err != nil {
		return fmt.Errorf("flush subscription: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			event, err := decodeEvent(msg.Data)
			if err != nil {
				r.log.Warn("dropping malformed relay event", zap.Error(err))
				continue
			}
			_ = sink.BroadcastToAll(ctx, event)
		}
	}
}

func (r *Relay) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

func decodeEvent(data []byte) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.Event{}, err
	}
	if event.Name == "" {
		return domain.Event{}, fmt.Errorf("event without name")
	}
	return event, nil
}
