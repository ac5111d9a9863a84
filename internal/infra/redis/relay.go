package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/domain"
)

const (
	DefaultChannel = "trivia:events"
	sequenceKey    = "trivia:events:seq"
)

// Sequencer issues broadcast sequence numbers shared by every instance.
type Sequencer struct {
	client *redis.Client
}

func NewSequencer(client *redis.Client) *Sequencer {
	return &Sequencer{client: client}
}

func (s *Sequencer) Next(ctx context.Context) (uint64, error) {
	n, err := s.client.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// Relay carries broadcast events between instances over Redis pub/sub.
// Publishing goes to Redis only; Run feeds every received event, including
// this instance's own, into the local sink.
type Relay struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

func NewRelay(client *redis.Client, channel string, logger *zap.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{client: client, channel: channel, log: logger}
}

func (r *Relay) BroadcastToAll(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Run subscribes to the channel and forwards events to sink until ctx is done.
// ready, if non-nil, is closed once the subscription is confirmed.
func (r *Relay) Run(ctx context.Context, sink app.Broadcaster, ready chan<- struct{}) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil || event.Name == "" {
				r.log.Warn("dropping malformed relay event", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			_ = sink.BroadcastToAll(ctx, event)
		}
	}
}
