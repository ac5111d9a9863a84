package app

import (
	"context"
	"sync"

	"trivia-duel-service/internal/domain"
)

// Hub is the in-process broadcast point for connected observers.
type Hub struct {
	mu          sync.Mutex
	lastSeq     map[string]uint64
	subscribers map[chan domain.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		lastSeq:     make(map[string]uint64),
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast events.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// BroadcastToAll delivers the event to every subscriber. Events whose sequence
// is not newer than the last one delivered on the same stream are dropped, so
// each subscriber sees a stream's sequences in increasing order.
func (h *Hub) BroadcastToAll(_ context.Context, event domain.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if event.Seq != 0 {
		stream := event.Stream()
		if event.Seq <= h.lastSeq[stream] {
			return nil
		}
		h.lastSeq[stream] = event.Seq
	}

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// slow subscriber: discard its oldest pending event to make room
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

// Subscribers reports the number of connected observers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
