package broadcast

import (
	"context"
	"sync"

	"deskhub/pkg/logger"
	"deskhub/pkg/model"
)

// Subscriber receives every published event on a buffered channel. Slow
// subscribers lose events rather than stall the publisher; clients needing a
// complete picture re-fetch state instead of replaying the stream.
type Subscriber struct {
	ch chan model.BookingChanged
}

// Events returns the subscriber's receive channel. It is closed when the
// subscriber is removed or the hub shuts down.
func (s *Subscriber) Events() <-chan model.BookingChanged {
	return s.ch
}

// Hub fans out booking change events to in-process subscribers. There is no
// central filtering: every subscriber sees every event and filters locally.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	buffer      int
	closed      bool
	log         *logger.Logger
}

func NewHub(buffer int, log *logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		buffer:      buffer,
		log:         log,
	}
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan model.BookingChanged, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		return sub
	}

	h.subscribers[sub] = struct{}{}
	h.log.Debug("Subscriber registered", "subscribers", len(h.subscribers))
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub]; !ok {
		return
	}

	delete(h.subscribers, sub)
	close(sub.ch)
	h.log.Debug("Subscriber removed", "subscribers", len(h.subscribers))
}

// Publish delivers the event to every subscriber without blocking. A
// subscriber whose buffer is full misses the event.
func (h *Hub) Publish(ctx context.Context, event model.BookingChanged) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil
	}

	for sub := range h.subscribers {
		select {
		case sub.ch <- event:
		default:
			h.log.Warn("Subscriber buffer full, dropping event",
				"event_id", event.EventID,
				"resource_id", event.ResourceID,
			)
		}
	}

	return nil
}

// Close removes all subscribers and closes their channels. Publish becomes a
// no-op afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true
	for sub := range h.subscribers {
		close(sub.ch)
	}
	h.subscribers = make(map[*Subscriber]struct{})
	h.log.Info("Broadcast hub closed")
}
