// Package events fans notifications out to live subscribers and, when
// configured, to a Kafka topic.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/erazemk/storekeeper/internal/model"
)

// Event is a single pushed notification.
type Event struct {
	Type         string              `json:"type"`
	Notification *model.Notification `json:"notification"`
}

// EventNotification is the type of events carrying a new notification.
const EventNotification = "notification"

// NewNotificationEvent wraps a notification in an event.
func NewNotificationEvent(n *model.Notification) Event {
	return Event{Type: EventNotification, Notification: n}
}

// Publisher delivers events. The key groups related events, e.g. by item.
type Publisher interface {
	Publish(ctx context.Context, key string, ev Event) error
}

// Publishers delivers to each publisher in turn and joins their errors.
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(ctx context.Context, key string, ev Event) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, key, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Hub is an in-process publish/subscribe point. It is safe for concurrent
// use. A subscriber that falls behind loses events instead of blocking
// publishers.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// function unsubscribes and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Publish implements Publisher. It never blocks.
func (h *Hub) Publish(_ context.Context, _ string, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	h.closed = true
}
