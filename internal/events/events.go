// Package events delivers change notifications for store collections to
// in-process subscribers.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"fluxo/internal/store"
)

type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
	Deleted Action = "deleted"
)

// Change describes a committed write. IDs lists the affected documents.
type Change struct {
	Collection store.Collection `json:"collection"`
	Action     Action           `json:"action"`
	IDs        []string         `json:"ids"`
	At         time.Time        `json:"at"`
}

// Publisher is notified after a write has been committed.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Filter selects the collections a subscriber wants. Empty means all.
type Filter []store.Collection

func (f Filter) match(c store.Collection) bool {
	if len(f) == 0 {
		return true
	}
	for _, x := range f {
		if x == c {
			return true
		}
	}
	return false
}

// Subscription receives matching changes on C until Cancel is called.
// Slow subscribers drop changes rather than block publishers.
type Subscription struct {
	C      <-chan Change
	ch     chan Change
	filter Filter
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) Cancel() {
	s.once.Do(func() { s.hub.remove(s) })
}

type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: map[*Subscription]struct{}{}, buffer: buffer}
}

func (h *Hub) Subscribe(f Filter) *Subscription {
	ch := make(chan Change, h.buffer)
	s := &Subscription{C: ch, ch: ch, filter: f, hub: h}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Publish never fails; it implements Publisher.
func (h *Hub) Publish(_ context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if !s.filter.match(c.Collection) {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, c Change) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every change.
type Nop struct{}

func (Nop) Publish(context.Context, Change) error { return nil }
