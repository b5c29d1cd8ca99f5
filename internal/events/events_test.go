package events

import (
	"context"
	"errors"
	"testing"

	"fluxo/internal/store"
)

func TestHubDeliversMatchingChanges(t *testing.T) {
	h := NewHub(4)
	all := h.Subscribe(nil)
	entries := h.Subscribe(Filter{store.Entries})
	defer all.Cancel()
	defer entries.Cancel()

	ctx := context.Background()
	_ = h.Publish(ctx, Change{Collection: store.Accounts, Action: Deleted, IDs: []string{"a"}})
	_ = h.Publish(ctx, Change{Collection: store.Entries, Action: Created, IDs: []string{"e"}})

	if got := len(all.C); got != 2 {
		t.Fatalf("unfiltered subscriber got %d changes, want 2", got)
	}
	if got := len(entries.C); got != 1 {
		t.Fatalf("filtered subscriber got %d changes, want 1", got)
	}
	c := <-entries.C
	if c.Collection != store.Entries || c.At.IsZero() {
		t.Fatalf("unexpected change %+v", c)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub(1)
	s := h.Subscribe(nil)
	s.Cancel()
	s.Cancel()

	if _, ok := <-s.C; ok {
		t.Fatal("channel should be closed after cancel")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", h.Subscribers())
	}
	// publishing after cancel must not panic
	_ = h.Publish(context.Background(), Change{Collection: store.Entries})
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(1)
	s := h.Subscribe(nil)
	defer s.Cancel()
	for i := 0; i < 10; i++ {
		_ = h.Publish(context.Background(), Change{Collection: store.Entries})
	}
	if len(s.C) != 1 {
		t.Fatalf("buffer holds %d changes, want 1", len(s.C))
	}
}

type failing struct{ err error }

func (f failing) Publish(context.Context, Change) error { return f.err }

func TestFanoutJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	h := NewHub(1)
	s := h.Subscribe(nil)
	defer s.Cancel()

	err := Fanout{h, nil, failing{boom}, Nop{}}.Publish(context.Background(), Change{Collection: store.Salaries})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(s.C) != 1 {
		t.Fatal("hub should still receive the change")
	}
}
