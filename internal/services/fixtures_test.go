package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
	"fluxo/internal/store"
	"fluxo/internal/store/memory"
)

var errUnavailable = errors.New("store unavailable")

// flakyStore wraps the memory store and fails selected operations.
type flakyStore struct {
	*memory.Store
	mu         sync.Mutex
	failApply  bool
	failQuery  bool
	applyCalls int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: memory.New()}
}

func (f *flakyStore) setFailures(apply, query bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failApply, f.failQuery = apply, query
}

func (f *flakyStore) Apply(ctx context.Context, ops []store.Op) error {
	f.mu.Lock()
	f.applyCalls++
	fail := f.failApply
	f.mu.Unlock()
	if fail {
		return errUnavailable
	}
	return f.Store.Apply(ctx, ops)
}

func (f *flakyStore) QueryEntries(ctx context.Context, q store.EntryQuery) ([]core.LedgerEntry, error) {
	f.mu.Lock()
	fail := f.failQuery
	f.mu.Unlock()
	if fail {
		return nil, errUnavailable
	}
	return f.Store.QueryEntries(ctx, q)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustAccount(t *testing.T, s store.AccountStore, name string, opening string) core.Account {
	t.Helper()
	a, err := s.InsertAccount(context.Background(), core.Account{Name: name, OpeningBalance: dec(opening)})
	if err != nil {
		t.Fatalf("insert account: %v", err)
	}
	return a
}

func mustCategory(t *testing.T, s store.CategoryStore, name string) core.Category {
	t.Helper()
	c, err := s.InsertCategory(context.Background(), core.Category{Name: name})
	if err != nil {
		t.Fatalf("insert category: %v", err)
	}
	return c
}

func mustEntry(t *testing.T, s store.EntryWriter, e core.LedgerEntry) core.LedgerEntry {
	t.Helper()
	if e.Description == "" {
		e.Description = "entry"
	}
	saved, err := s.InsertEntry(context.Background(), e)
	if err != nil {
		t.Fatalf("insert entry: %v", err)
	}
	return saved
}

func allEntries(t *testing.T, s store.EntryReader) []core.LedgerEntry {
	t.Helper()
	out, err := s.QueryEntries(context.Background(), store.EntryQuery{})
	if err != nil {
		t.Fatalf("query entries: %v", err)
	}
	return out
}

func noon(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}
