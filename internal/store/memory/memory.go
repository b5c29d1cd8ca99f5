// Package memory is an in-process implementation of store.Store used for
// development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fluxo/internal/core"
	"fluxo/internal/store"
)

type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	entries    map[string]core.LedgerEntry
	accounts   map[string]core.Account
	categories map[string]core.Category
	partners   map[string]core.Partner
	fixed      map[string]core.FixedExpense
	salaries   map[string]core.Salary
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:        time.Now,
		entries:    map[string]core.LedgerEntry{},
		accounts:   map[string]core.Account{},
		categories: map[string]core.Category{},
		partners:   map[string]core.Partner{},
		fixed:      map[string]core.FixedExpense{},
		salaries:   map[string]core.Salary{},
	}
}

// NewFromFiles returns a store whose categories are seeded from
// seed_categories.txt in base, one name per line. Blank lines and lines
// starting with '#' are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	names := readLines(filepath.Join(base, "seed_categories.txt"))
	for _, n := range names {
		_, _ = s.InsertCategory(context.Background(), core.Category{Name: n})
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) InsertEntry(_ context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if err := uniqueIn(s.entries, e); err != nil {
		return core.LedgerEntry{}, err
	}
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (core.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return core.LedgerEntry{}, core.NotFound("entry", id)
	}
	return e, nil
}

func (s *Store) QueryEntries(_ context.Context, q store.EntryQuery) ([]core.LedgerEntry, error) {
	s.mu.RLock()
	out := make([]core.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.Descending {
			a, b = b, a
		}
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.Before(b.OccurredAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) InsertAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID, a.CreatedAt = s.identity(a.ID, a.CreatedAt)
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, core.NotFound("account", id)
	}
	return a, nil
}

func (s *Store) ListAccounts(context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByName(s.accounts, func(a core.Account) string { return a.Name }), nil
}

func (s *Store) InsertCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID, c.CreatedAt = s.identity(c.ID, c.CreatedAt)
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.NotFound("category", id)
	}
	return c, nil
}

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByName(s.categories, func(c core.Category) string { return c.Name }), nil
}

func (s *Store) InsertPartner(_ context.Context, p core.Partner) (core.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID, p.CreatedAt = s.identity(p.ID, p.CreatedAt)
	s.partners[p.ID] = p
	return p, nil
}

func (s *Store) GetPartner(_ context.Context, id string) (core.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partners[id]
	if !ok {
		return core.Partner{}, core.NotFound("partner", id)
	}
	return p, nil
}

func (s *Store) ListPartners(context.Context) ([]core.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByName(s.partners, func(p core.Partner) string { return p.Name }), nil
}

func (s *Store) InsertFixedExpense(_ context.Context, f core.FixedExpense) (core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID, f.CreatedAt = s.identity(f.ID, f.CreatedAt)
	s.fixed[f.ID] = f
	return f, nil
}

func (s *Store) GetFixedExpense(_ context.Context, id string) (core.FixedExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fixed[id]
	if !ok {
		return core.FixedExpense{}, core.NotFound("fixed expense", id)
	}
	return f, nil
}

func (s *Store) ListFixedExpenses(context.Context) ([]core.FixedExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByName(s.fixed, func(f core.FixedExpense) string { return f.Description }), nil
}

func (s *Store) InsertSalary(_ context.Context, sal core.Salary) (core.Salary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sal.ID, sal.CreatedAt = s.identity(sal.ID, sal.CreatedAt)
	s.salaries[sal.ID] = sal
	return sal, nil
}

func (s *Store) GetSalary(_ context.Context, id string) (core.Salary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sal, ok := s.salaries[id]
	if !ok {
		return core.Salary{}, core.NotFound("salary", id)
	}
	return sal, nil
}

func (s *Store) ListSalaries(context.Context) ([]core.Salary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByName(s.salaries, func(sal core.Salary) string { return sal.EmployeeName }), nil
}

// Apply validates every op against a working copy and swaps it in only when
// all of them succeed.
func (s *Store) Apply(_ context.Context, ops []store.Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := clone(s.entries)
	fixed := clone(s.fixed)
	deletes := map[store.Collection]map[string]struct{}{}

	for i, op := range ops {
		switch {
		case op.Collection == store.Entries && op.Kind == store.OpCreate:
			e := *op.Entry
			if e.ID == "" {
				e.ID = uuid.NewString()
			}
			if _, exists := entries[e.ID]; exists {
				return fmt.Errorf("op %d: entry %s: %w", i, e.ID, core.ErrConflict)
			}
			if e.CreatedAt.IsZero() {
				e.CreatedAt = s.now()
			}
			if err := uniqueIn(entries, e); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			entries[e.ID] = e

		case op.Collection == store.Entries && op.Kind == store.OpUpdate:
			old, ok := entries[op.ID]
			if !ok {
				return fmt.Errorf("op %d: %w", i, core.NotFound("entry", op.ID))
			}
			e := *op.Entry
			e.ID, e.CreatedAt = old.ID, old.CreatedAt
			entries[e.ID] = e

		case op.Collection == store.FixedExpenses && op.Kind == store.OpUpdate:
			old, ok := fixed[op.ID]
			if !ok {
				return fmt.Errorf("op %d: %w", i, core.NotFound("fixed expense", op.ID))
			}
			f := *op.FixedExpense
			f.ID, f.CreatedAt = old.ID, old.CreatedAt
			fixed[f.ID] = f

		case op.Kind == store.OpDelete:
			switch op.Collection {
			case store.Entries:
				if _, ok := entries[op.ID]; !ok {
					return fmt.Errorf("op %d: %w", i, core.NotFound("entry", op.ID))
				}
				delete(entries, op.ID)
			case store.FixedExpenses:
				if _, ok := fixed[op.ID]; !ok {
					return fmt.Errorf("op %d: %w", i, core.NotFound("fixed expense", op.ID))
				}
				delete(fixed, op.ID)
			default:
				if !s.exists(op.Collection, op.ID) {
					return fmt.Errorf("op %d: %w", i, core.NotFound(string(op.Collection), op.ID))
				}
				if deletes[op.Collection] == nil {
					deletes[op.Collection] = map[string]struct{}{}
				}
				deletes[op.Collection][op.ID] = struct{}{}
			}

		default:
			return fmt.Errorf("op %d: unsupported %s on %s", i, op.Kind, op.Collection)
		}
	}

	s.entries = entries
	s.fixed = fixed
	for id := range deletes[store.Accounts] {
		delete(s.accounts, id)
	}
	for id := range deletes[store.Categories] {
		delete(s.categories, id)
	}
	for id := range deletes[store.Partners] {
		delete(s.partners, id)
	}
	for id := range deletes[store.Salaries] {
		delete(s.salaries, id)
	}
	return nil
}

func (s *Store) exists(c store.Collection, id string) bool {
	var ok bool
	switch c {
	case store.Accounts:
		_, ok = s.accounts[id]
	case store.Categories:
		_, ok = s.categories[id]
	case store.Partners:
		_, ok = s.partners[id]
	case store.Salaries:
		_, ok = s.salaries[id]
	}
	return ok
}

func (s *Store) identity(id string, created time.Time) (string, time.Time) {
	if id == "" {
		id = uuid.NewString()
	}
	if created.IsZero() {
		created = s.now()
	}
	return id, created
}

// uniqueIn enforces at most one generated entry per (source, period).
func uniqueIn(entries map[string]core.LedgerEntry, e core.LedgerEntry) error {
	if !e.Generated() {
		return nil
	}
	for _, x := range entries {
		if x.ID != e.ID && x.SourceID == e.SourceID && x.PeriodKey == e.PeriodKey {
			return fmt.Errorf("entry for %s in %s already exists: %w", e.SourceID, e.PeriodKey, core.ErrConflict)
		}
	}
	return nil
}

func clone[T any](m map[string]T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedByName[T any](m map[string]T, name func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(name(out[i])) < strings.ToLower(name(out[j]))
	})
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
