package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fluxo/internal/core"
	"fluxo/internal/events"
	"fluxo/internal/store"
)

func seedDefinitions(t *testing.T, s *flakyStore) (core.Account, core.FixedExpense, core.Salary) {
	t.Helper()
	ctx := context.Background()
	acc := mustAccount(t, s, "Main", "0")
	rent := mustCategory(t, s, "Rent")
	fe, err := s.InsertFixedExpense(ctx, core.FixedExpense{
		Description: "Office rent", Amount: dec("900"), CategoryID: rent.ID, DefaultAccountID: acc.ID, DueDay: 31,
	})
	if err != nil {
		t.Fatalf("insert fixed expense: %v", err)
	}
	sal, err := s.InsertSalary(ctx, core.Salary{
		EmployeeName: "Bia", Amount: dec("2000"), PaymentDay: 5, DebitAccountID: acc.ID,
	})
	if err != nil {
		t.Fatalf("insert salary: %v", err)
	}
	return acc, fe, sal
}

func TestGenerateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	seedDefinitions(t, s)
	g := NewRecurringGenerator(s, nil, time.UTC)
	month := core.Month{Year: 2025, Month: time.March, Loc: time.UTC}

	first, err := g.Generate(ctx, month)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Generated != 2 || len(first.EntryIDs) != 2 {
		t.Fatalf("first run report = %+v", first)
	}
	after1 := allEntries(t, s)

	second, err := g.Generate(ctx, month)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Generated != 0 || second.Existing != 2 {
		t.Fatalf("second run report = %+v", second)
	}
	after2 := allEntries(t, s)
	if len(after1) != len(after2) {
		t.Fatalf("entry set changed: %d -> %d", len(after1), len(after2))
	}

	// next month generates again
	next, err := g.Generate(ctx, core.Month{Year: 2025, Month: time.April, Loc: time.UTC})
	if err != nil || next.Generated != 2 {
		t.Fatalf("next month = %+v, %v", next, err)
	}
}

func TestGenerateClampsDueDay(t *testing.T) {
	tests := []struct {
		name  string
		month core.Month
		day   int
	}{
		{"february common year", core.Month{Year: 2025, Month: time.February}, 28},
		{"february leap year", core.Month{Year: 2024, Month: time.February}, 29},
		{"april", core.Month{Year: 2025, Month: time.April}, 30},
		{"may", core.Month{Year: 2025, Month: time.May}, 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFlakyStore()
			_, fe, _ := seedDefinitions(t, s)
			g := NewRecurringGenerator(s, nil, time.UTC)
			if _, err := g.Generate(context.Background(), tt.month, core.SourceFixedExpense); err != nil {
				t.Fatalf("generate: %v", err)
			}
			entries := allEntries(t, s)
			if len(entries) != 1 {
				t.Fatalf("got %d entries", len(entries))
			}
			e := entries[0]
			if e.OccurredAt.Day() != tt.day || e.OccurredAt.Hour() != core.GenerationHour {
				t.Errorf("occurredAt = %v, want day %d at noon", e.OccurredAt, tt.day)
			}
			if e.Type != core.Outflow || e.SourceID != fe.ID || e.CategoryID != fe.CategoryID || !e.Amount.Equal(fe.Amount) {
				t.Errorf("unexpected entry %+v", e)
			}
		})
	}
}

func TestGenerateHonoursLegacyDescriptions(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	acc, _, _ := seedDefinitions(t, s)
	mustEntry(t, s, core.LedgerEntry{
		Type: core.Outflow, Description: "Fixed payment: Office rent", Amount: dec("900"),
		OccurredAt: noon(2025, 3, 10), AccountID: acc.ID,
	})

	g := NewRecurringGenerator(s, nil, time.UTC)
	rep, err := g.Generate(ctx, core.Month{Year: 2025, Month: time.March})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.Generated != 1 || rep.Existing != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestGenerateFailsAtomically(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	seedDefinitions(t, s)
	g := NewRecurringGenerator(s, nil, time.UTC)
	month := core.Month{Year: 2025, Month: time.June}

	s.setFailures(true, false)
	rep, err := g.Generate(ctx, month)
	if !core.IsTransient(err) || !errors.Is(err, errUnavailable) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if rep.Generated != 0 || len(rep.EntryIDs) != 0 {
		t.Fatalf("failed run must report nothing generated: %+v", rep)
	}
	if n := len(allEntries(t, s)); n != 0 {
		t.Fatalf("failed run committed %d entries", n)
	}

	s.setFailures(false, true)
	if _, err := g.Generate(ctx, month); !core.IsTransient(err) {
		t.Fatalf("query failure should be transient, got %v", err)
	}

	s.setFailures(false, false)
	rep, err = g.Generate(ctx, month)
	if err != nil || rep.Generated != 2 {
		t.Fatalf("retry = %+v, %v", rep, err)
	}
}

func TestGenerateSelectsKinds(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	_, _, sal := seedDefinitions(t, s)
	g := NewRecurringGenerator(s, nil, time.UTC)
	month := core.Month{Year: 2025, Month: time.March}

	rep, err := g.Generate(ctx, month, core.SourceSalary)
	if err != nil || rep.Generated != 1 {
		t.Fatalf("salaries only = %+v, %v", rep, err)
	}
	e := allEntries(t, s)[0]
	if e.SourceID != sal.ID || e.Description != "Salary payment: Bia" || e.OccurredAt.Day() != 5 {
		t.Fatalf("unexpected salary entry %+v", e)
	}

	if _, err := g.Generate(ctx, month, core.SourceKind("bonus")); !core.IsValidation(err) {
		t.Fatalf("unknown kind should be a validation error, got %v", err)
	}
}

func TestGenerateEmptyIsNotAnError(t *testing.T) {
	s := newFlakyStore()
	g := NewRecurringGenerator(s, nil, time.UTC)
	rep, err := g.Generate(context.Background(), core.Month{Year: 2025, Month: time.March})
	if err != nil || rep.Generated != 0 {
		t.Fatalf("report = %+v, %v", rep, err)
	}
	if s.applyCalls != 0 {
		t.Fatalf("empty batch should not be committed")
	}
}

func TestGenerateConcurrentInvocations(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	seedDefinitions(t, s)
	g := NewRecurringGenerator(s, nil, time.UTC)
	month := core.Month{Year: 2025, Month: time.March}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Generate(ctx, month); err != nil {
				t.Errorf("generate: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := len(allEntries(t, s)); n != 2 {
		t.Fatalf("concurrent runs produced %d entries, want 2", n)
	}
}

func TestGeneratePublishesCreatedEntries(t *testing.T) {
	s := newFlakyStore()
	seedDefinitions(t, s)
	hub := events.NewHub(4)
	sub := hub.Subscribe(events.Filter{store.Entries})
	defer sub.Cancel()

	g := NewRecurringGenerator(s, hub, time.UTC)
	rep, err := g.GenerateCurrent(context.Background(), noon(2025, 3, 15))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.Month != "2025-03" {
		t.Fatalf("month = %s", rep.Month)
	}
	select {
	case c := <-sub.C:
		if c.Action != events.Created || len(c.IDs) != 2 {
			t.Fatalf("change = %+v", c)
		}
	default:
		t.Fatal("no change published")
	}
}

func TestRegisterLoader(t *testing.T) {
	s := newFlakyStore()
	acc := mustAccount(t, s, "Main", "0")
	g := NewRecurringGenerator(s, nil, time.UTC)
	g.RegisterLoader("insurance", TemplateLoaderFunc(func(context.Context) ([]core.RecurringTemplate, error) {
		return []core.RecurringTemplate{{
			Kind: "insurance", SourceID: "ins-1", Description: "Insurance", Amount: dec("120"), AccountID: acc.ID, Day: 10,
		}}, nil
	}))

	rep, err := g.Generate(context.Background(), core.Month{Year: 2025, Month: time.March}, "insurance")
	if err != nil || rep.Generated != 1 {
		t.Fatalf("report = %+v, %v", rep, err)
	}
}

func TestGenerateAfterGeneratedEntryMovedOutOfMonth(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	acc, fe, _ := seedDefinitions(t, s)
	g := NewRecurringGenerator(s, nil, time.UTC)
	march := core.Month{Year: 2025, Month: time.March, Loc: time.UTC}

	if _, err := g.Generate(ctx, march); err != nil {
		t.Fatalf("first run: %v", err)
	}
	var rent core.LedgerEntry
	for _, e := range allEntries(t, s) {
		if e.SourceID == fe.ID {
			rent = e
		}
	}
	rent.OccurredAt = noon(2025, 4, 2)
	if _, err := NewLedgerService(s, nil).UpdateEntry(ctx, rent); err != nil {
		t.Fatalf("move entry: %v", err)
	}
	if _, err := s.InsertSalary(ctx, core.Salary{
		EmployeeName: "Caio", Amount: dec("1500"), PaymentDay: 10, DebitAccountID: acc.ID,
	}); err != nil {
		t.Fatalf("insert salary: %v", err)
	}

	rep, err := g.Generate(ctx, march)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if rep.Generated != 1 || rep.Existing != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if n := len(allEntries(t, s)); n != 3 {
		t.Fatalf("entries = %d, want 3", n)
	}
}

// conflictStore rejects every batch with a unique-key violation.
type conflictStore struct {
	*flakyStore
}

func (c conflictStore) Apply(context.Context, []store.Op) error {
	return fmt.Errorf("op 0: %w", core.ErrConflict)
}

func TestGenerateConflictIsNotTransient(t *testing.T) {
	s := newFlakyStore()
	seedDefinitions(t, s)
	g := NewRecurringGenerator(conflictStore{s}, nil, time.UTC)

	_, err := g.Generate(context.Background(), core.Month{Year: 2025, Month: time.March})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if core.IsTransient(err) {
		t.Errorf("conflict reported as transient: %v", err)
	}
}
