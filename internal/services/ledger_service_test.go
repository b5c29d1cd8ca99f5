package services

import (
	"context"
	"errors"
	"testing"

	"fluxo/internal/core"
	"fluxo/internal/events"
	"fluxo/internal/store"
)

func TestLedgerServiceCreate(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	acc := mustAccount(t, s, "Main", "0")
	cat := mustCategory(t, s, "Sales")
	svc := NewLedgerService(s, nil)

	tests := []struct {
		name    string
		entry   core.LedgerEntry
		wantErr func(error) bool
	}{
		{
			name:  "valid",
			entry: core.LedgerEntry{Type: core.Inflow, Description: "Sale", Amount: dec("10"), OccurredAt: noon(2025, 3, 1), AccountID: acc.ID, CategoryID: cat.ID},
		},
		{
			name:    "missing amount",
			entry:   core.LedgerEntry{Type: core.Inflow, Description: "Sale", OccurredAt: noon(2025, 3, 1), AccountID: acc.ID},
			wantErr: core.IsValidation,
		},
		{
			name:    "unknown account",
			entry:   core.LedgerEntry{Type: core.Inflow, Description: "Sale", Amount: dec("10"), OccurredAt: noon(2025, 3, 1), AccountID: "missing"},
			wantErr: func(err error) bool { return errors.Is(err, core.ErrNotFound) },
		},
		{
			name:    "unknown category",
			entry:   core.LedgerEntry{Type: core.Inflow, Description: "Sale", Amount: dec("10"), OccurredAt: noon(2025, 3, 1), AccountID: acc.ID, CategoryID: "missing"},
			wantErr: func(err error) bool { return errors.Is(err, core.ErrNotFound) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CreateEntry(ctx, tt.entry)
			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if got.ID == "" || got.CreatedAt.IsZero() {
				t.Errorf("identity not assigned: %+v", got)
			}
		})
	}
}

func TestLedgerServiceIgnoresClientSourceFields(t *testing.T) {
	s := newFlakyStore()
	acc := mustAccount(t, s, "Main", "0")
	svc := NewLedgerService(s, nil)

	got, err := svc.CreateEntry(context.Background(), core.LedgerEntry{
		Type: core.Outflow, Description: "Rent", Amount: dec("10"), OccurredAt: noon(2025, 3, 1), AccountID: acc.ID,
		SourceKind: core.SourceFixedExpense, SourceID: "fe-1", PeriodKey: "2025-03",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Generated() {
		t.Errorf("manual entry must not carry source tracking: %+v", got)
	}
}

func TestLedgerServiceUpdatePreservesSource(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	acc := mustAccount(t, s, "Main", "0")
	generated := mustEntry(t, s, core.LedgerEntry{
		Type: core.Outflow, Description: "Salary payment: Bia", Amount: dec("100"), OccurredAt: noon(2025, 3, 5),
		AccountID: acc.ID, SourceKind: core.SourceSalary, SourceID: "sal-1", PeriodKey: "2025-03",
	})

	hub := events.NewHub(4)
	sub := hub.Subscribe(events.Filter{store.Entries})
	defer sub.Cancel()
	svc := NewLedgerService(s, hub)

	edit := generated
	edit.Amount = dec("120")
	edit.SourceID = ""
	updated, err := svc.UpdateEntry(ctx, edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.SourceID != "sal-1" || updated.PeriodKey != "2025-03" || !updated.CreatedAt.Equal(generated.CreatedAt) {
		t.Errorf("source tracking lost: %+v", updated)
	}
	stored, _ := s.GetEntry(ctx, generated.ID)
	if !stored.Amount.Equal(dec("120")) {
		t.Errorf("amount = %s", stored.Amount)
	}
	if c := <-sub.C; c.Action != events.Updated || c.IDs[0] != generated.ID {
		t.Errorf("change = %+v", c)
	}

	if _, err := svc.UpdateEntry(ctx, core.LedgerEntry{ID: "missing"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("update missing: %v", err)
	}
}

func TestLedgerServiceDelete(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	acc := mustAccount(t, s, "Main", "0")
	e := mustEntry(t, s, core.LedgerEntry{Type: core.Inflow, Amount: dec("1"), OccurredAt: noon(2025, 3, 1), AccountID: acc.ID})
	svc := NewLedgerService(s, nil)

	if err := svc.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetEntry(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("get after delete: %v", err)
	}
	if err := svc.DeleteEntry(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestLedgerServiceList(t *testing.T) {
	ctx := context.Background()
	s := newFlakyStore()
	a := mustAccount(t, s, "Main", "0")
	b := mustAccount(t, s, "Savings", "0")
	mustEntry(t, s, core.LedgerEntry{Type: core.Inflow, Amount: dec("1"), OccurredAt: noon(2025, 3, 1), AccountID: a.ID})
	mustEntry(t, s, core.LedgerEntry{Type: core.Inflow, Amount: dec("2"), OccurredAt: noon(2025, 3, 2), AccountID: b.ID})
	mustEntry(t, s, core.LedgerEntry{Type: core.Inflow, Amount: dec("3"), OccurredAt: noon(2025, 4, 1), AccountID: a.ID})
	svc := NewLedgerService(s, nil)

	got, err := svc.ListEntries(ctx, store.EntryQuery{AccountID: a.ID, From: noon(2025, 3, 1), To: noon(2025, 3, 31)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Amount.Equal(dec("1")) {
		t.Errorf("got %+v", got)
	}

	s.setFailures(false, true)
	if _, err := svc.ListEntries(ctx, store.EntryQuery{}); !errors.Is(err, errUnavailable) {
		t.Errorf("list failure: %v", err)
	}
}
