package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/amqp"
	"fluxo/internal/core"
	"fluxo/internal/events"
	"fluxo/internal/sheets"
	sheetsmem "fluxo/internal/sheets/memory"
	"fluxo/internal/store"
	"fluxo/internal/store/memory"
)

func seed(t *testing.T) (*memory.Store, core.LedgerEntry) {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	acc, err := s.InsertAccount(ctx, core.Account{Name: "Main"})
	if err != nil {
		t.Fatal(err)
	}
	cat, err := s.InsertCategory(ctx, core.Category{Name: "Supplies"})
	if err != nil {
		t.Fatal(err)
	}
	e, err := s.InsertEntry(ctx, core.LedgerEntry{
		Type: core.Outflow, Description: "Flour", Amount: decimal.NewFromInt(30),
		OccurredAt: time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC), AccountID: acc.ID, CategoryID: cat.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s, e
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	s, e := seed(t)
	mirror := sheetsmem.New()
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	w := NewMirrorWorker(s, mirror, saoPaulo)

	created := amqp.NewLedgerEventMessage(events.Change{Collection: store.Entries, Action: events.Created, IDs: []string{e.ID}})
	if err := w.HandleMessage(ctx, created); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	rows, _ := mirror.Rows(ctx)
	if len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	r := rows[0]
	if r.Account != "Main" || r.Category != "Supplies" || r.Date != "2025-02-28" {
		t.Errorf("row = %+v", r)
	}

	deleted := amqp.NewLedgerEventMessage(events.Change{Collection: store.Entries, Action: events.Deleted, IDs: []string{e.ID}})
	if err := w.HandleMessage(ctx, deleted); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if rows, _ := mirror.Rows(ctx); len(rows) != 0 {
		t.Errorf("row not removed: %+v", rows)
	}
}

func TestHandleMessageVanishedEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := seed(t)
	mirror := sheetsmem.New()
	_ = mirror.Upsert(ctx, sheets.LedgerRow{EntryID: "gone", Amount: decimal.NewFromInt(1)})
	w := NewMirrorWorker(s, mirror, time.UTC)

	msg := amqp.NewLedgerEventMessage(events.Change{Collection: store.Entries, Action: events.Updated, IDs: []string{"gone"}})
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if rows, _ := mirror.Rows(ctx); len(rows) != 0 {
		t.Errorf("stale row kept: %+v", rows)
	}

	other := amqp.NewLedgerEventMessage(events.Change{Collection: store.Accounts, Action: events.Deleted, IDs: []string{"x"}})
	if err := w.HandleMessage(ctx, other); err != nil {
		t.Errorf("non-ledger events are ignored: %v", err)
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	s, e := seed(t)
	mirror := sheetsmem.New()
	_ = mirror.Upsert(ctx, sheets.LedgerRow{EntryID: "stale", Amount: decimal.NewFromInt(1)})
	w := NewMirrorWorker(s, mirror, time.UTC)

	rep, err := w.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Upserted != 1 || rep.Removed != 1 {
		t.Fatalf("report = %+v", rep)
	}
	rows, _ := mirror.Rows(ctx)
	if len(rows) != 1 || rows[0].EntryID != e.ID {
		t.Fatalf("rows = %+v", rows)
	}

	rep, err = w.Reconcile(ctx)
	if err != nil || rep != (ReconcileReport{}) {
		t.Fatalf("second reconcile = %+v, %v", rep, err)
	}
}
