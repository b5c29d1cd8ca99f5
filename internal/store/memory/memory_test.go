package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
	"fluxo/internal/store"
)

func newEntry(when time.Time, account string) core.LedgerEntry {
	return core.LedgerEntry{
		Type:        core.Outflow,
		Description: "t",
		Amount:      decimal.NewFromInt(10),
		OccurredAt:  when,
		AccountID:   account,
	}
}

func TestQueryEntriesFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := New()
	d1 := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	for _, e := range []core.LedgerEntry{newEntry(d2, "a"), newEntry(d1, "a"), newEntry(d3, "b")} {
		if _, err := s.InsertEntry(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, _ := s.QueryEntries(ctx, store.EntryQuery{From: d1, To: d2})
	if len(got) != 2 || !got[0].OccurredAt.Equal(d1) {
		t.Fatalf("range query = %+v", got)
	}

	got, _ = s.QueryEntries(ctx, store.EntryQuery{Descending: true, Limit: 2})
	if len(got) != 2 || !got[0].OccurredAt.Equal(d3) || !got[1].OccurredAt.Equal(d2) {
		t.Fatalf("descending query = %+v", got)
	}

	got, _ = s.QueryEntries(ctx, store.EntryQuery{AccountID: "b"})
	if len(got) != 1 || got[0].AccountID != "b" {
		t.Fatalf("account query = %+v", got)
	}
}

func TestApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	existing, _ := s.InsertEntry(ctx, newEntry(time.Now(), "a"))

	b := store.NewBatch(s)
	b.CreateEntry(newEntry(time.Now(), "a"))
	b.Delete(store.Entries, existing.ID)
	b.Delete(store.Entries, "missing")
	err := b.Commit(ctx)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	all, _ := s.QueryEntries(ctx, store.EntryQuery{})
	if len(all) != 1 || all[0].ID != existing.ID {
		t.Fatalf("failed batch must leave the store untouched, got %+v", all)
	}
}

func TestApplyRejectsDuplicateGeneration(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := newEntry(time.Now(), "a")
	e.SourceKind, e.SourceID, e.PeriodKey = core.SourceSalary, "sal-1", "2025-03"

	b := store.NewBatch(s)
	b.CreateEntry(e)
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	b = store.NewBatch(s)
	b.CreateEntry(e)
	if err := b.Commit(ctx); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestApplyDeletesReferenceData(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc, _ := s.InsertAccount(ctx, core.Account{Name: "Main"})
	sal, _ := s.InsertSalary(ctx, core.Salary{EmployeeName: "Bia", DebitAccountID: acc.ID})

	b := store.NewBatch(s)
	b.Delete(store.Salaries, sal.ID)
	b.Delete(store.Accounts, acc.ID)
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := s.GetAccount(ctx, acc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("account still present: %v", err)
	}
	if _, err := s.GetSalary(ctx, sal.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("salary still present: %v", err)
	}
}

func TestNewFromFilesSeedsCategories(t *testing.T) {
	dir := t.TempDir()
	if got, _ := NewFromFiles(dir).ListCategories(context.Background()); len(got) != 0 {
		t.Fatalf("expected no categories without a seed file, got %v", got)
	}

	content := "# header\nSuppliers\nRent\nSuppliers\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	cats, _ := NewFromFiles(dir).ListCategories(context.Background())
	if len(cats) != 2 || cats[0].Name != "Rent" || cats[1].Name != "Suppliers" {
		t.Fatalf("unexpected categories: %+v", cats)
	}
}
