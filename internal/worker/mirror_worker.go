package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fluxo/internal/amqp"
	"fluxo/internal/core"
	"fluxo/internal/events"
	"fluxo/internal/sheets"
	"fluxo/internal/store"
)

// MirrorStore is the read side the worker needs to render rows.
type MirrorStore interface {
	store.EntryReader
	GetAccount(ctx context.Context, id string) (core.Account, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
}

// MirrorWorker keeps a spreadsheet mirror of the ledger in step with the
// store, driven by ledger change events.
type MirrorWorker struct {
	store  MirrorStore
	mirror sheets.LedgerMirror
	loc    *time.Location
}

func NewMirrorWorker(s MirrorStore, mirror sheets.LedgerMirror, loc *time.Location) *MirrorWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &MirrorWorker{store: s, mirror: mirror, loc: loc}
}

// ReconcileReport counts the corrections made by Reconcile.
type ReconcileReport struct {
	Upserted int
	Removed  int
}

// HandleMessage applies one ledger event to the mirror. Events of other
// collections are ignored; renamed accounts and categories show up on the
// next reconciliation.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if msg.Collection != store.Entries {
		slog.DebugContext(ctx, "Ignoring non-ledger event", "collection", msg.Collection)
		return nil
	}

	slog.InfoContext(ctx, "Processing ledger event",
		"action", msg.Action,
		"ids", len(msg.IDs))

	names := newNameCache(w.store)
	for _, id := range msg.IDs {
		if msg.Action == events.Deleted {
			if err := w.mirror.Remove(ctx, id); err != nil {
				return fmt.Errorf("remove mirrored entry %s: %w", id, err)
			}
			continue
		}

		e, err := w.store.GetEntry(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			// deleted after the event was published
			if err := w.mirror.Remove(ctx, id); err != nil {
				return fmt.Errorf("remove mirrored entry %s: %w", id, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("get entry from store: %w", err)
		}
		if err := w.mirror.Upsert(ctx, names.row(ctx, e, w.loc)); err != nil {
			return fmt.Errorf("mirror entry %s: %w", id, err)
		}
	}
	return nil
}

// Reconcile compares the whole ledger with the mirror and fixes every
// difference. It recovers from missed events or worker downtime.
func (w *MirrorWorker) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var rep ReconcileReport

	entries, err := w.store.QueryEntries(ctx, store.EntryQuery{})
	if err != nil {
		return rep, fmt.Errorf("list entries: %w", err)
	}
	rows, err := w.mirror.Rows(ctx)
	if err != nil {
		return rep, fmt.Errorf("read mirror: %w", err)
	}

	mirrored := make(map[string]sheets.LedgerRow, len(rows))
	for _, r := range rows {
		mirrored[r.EntryID] = r
	}

	names := newNameCache(w.store)
	errorCount := 0
	for _, e := range entries {
		want := names.row(ctx, e, w.loc)
		have, ok := mirrored[e.ID]
		delete(mirrored, e.ID)
		if ok && sameRow(have, want) {
			continue
		}
		if err := w.mirror.Upsert(ctx, want); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror entry", "entry_id", e.ID, "error", err)
			errorCount++
			continue
		}
		rep.Upserted++
	}
	for id := range mirrored {
		if err := w.mirror.Remove(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to remove stale row", "entry_id", id, "error", err)
			errorCount++
			continue
		}
		rep.Removed++
	}

	slog.InfoContext(ctx, "Mirror reconciliation completed",
		"entries", len(entries),
		"upserted", rep.Upserted,
		"removed", rep.Removed,
		"errors", errorCount)
	if errorCount > 0 {
		return rep, fmt.Errorf("reconcile: %d rows failed", errorCount)
	}
	return rep, nil
}

func sameRow(a, b sheets.LedgerRow) bool {
	return a.EntryID == b.EntryID &&
		a.Date == b.Date &&
		a.Type == b.Type &&
		a.Description == b.Description &&
		a.Amount.Equal(b.Amount) &&
		a.Account == b.Account &&
		a.Category == b.Category
}

// nameCache resolves account and category names once per batch.
type nameCache struct {
	store      MirrorStore
	accounts   map[string]string
	categories map[string]string
}

func newNameCache(s MirrorStore) *nameCache {
	return &nameCache{store: s, accounts: map[string]string{}, categories: map[string]string{}}
}

func (n *nameCache) row(ctx context.Context, e core.LedgerEntry, loc *time.Location) sheets.LedgerRow {
	return sheets.NewLedgerRow(e, n.account(ctx, e.AccountID), n.category(ctx, e.CategoryID), loc)
}

func (n *nameCache) account(ctx context.Context, id string) string {
	if name, ok := n.accounts[id]; ok {
		return name
	}
	name := id
	if a, err := n.store.GetAccount(ctx, id); err == nil {
		name = a.Name
	}
	n.accounts[id] = name
	return name
}

func (n *nameCache) category(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	if name, ok := n.categories[id]; ok {
		return name
	}
	name := id
	if c, err := n.store.GetCategory(ctx, id); err == nil {
		name = c.Name
	}
	n.categories[id] = name
	return name
}
