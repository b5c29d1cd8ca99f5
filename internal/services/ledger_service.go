package services

import (
	"context"
	"fmt"
	"log/slog"

	"fluxo/internal/core"
	"fluxo/internal/events"
	"fluxo/internal/store"
)

// LedgerStore is the part of the store the ledger service needs.
type LedgerStore interface {
	store.EntryReader
	store.EntryWriter
	store.Applier
	GetAccount(ctx context.Context, id string) (core.Account, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
}

// LedgerService records manual cash movements and notifies subscribers of
// every committed change.
type LedgerService struct {
	store     LedgerStore
	publisher events.Publisher
}

func NewLedgerService(s LedgerStore, publisher events.Publisher) *LedgerService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &LedgerService{store: s, publisher: publisher}
}

// CreateEntry validates e, checks its account and category exist and
// stores it.
func (s *LedgerService) CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	e.ID = ""
	e.SourceKind, e.SourceID, e.PeriodKey = core.SourceManual, "", ""
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}
	if err := s.checkRefs(ctx, e); err != nil {
		return core.LedgerEntry{}, err
	}

	saved, err := s.store.InsertEntry(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("save entry: %w", err)
	}

	s.publish(ctx, events.Created, saved.ID)
	slog.InfoContext(ctx, "Ledger entry created",
		"entry_id", saved.ID,
		"type", saved.Type,
		"amount", saved.Amount.StringFixed(2),
		"account_id", saved.AccountID)
	return saved, nil
}

// UpdateEntry replaces the editable fields of an existing entry. Source
// tracking of generated entries is preserved.
func (s *LedgerService) UpdateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	old, err := s.store.GetEntry(ctx, e.ID)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}
	if err := s.checkRefs(ctx, e); err != nil {
		return core.LedgerEntry{}, err
	}
	e.SourceKind, e.SourceID, e.PeriodKey = old.SourceKind, old.SourceID, old.PeriodKey
	e.CreatedAt = old.CreatedAt

	b := store.NewBatch(s.store)
	b.UpdateEntry(e)
	if err := b.Commit(ctx); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("update entry: %w", err)
	}

	s.publish(ctx, events.Updated, e.ID)
	return e, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, id string) error {
	if _, err := s.store.GetEntry(ctx, id); err != nil {
		return err
	}
	b := store.NewBatch(s.store)
	b.Delete(store.Entries, id)
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.publish(ctx, events.Deleted, id)
	slog.InfoContext(ctx, "Ledger entry deleted", "entry_id", id)
	return nil
}

func (s *LedgerService) GetEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	return s.store.GetEntry(ctx, id)
}

// ListEntries returns entries matching q, newest first unless q says
// otherwise.
func (s *LedgerService) ListEntries(ctx context.Context, q store.EntryQuery) ([]core.LedgerEntry, error) {
	out, err := s.store.QueryEntries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

func (s *LedgerService) checkRefs(ctx context.Context, e core.LedgerEntry) error {
	if _, err := s.store.GetAccount(ctx, e.AccountID); err != nil {
		return err
	}
	if e.CategoryID != "" {
		if _, err := s.store.GetCategory(ctx, e.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, action events.Action, ids ...string) {
	err := s.publisher.Publish(ctx, events.Change{Collection: store.Entries, Action: action, IDs: ids})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry change", "action", action, "error", err)
	}
}
