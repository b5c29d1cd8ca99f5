package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fluxo/internal/core"
	"fluxo/internal/report"
	"fluxo/internal/store"
)

// SnapshotStore is the read side needed to build a report snapshot.
type SnapshotStore interface {
	store.EntryReader
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListPartners(ctx context.Context) ([]core.Partner, error)
}

// loadSnapshot reads every entry up to the end of p together with the
// reference data, concurrently. Entries before p.From are needed for the
// start balances.
func loadSnapshot(ctx context.Context, s SnapshotStore, p core.Period) (report.Snapshot, error) {
	var snap report.Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		to := p.To
		if to.Before(p.From) {
			to = p.From
		}
		entries, err := s.QueryEntries(ctx, store.EntryQuery{To: to})
		if err != nil {
			return fmt.Errorf("load entries: %w", err)
		}
		snap.Entries = entries
		return nil
	})
	g.Go(func() error {
		accounts, err := s.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}
		snap.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		categories, err := s.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		snap.Categories = categories
		return nil
	})
	g.Go(func() error {
		partners, err := s.ListPartners(ctx)
		if err != nil {
			return fmt.Errorf("load partners: %w", err)
		}
		snap.Partners = partners
		return nil
	})

	if err := g.Wait(); err != nil {
		return report.Snapshot{}, core.Transient("load snapshot", err)
	}
	return snap, nil
}
