package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fluxo/internal/core"
	"fluxo/internal/events"
	"fluxo/internal/store"
)

// GeneratorStore is the part of the store the generator needs.
type GeneratorStore interface {
	store.EntryReader
	store.FixedExpenseStore
	store.SalaryStore
	store.Applier
}

// GenerationReport describes the outcome of one invocation. A zero
// Generated count means there was nothing to do for the month.
type GenerationReport struct {
	Month     string   `json:"month"`
	Generated int      `json:"generated"`
	Existing  int      `json:"existing"`
	Skipped   int      `json:"skipped"`
	EntryIDs  []string `json:"entryIds"`
}

// RecurringGenerator materializes fixed expenses and salaries into ledger
// entries, at most once per definition and month.
type RecurringGenerator struct {
	// mu serializes invocations so the read of existing entries and the
	// batch commit of one run never interleave with another run.
	mu        sync.Mutex
	store     GeneratorStore
	publisher events.Publisher
	loc       *time.Location
	registry  loaderRegistry
}

func NewRecurringGenerator(s GeneratorStore, publisher events.Publisher, loc *time.Location) *RecurringGenerator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	g := &RecurringGenerator{store: s, publisher: publisher, loc: loc}
	g.registry.register(core.SourceFixedExpense, FixedExpenseLoader{Store: s})
	g.registry.register(core.SourceSalary, SalaryLoader{Store: s})
	return g
}

// RegisterLoader adds or replaces the loader of a definition kind.
func (g *RecurringGenerator) RegisterLoader(kind core.SourceKind, l TemplateLoader) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registry.register(kind, l)
}

// GenerateCurrent runs Generate for the month containing now.
func (g *RecurringGenerator) GenerateCurrent(ctx context.Context, now time.Time, kinds ...core.SourceKind) (GenerationReport, error) {
	return g.Generate(ctx, core.MonthOf(now, g.loc), kinds...)
}

// Generate creates the missing entries of month for the given definition
// kinds (all kinds when none is given) in a single atomic batch. Store
// failures are reported as *core.TransientError; retrying is safe because
// nothing was committed and de-duplication starts over.
func (g *RecurringGenerator) Generate(ctx context.Context, month core.Month, kinds ...core.SourceKind) (GenerationReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if month.Loc == nil {
		month.Loc = g.loc
	}
	rep := GenerationReport{Month: month.Key(), EntryIDs: []string{}}

	selected, err := g.registry.resolve(kinds)
	if err != nil {
		return rep, err
	}

	// Generated entries keep their period key when edited to another date,
	// so they are looked up by key rather than by the month's date range.
	tracked, err := g.store.QueryEntries(ctx, store.EntryQuery{PeriodKey: month.Key()})
	if err != nil {
		return rep, core.Transient("query generated entries", err)
	}
	period := month.Period()
	existing, err := g.store.QueryEntries(ctx, store.EntryQuery{From: period.From, To: period.To})
	if err != nil {
		return rep, core.Transient("query month entries", err)
	}

	keys := make(map[core.GenerationKey]struct{}, len(tracked))
	for _, e := range tracked {
		if e.Generated() {
			keys[core.GenerationKey{SourceID: e.SourceID, PeriodKey: e.PeriodKey}] = struct{}{}
		}
	}
	descriptions := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		descriptions[e.Description] = struct{}{}
	}

	batch := store.NewBatch(g.store)
	for _, kind := range selected {
		templates, err := g.registry.loaders[kind].Load(ctx)
		if err != nil {
			return rep, core.Transient("load definitions", err)
		}
		for _, t := range templates {
			key := t.Key(month)
			if _, done := keys[key]; done {
				rep.Existing++
				continue
			}
			// entries created before source tracking only carry the description
			if _, done := descriptions[t.Description]; done {
				rep.Existing++
				continue
			}

			entry := t.Materialize(month)
			if err := entry.Validate(); err != nil {
				slog.WarnContext(ctx, "Skipping invalid recurring definition",
					"kind", kind,
					"source_id", t.SourceID,
					"error", err)
				rep.Skipped++
				continue
			}
			keys[key] = struct{}{}
			rep.EntryIDs = append(rep.EntryIDs, batch.CreateEntry(entry))
		}
	}

	if err := batch.Commit(ctx); err != nil {
		rep.EntryIDs = []string{}
		if errors.Is(err, core.ErrConflict) {
			slog.WarnContext(ctx, "Generation batch rejected by an existing entry", "period_key", rep.Month)
			return rep, fmt.Errorf("commit generated entries: %w", err)
		}
		return rep, core.Transient("commit generated entries", err)
	}
	rep.Generated = len(rep.EntryIDs)

	if rep.Generated > 0 {
		change := events.Change{Collection: store.Entries, Action: events.Created, IDs: rep.EntryIDs}
		if err := g.publisher.Publish(ctx, change); err != nil {
			slog.ErrorContext(ctx, "Failed to publish generated entries", "error", err)
		}
	}

	slog.InfoContext(ctx, "Recurring generation complete",
		"period_key", rep.Month,
		"generated", rep.Generated,
		"existing", rep.Existing,
		"skipped", rep.Skipped)
	return rep, nil
}
