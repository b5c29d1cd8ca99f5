// Package services orchestrates the store, the aggregation engine and the
// outbound collaborators.
//
// This file implements the strategy registry for recurring definitions:
// each source kind (fixed expense, salary) has a loader that turns its
// definitions into generation templates.
package services

import (
	"context"
	"fmt"

	"fluxo/internal/core"
	"fluxo/internal/store"
)

// TemplateLoader loads the generation templates of one definition kind.
type TemplateLoader interface {
	Load(ctx context.Context) ([]core.RecurringTemplate, error)
}

// TemplateLoaderFunc adapts a function to TemplateLoader.
type TemplateLoaderFunc func(ctx context.Context) ([]core.RecurringTemplate, error)

func (f TemplateLoaderFunc) Load(ctx context.Context) ([]core.RecurringTemplate, error) {
	return f(ctx)
}

// FixedExpenseLoader materializes fixed-expense definitions.
type FixedExpenseLoader struct {
	Store store.FixedExpenseStore
}

func (l FixedExpenseLoader) Load(ctx context.Context) ([]core.RecurringTemplate, error) {
	defs, err := l.Store.ListFixedExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	out := make([]core.RecurringTemplate, len(defs))
	for i, d := range defs {
		out[i] = d.Template()
	}
	return out, nil
}

// SalaryLoader materializes salary definitions.
type SalaryLoader struct {
	Store store.SalaryStore
}

func (l SalaryLoader) Load(ctx context.Context) ([]core.RecurringTemplate, error) {
	defs, err := l.Store.ListSalaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list salaries: %w", err)
	}
	out := make([]core.RecurringTemplate, len(defs))
	for i, d := range defs {
		out[i] = d.Template()
	}
	return out, nil
}

// loaderRegistry keeps loaders in registration order so generation output
// is deterministic.
type loaderRegistry struct {
	order   []core.SourceKind
	loaders map[core.SourceKind]TemplateLoader
}

func (r *loaderRegistry) register(kind core.SourceKind, l TemplateLoader) {
	if r.loaders == nil {
		r.loaders = map[core.SourceKind]TemplateLoader{}
	}
	if _, ok := r.loaders[kind]; !ok {
		r.order = append(r.order, kind)
	}
	r.loaders[kind] = l
}

// resolve returns the loaders for kinds, or all of them when kinds is empty.
func (r *loaderRegistry) resolve(kinds []core.SourceKind) ([]core.SourceKind, error) {
	if len(kinds) == 0 {
		return r.order, nil
	}
	for _, k := range kinds {
		if _, ok := r.loaders[k]; !ok {
			return nil, core.Invalid("kinds", fmt.Sprintf("unknown definition kind %q", k))
		}
	}
	return kinds, nil
}
