package services

import (
	"context"
	"fmt"

	"fluxo/internal/advisory"
	"fluxo/internal/core"
	"fluxo/internal/report"
)

// AdvisoryService turns a period of the ledger into an advisory request.
type AdvisoryService struct {
	store   SnapshotStore
	advisor advisory.Advisor
}

func NewAdvisoryService(s SnapshotStore, a advisory.Advisor) *AdvisoryService {
	return &AdvisoryService{store: s, advisor: a}
}

// BuildRequest breaks the period down by category: inflows become revenue
// lines and outflows expense lines.
func (s *AdvisoryService) BuildRequest(ctx context.Context, p core.Period, pricingStrategy, recipes string) (advisory.Request, error) {
	snap, err := loadSnapshot(ctx, s.store, p)
	if err != nil {
		return advisory.Request{}, err
	}

	var revenues, expenses []advisory.Line
	for _, ct := range report.ByCategory(snap.Entries, snap.Categories, p, report.Filter{}) {
		name := ct.Name
		if ct.CategoryID == "" {
			name = "Uncategorized"
		}
		if ct.Inflow.IsPositive() {
			revenues = append(revenues, advisory.Line{Name: name, Amount: ct.Inflow})
		}
		if ct.Outflow.IsPositive() {
			expenses = append(expenses, advisory.Line{Name: name, Amount: ct.Outflow})
		}
	}
	return advisory.Request{
		Revenues:        advisory.NewBreakdown(revenues),
		Expenses:        advisory.NewBreakdown(expenses),
		PricingStrategy: pricingStrategy,
		Recipes:         recipes,
	}, nil
}

// Advise builds the request for p and forwards it to the advisor. The
// caller's inputs are checked before the ledger is read.
func (s *AdvisoryService) Advise(ctx context.Context, p core.Period, pricingStrategy, recipes string) (advisory.Response, error) {
	if err := (advisory.Request{PricingStrategy: pricingStrategy, Recipes: recipes}).Validate(); err != nil {
		return advisory.Response{}, err
	}
	if s.advisor == nil {
		return advisory.Response{}, &advisory.UpstreamError{Err: fmt.Errorf("advisor not configured")}
	}
	req, err := s.BuildRequest(ctx, p, pricingStrategy, recipes)
	if err != nil {
		return advisory.Response{}, err
	}
	if err := req.Validate(); err != nil {
		return advisory.Response{}, err
	}
	return s.advisor.Advise(ctx, req)
}
