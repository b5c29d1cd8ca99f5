package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
	"fluxo/internal/events"
	"fluxo/internal/report"
	"fluxo/internal/store"
)

// ProfitStore is the part of the store the profit service needs.
type ProfitStore interface {
	store.EntryReader
	store.Applier
	GetAccount(ctx context.Context, id string) (core.Account, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
	ListPartners(ctx context.Context) ([]core.Partner, error)
}

type ProfitReport struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	Totals           report.Totals   `json:"totals"`
	Shares           []report.Share  `json:"shares"`
	AllocatedPercent decimal.Decimal `json:"allocatedPercent"`
}

// WithdrawalRequest pays each partner's share of the profit of Period out
// of AccountID.
type WithdrawalRequest struct {
	Period     core.Period
	AccountID  string
	CategoryID string
	OccurredAt time.Time // defaults to now
}

type WithdrawalResult struct {
	EntryIDs []string        `json:"entryIds"`
	Total    decimal.Decimal `json:"total"`
}

type ProfitService struct {
	store     ProfitStore
	publisher events.Publisher
	loc       *time.Location
	now       func() time.Time
}

func NewProfitService(s ProfitStore, publisher events.Publisher, loc *time.Location) *ProfitService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ProfitService{store: s, publisher: publisher, loc: loc, now: time.Now}
}

func (s *ProfitService) Report(ctx context.Context, p core.Period) (ProfitReport, error) {
	entries, partners, err := s.load(ctx, p)
	if err != nil {
		return ProfitReport{}, err
	}
	totals := report.PeriodTotals(entries, p, report.Filter{})
	return ProfitReport{
		From:             p.From,
		To:               p.To,
		Totals:           totals,
		Shares:           report.DistributeProfit(totals.Net, partners),
		AllocatedPercent: report.AllocatedPercent(partners),
	}, nil
}

// RegisterWithdrawal records one outflow per partner with a positive share,
// all in one batch. A period whose withdrawals were already registered is
// rejected with core.ErrConflict.
func (s *ProfitService) RegisterWithdrawal(ctx context.Context, req WithdrawalRequest) (WithdrawalResult, error) {
	if !req.Period.Valid() {
		return WithdrawalResult{}, core.Invalid("period", "from must not be after to")
	}
	if req.AccountID == "" {
		return WithdrawalResult{}, core.Invalid("accountId", "is required")
	}
	if _, err := s.store.GetAccount(ctx, req.AccountID); err != nil {
		return WithdrawalResult{}, err
	}
	if req.CategoryID != "" {
		if _, err := s.store.GetCategory(ctx, req.CategoryID); err != nil {
			return WithdrawalResult{}, err
		}
	}

	rep, err := s.Report(ctx, req.Period)
	if err != nil {
		return WithdrawalResult{}, err
	}
	if !rep.Totals.Net.IsPositive() {
		return WithdrawalResult{}, core.Invalid("period", "there is no profit to withdraw")
	}

	when := req.OccurredAt
	if when.IsZero() {
		when = s.now()
	}
	label := fmt.Sprintf("%s - %s",
		req.Period.From.In(s.loc).Format("02/01/06"),
		req.Period.To.In(s.loc).Format("02/01/06"))
	periodKey := req.Period.From.In(s.loc).Format(time.DateOnly) + ".." + req.Period.To.In(s.loc).Format(time.DateOnly)

	res := WithdrawalResult{EntryIDs: []string{}, Total: decimal.Zero}
	b := store.NewBatch(s.store)
	for _, sh := range rep.Shares {
		if !sh.Amount.IsPositive() {
			continue
		}
		id := b.CreateEntry(core.LedgerEntry{
			Type:        core.Outflow,
			Description: fmt.Sprintf("Profit withdrawal: %s (%s)", sh.Name, label),
			Amount:      sh.Amount,
			OccurredAt:  when,
			CategoryID:  req.CategoryID,
			AccountID:   req.AccountID,
			SourceKind:  core.SourceProfitWithdrawal,
			SourceID:    sh.PartnerID,
			PeriodKey:   periodKey,
		})
		res.EntryIDs = append(res.EntryIDs, id)
		res.Total = res.Total.Add(sh.Amount)
	}
	if b.Len() == 0 {
		return WithdrawalResult{}, core.Invalid("partners", "no partner has a positive share")
	}
	if err := b.Commit(ctx); err != nil {
		return WithdrawalResult{}, fmt.Errorf("register withdrawal: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.Change{Collection: store.Entries, Action: events.Created, IDs: res.EntryIDs}); err != nil {
		slog.ErrorContext(ctx, "Failed to publish withdrawal entries", "error", err)
	}
	slog.InfoContext(ctx, "Profit withdrawal registered",
		"account_id", req.AccountID,
		"entries", len(res.EntryIDs),
		"amount", res.Total.StringFixed(2))
	return res, nil
}

func (s *ProfitService) load(ctx context.Context, p core.Period) ([]core.LedgerEntry, []core.Partner, error) {
	if !p.Valid() {
		partners, err := s.store.ListPartners(ctx)
		return nil, partners, core.Transient("list partners", err)
	}
	entries, err := s.store.QueryEntries(ctx, store.EntryQuery{From: p.From, To: p.To})
	if err != nil {
		return nil, nil, core.Transient("query period entries", err)
	}
	partners, err := s.store.ListPartners(ctx)
	if err != nil {
		return nil, nil, core.Transient("list partners", err)
	}
	return entries, partners, nil
}
