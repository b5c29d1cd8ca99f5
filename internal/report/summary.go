package report

import (
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

// Snapshot is the point-in-time data a summary is computed from.
type Snapshot struct {
	Entries    []core.LedgerEntry
	Accounts   []core.Account
	Categories []core.Category
	Partners   []core.Partner
}

type AccountSummary struct {
	AccountID string   `json:"accountId"`
	Name      string   `json:"name"`
	Balance   Window   `json:"balance"`
	Variance  Variance `json:"variance"`
}

// Summary is everything the dashboard shows for one period.
type Summary struct {
	From             time.Time        `json:"from"`
	To               time.Time        `json:"to"`
	AccountID        string           `json:"accountId,omitempty"`
	Totals           Totals           `json:"totals"`
	Balance          Window           `json:"balance"`
	Variance         Variance         `json:"variance"`
	Accounts         []AccountSummary `json:"accounts"`
	Distribution     []Share          `json:"distribution"`
	AllocatedPercent decimal.Decimal  `json:"allocatedPercent"`
	Daily            []DayPoint       `json:"daily"`
	Categories       []CategoryTotal  `json:"categories"`
}

// BuildSummary combines every computation of the package. With an account
// filter the balance and variance are those of that account only; the
// profit distribution always uses the unfiltered period profit.
func BuildSummary(s Snapshot, p core.Period, f Filter, loc *time.Location) Summary {
	sum := Summary{
		From:             p.From,
		To:               p.To,
		AccountID:        f.AccountID,
		Totals:           PeriodTotals(s.Entries, p, f),
		Balance:          Window{Start: decimal.Zero, End: decimal.Zero},
		Accounts:         make([]AccountSummary, 0, len(s.Accounts)),
		AllocatedPercent: AllocatedPercent(s.Partners),
		Daily:            DailySeries(s.Entries, p, f, loc),
		Categories:       ByCategory(s.Entries, s.Categories, p, f),
	}

	for _, acc := range s.Accounts {
		if !f.match(core.LedgerEntry{AccountID: acc.ID}) {
			continue
		}
		var w Window
		if p.Valid() {
			w = BalanceWindow(acc, s.Entries, p)
		} else {
			b := AccountBalance(acc, s.Entries, p.From)
			w = Window{Start: b, End: b}
		}
		sum.Accounts = append(sum.Accounts, AccountSummary{
			AccountID: acc.ID,
			Name:      acc.Name,
			Balance:   w,
			Variance:  ComputeVariance(w.Start, w.End),
		})
		sum.Balance.Start = sum.Balance.Start.Add(w.Start)
		sum.Balance.End = sum.Balance.End.Add(w.End)
	}
	sum.Variance = ComputeVariance(sum.Balance.Start, sum.Balance.End)

	profit := sum.Totals.Net
	if f.AccountID != "" {
		profit = PeriodTotals(s.Entries, p, Filter{}).Net
	}
	sum.Distribution = DistributeProfit(profit, s.Partners)
	return sum
}
