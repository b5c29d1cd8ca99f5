// Package report computes period totals, balances, variance and profit
// distribution over a point-in-time snapshot of ledger entries.
//
// Every function here is pure: no I/O, no clock, no shared state. Callers
// load the snapshot and pass it in.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Filter restricts the entries taken into account. Zero value means all.
type Filter struct {
	AccountID string
}

func (f Filter) match(e core.LedgerEntry) bool {
	return f.AccountID == "" || e.AccountID == f.AccountID
}

// Totals holds the inflow and outflow sums of a period and their difference.
type Totals struct {
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Net     decimal.Decimal `json:"net"`
}

func (t *Totals) add(e core.LedgerEntry) {
	if e.Type == core.Inflow {
		t.Inflow = t.Inflow.Add(e.Amount)
	} else {
		t.Outflow = t.Outflow.Add(e.Amount)
	}
	t.Net = t.Inflow.Sub(t.Outflow)
}

// PeriodTotals sums entries with OccurredAt in [p.From, p.To]. An inverted
// period yields zero totals.
func PeriodTotals(entries []core.LedgerEntry, p core.Period, f Filter) Totals {
	t := Totals{Inflow: decimal.Zero, Outflow: decimal.Zero, Net: decimal.Zero}
	if !p.Valid() {
		return t
	}
	for _, e := range entries {
		if f.match(e) && p.Contains(e.OccurredAt) {
			t.add(e)
		}
	}
	return t
}

// AccountBalance returns the opening balance of the account plus the signed
// sum of its entries strictly before boundary.
func AccountBalance(acc core.Account, entries []core.LedgerEntry, boundary time.Time) decimal.Decimal {
	bal := acc.OpeningBalance
	for _, e := range entries {
		if e.AccountID == acc.ID && e.OccurredAt.Before(boundary) {
			bal = bal.Add(e.Signed())
		}
	}
	return bal
}

// Window is the balance of one account (or of all of them) at the start and
// at the end of a period.
type Window struct {
	Start decimal.Decimal `json:"start"`
	End   decimal.Decimal `json:"end"`
}

// BalanceWindow computes the start balance at p.From and the end balance as
// the start plus the in-period signed sum. Entries dated exactly at p.From
// belong to the period.
func BalanceWindow(acc core.Account, entries []core.LedgerEntry, p core.Period) Window {
	start := AccountBalance(acc, entries, p.From)
	in := PeriodTotals(entries, p, Filter{AccountID: acc.ID})
	return Window{Start: start, End: start.Add(in.Net)}
}

// VarianceKind tells whether a variance is a finite ratio or unbounded.
type VarianceKind string

const (
	VarianceFinite      VarianceKind = "finite"
	VariancePosInfinite VarianceKind = "+inf"
	VarianceNegInfinite VarianceKind = "-inf"
)

// Variance is the relative change between two balances.
type Variance struct {
	Kind  VarianceKind    `json:"kind"`
	Ratio decimal.Decimal `json:"ratio"` // meaningful only when Kind is finite
}

// Applicable reports whether the variance can be shown as a number.
func (v Variance) Applicable() bool {
	return v.Kind == VarianceFinite
}

// ComputeVariance returns (end-start)/start. A zero start gives an infinite
// variance signed as end, or zero when end is also zero.
func ComputeVariance(start, end decimal.Decimal) Variance {
	if start.IsZero() {
		switch end.Sign() {
		case 1:
			return Variance{Kind: VariancePosInfinite, Ratio: decimal.Zero}
		case -1:
			return Variance{Kind: VarianceNegInfinite, Ratio: decimal.Zero}
		default:
			return Variance{Kind: VarianceFinite, Ratio: decimal.Zero}
		}
	}
	return Variance{Kind: VarianceFinite, Ratio: end.Sub(start).Div(start)}
}

// Share is one partner's entitlement to a period profit.
type Share struct {
	PartnerID string          `json:"partnerId"`
	Name      string          `json:"name"`
	Percent   decimal.Decimal `json:"percent"`
	Amount    decimal.Decimal `json:"amount"`
}

// DistributeProfit splits max(profit, 0) by each partner's percentage, in
// the order partners are given. Amounts are rounded to cents.
func DistributeProfit(profit decimal.Decimal, partners []core.Partner) []Share {
	base := decimal.Max(profit, decimal.Zero)
	out := make([]Share, 0, len(partners))
	for _, p := range partners {
		out = append(out, Share{
			PartnerID: p.ID,
			Name:      p.Name,
			Percent:   p.ProfitSharePercent,
			Amount:    base.Mul(p.ProfitSharePercent).Div(hundred).Round(2),
		})
	}
	return out
}

// AllocatedPercent sums the partners' percentages. It is expected, not
// required, to be 100.
func AllocatedPercent(partners []core.Partner) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range partners {
		sum = sum.Add(p.ProfitSharePercent)
	}
	return sum
}

// DayPoint is one day of a chart series.
type DayPoint struct {
	Day     string          `json:"day"` // YYYY-MM-DD in the report location
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Net     decimal.Decimal `json:"net"`
}

// DailySeries groups in-period entries by calendar day in loc. Days without
// entries are omitted; points are sorted by day.
func DailySeries(entries []core.LedgerEntry, p core.Period, f Filter, loc *time.Location) []DayPoint {
	if !p.Valid() {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	byDay := make(map[string]*Totals)
	for _, e := range entries {
		if !f.match(e) || !p.Contains(e.OccurredAt) {
			continue
		}
		day := e.OccurredAt.In(loc).Format(time.DateOnly)
		t, ok := byDay[day]
		if !ok {
			t = &Totals{Inflow: decimal.Zero, Outflow: decimal.Zero, Net: decimal.Zero}
			byDay[day] = t
		}
		t.add(e)
	}

	out := make([]DayPoint, 0, len(byDay))
	for day, t := range byDay {
		out = append(out, DayPoint{Day: day, Inflow: t.Inflow, Outflow: t.Outflow, Net: t.Net})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// CategoryTotal is the per-category breakdown of a period. Entries without a
// category are reported under an empty CategoryID.
type CategoryTotal struct {
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name"`
	Inflow     decimal.Decimal `json:"inflow"`
	Outflow    decimal.Decimal `json:"outflow"`
}

// ByCategory breaks the period totals down by category. Names are resolved
// from categories when present; the result is sorted by name then id.
func ByCategory(entries []core.LedgerEntry, categories []core.Category, p core.Period, f Filter) []CategoryTotal {
	if !p.Valid() {
		return nil
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	byCat := make(map[string]*CategoryTotal)
	for _, e := range entries {
		if !f.match(e) || !p.Contains(e.OccurredAt) {
			continue
		}
		ct, ok := byCat[e.CategoryID]
		if !ok {
			ct = &CategoryTotal{CategoryID: e.CategoryID, Name: names[e.CategoryID], Inflow: decimal.Zero, Outflow: decimal.Zero}
			byCat[e.CategoryID] = ct
		}
		if e.Type == core.Inflow {
			ct.Inflow = ct.Inflow.Add(e.Amount)
		} else {
			ct.Outflow = ct.Outflow.Add(e.Amount)
		}
	}

	out := make([]CategoryTotal, 0, len(byCat))
	for _, ct := range byCat {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}
