package http

import (
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

type (
	entryPayload struct {
		Type        string      `json:"type"`
		Description string      `json:"description"`
		Amount      amountInput `json:"amount"`
		OccurredAt  string      `json:"occurredAt"`
		CategoryID  string      `json:"categoryId"`
		AccountID   string      `json:"accountId"`
	}

	entryView struct {
		ID          string          `json:"id"`
		Type        core.EntryType  `json:"type"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		OccurredAt  time.Time       `json:"occurredAt"`
		CategoryID  string          `json:"categoryId,omitempty"`
		AccountID   string          `json:"accountId"`
		SourceKind  core.SourceKind `json:"sourceKind,omitempty"`
		SourceID    string          `json:"sourceId,omitempty"`
		PeriodKey   string          `json:"periodKey,omitempty"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	accountPayload struct {
		Name           string      `json:"name"`
		Bank           string      `json:"bank"`
		OpeningBalance amountInput `json:"openingBalance"`
	}

	accountView struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		Bank           string          `json:"bank,omitempty"`
		OpeningBalance decimal.Decimal `json:"openingBalance"`
		CreatedAt      time.Time       `json:"createdAt"`
	}

	categoryPayload struct {
		Name string `json:"name"`
	}

	categoryView struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}

	partnerPayload struct {
		Name               string      `json:"name"`
		ProfitSharePercent amountInput `json:"profitSharePercent"`
	}

	partnerView struct {
		ID                 string          `json:"id"`
		Name               string          `json:"name"`
		ProfitSharePercent decimal.Decimal `json:"profitSharePercent"`
		CreatedAt          time.Time       `json:"createdAt"`
	}

	fixedExpensePayload struct {
		Description      string      `json:"description"`
		Amount           amountInput `json:"amount"`
		CategoryID       string      `json:"categoryId"`
		DefaultAccountID string      `json:"defaultAccountId"`
		DueDay           int         `json:"dueDay"`
	}

	fixedExpenseView struct {
		ID               string          `json:"id"`
		Description      string          `json:"description"`
		Amount           decimal.Decimal `json:"amount"`
		CategoryID       string          `json:"categoryId,omitempty"`
		DefaultAccountID string          `json:"defaultAccountId"`
		DueDay           int             `json:"dueDay"`
		CreatedAt        time.Time       `json:"createdAt"`
	}

	salaryPayload struct {
		EmployeeName   string      `json:"employeeName"`
		Amount         amountInput `json:"amount"`
		PaymentDay     int         `json:"paymentDay"`
		DebitAccountID string      `json:"debitAccountId"`
	}

	salaryView struct {
		ID             string          `json:"id"`
		EmployeeName   string          `json:"employeeName"`
		Amount         decimal.Decimal `json:"amount"`
		PaymentDay     int             `json:"paymentDay"`
		DebitAccountID string          `json:"debitAccountId"`
		CreatedAt      time.Time       `json:"createdAt"`
	}

	generatePayload struct {
		Month string   `json:"month"`
		Kinds []string `json:"kinds"`
	}

	withdrawalPayload struct {
		periodParams
		AccountID  string `json:"accountId"`
		CategoryID string `json:"categoryId"`
		OccurredAt string `json:"occurredAt"`
	}

	advisoryPayload struct {
		periodParams
		PricingStrategy string `json:"pricingStrategy"`
		Recipes         string `json:"recipes"`
	}
)

func (p entryPayload) toEntry(v *core.ValidationError, loc *time.Location) core.LedgerEntry {
	e := core.LedgerEntry{
		Type:        core.EntryType(p.Type),
		Description: sanitizeInput(p.Description),
		Amount:      p.Amount.positive(v, "amount"),
		CategoryID:  sanitizeInput(p.CategoryID),
		AccountID:   sanitizeInput(p.AccountID),
	}
	if p.OccurredAt == "" {
		v.Add("occurredAt", "is required")
	} else {
		e.OccurredAt = optionalTime(v, "occurredAt", p.OccurredAt, loc)
	}
	return e
}

func newEntryView(e core.LedgerEntry) entryView {
	return entryView{
		ID:          e.ID,
		Type:        e.Type,
		Description: e.Description,
		Amount:      e.Amount,
		OccurredAt:  e.OccurredAt,
		CategoryID:  e.CategoryID,
		AccountID:   e.AccountID,
		SourceKind:  e.SourceKind,
		SourceID:    e.SourceID,
		PeriodKey:   e.PeriodKey,
		CreatedAt:   e.CreatedAt,
	}
}

func newAccountView(a core.Account) accountView {
	return accountView{ID: a.ID, Name: a.Name, Bank: a.Bank, OpeningBalance: a.OpeningBalance, CreatedAt: a.CreatedAt}
}

func newCategoryView(c core.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}

func newPartnerView(p core.Partner) partnerView {
	return partnerView{ID: p.ID, Name: p.Name, ProfitSharePercent: p.ProfitSharePercent, CreatedAt: p.CreatedAt}
}

func newFixedExpenseView(f core.FixedExpense) fixedExpenseView {
	return fixedExpenseView{
		ID:               f.ID,
		Description:      f.Description,
		Amount:           f.Amount,
		CategoryID:       f.CategoryID,
		DefaultAccountID: f.DefaultAccountID,
		DueDay:           f.DueDay,
		CreatedAt:        f.CreatedAt,
	}
}

func newSalaryView(s core.Salary) salaryView {
	return salaryView{
		ID:             s.ID,
		EmployeeName:   s.EmployeeName,
		Amount:         s.Amount,
		PaymentDay:     s.PaymentDay,
		DebitAccountID: s.DebitAccountID,
		CreatedAt:      s.CreatedAt,
	}
}

// mapSlice converts every element of in.
func mapSlice[T, V any](in []T, f func(T) V) []V {
	out := make([]V, len(in))
	for i, x := range in {
		out[i] = f(x)
	}
	return out
}
