package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Inflow  EntryType = "inflow"
	Outflow EntryType = "outflow"
)

const (
	SourceManual           SourceKind = ""
	SourceFixedExpense     SourceKind = "fixed_expense"
	SourceSalary           SourceKind = "salary"
	SourceProfitWithdrawal SourceKind = "profit_withdrawal"
)

type (
	EntryType  string
	SourceKind string

	LedgerEntry struct {
		ID          string
		Type        EntryType
		Description string
		Amount      decimal.Decimal // always positive, sign is carried by Type
		OccurredAt  time.Time
		CategoryID  string // empty when unassigned
		AccountID   string

		// Set only on generated entries.
		SourceKind SourceKind
		SourceID   string
		PeriodKey  string

		CreatedAt time.Time
	}

	Account struct {
		ID             string
		Name           string
		Bank           string
		OpeningBalance decimal.Decimal
		CreatedAt      time.Time
	}

	Category struct {
		ID        string
		Name      string
		CreatedAt time.Time
	}

	Partner struct {
		ID                 string
		Name               string
		ProfitSharePercent decimal.Decimal
		CreatedAt          time.Time
	}

	// FixedExpense is a recurring-payment template, not a transaction.
	FixedExpense struct {
		ID               string
		Description      string
		Amount           decimal.Decimal
		CategoryID       string
		DefaultAccountID string
		DueDay           int
		CreatedAt        time.Time
	}

	// Salary is a recurring-payment template, not a transaction.
	Salary struct {
		ID             string
		EmployeeName   string
		Amount         decimal.Decimal
		PaymentDay     int
		DebitAccountID string
		CreatedAt      time.Time
	}
)

const maxDescriptionLen = 200

var hundred = decimal.NewFromInt(100)

// Signed returns the amount with the sign implied by the entry type.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Type == Outflow {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Generated reports whether the entry was materialized from a template.
func (e LedgerEntry) Generated() bool {
	return e.SourceID != "" && e.PeriodKey != ""
}

func (t EntryType) Valid() bool {
	return t == Inflow || t == Outflow
}

func (e LedgerEntry) Validate() error {
	v := &ValidationError{}
	if !e.Type.Valid() {
		v.Add("type", fmt.Sprintf("must be %q or %q", Inflow, Outflow))
	}
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		v.Add("description", "is required")
	} else if len(desc) > maxDescriptionLen {
		v.Add("description", "too long (max 200 characters)")
	}
	if !e.Amount.IsPositive() {
		v.Add("amount", "must be positive")
	}
	if e.OccurredAt.IsZero() {
		v.Add("occurredAt", "is required")
	}
	if strings.TrimSpace(e.AccountID) == "" {
		v.Add("accountId", "is required")
	}
	return v.OrNil()
}

func (a Account) Validate() error {
	v := &ValidationError{}
	if len(strings.TrimSpace(a.Name)) < 2 {
		v.Add("name", "must have at least 2 characters")
	}
	return v.OrNil()
}

func (c Category) Validate() error {
	v := &ValidationError{}
	if len(strings.TrimSpace(c.Name)) < 2 {
		v.Add("name", "must have at least 2 characters")
	}
	return v.OrNil()
}

func (p Partner) Validate() error {
	v := &ValidationError{}
	if len(strings.TrimSpace(p.Name)) < 2 {
		v.Add("name", "must have at least 2 characters")
	}
	if !p.ProfitSharePercent.IsPositive() || p.ProfitSharePercent.GreaterThan(hundred) {
		v.Add("profitSharePercent", "must be greater than 0 and at most 100")
	}
	return v.OrNil()
}

func (f FixedExpense) Validate() error {
	v := &ValidationError{}
	if len(strings.TrimSpace(f.Description)) < 2 {
		v.Add("description", "must have at least 2 characters")
	} else if limit := maxDescriptionLen - len(fixedExpensePrefix); len(f.Description) > limit {
		v.Add("description", fmt.Sprintf("too long (max %d characters)", limit))
	}
	if !f.Amount.IsPositive() {
		v.Add("amount", "must be positive")
	}
	if strings.TrimSpace(f.DefaultAccountID) == "" {
		v.Add("defaultAccountId", "is required")
	}
	if f.DueDay < 1 || f.DueDay > 31 {
		v.Add("dueDay", "must be between 1 and 31")
	}
	return v.OrNil()
}

func (s Salary) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(s.EmployeeName) == "" {
		v.Add("employeeName", "is required")
	} else if limit := maxDescriptionLen - len(salaryPrefix); len(s.EmployeeName) > limit {
		v.Add("employeeName", fmt.Sprintf("too long (max %d characters)", limit))
	}
	if !s.Amount.IsPositive() {
		v.Add("amount", "must be greater than zero")
	}
	if s.PaymentDay < 1 || s.PaymentDay > 31 {
		v.Add("paymentDay", "must be between 1 and 31")
	}
	if strings.TrimSpace(s.DebitAccountID) == "" {
		v.Add("debitAccountId", "is required")
	}
	return v.OrNil()
}
