package core

import "github.com/shopspring/decimal"

const (
	fixedExpensePrefix = "Fixed payment: "
	salaryPrefix       = "Salary payment: "
)

// RecurringTemplate is the common shape of a definition that can be
// materialized into a ledger entry for a given month.
type RecurringTemplate struct {
	Kind        SourceKind
	SourceID    string
	Description string // entry description, also the legacy de-duplication key
	Amount      decimal.Decimal
	CategoryID  string
	AccountID   string
	Day         int
}

// Template returns the generation template of a fixed expense.
func (f FixedExpense) Template() RecurringTemplate {
	return RecurringTemplate{
		Kind:        SourceFixedExpense,
		SourceID:    f.ID,
		Description: fixedExpensePrefix + f.Description,
		Amount:      f.Amount,
		CategoryID:  f.CategoryID,
		AccountID:   f.DefaultAccountID,
		Day:         f.DueDay,
	}
}

// Template returns the generation template of a salary.
func (s Salary) Template() RecurringTemplate {
	return RecurringTemplate{
		Kind:        SourceSalary,
		SourceID:    s.ID,
		Description: salaryPrefix + s.EmployeeName,
		Amount:      s.Amount,
		AccountID:   s.DebitAccountID,
		Day:         s.PaymentDay,
	}
}

// Materialize builds the outflow entry of the template for month m.
func (t RecurringTemplate) Materialize(m Month) LedgerEntry {
	return LedgerEntry{
		Type:        Outflow,
		Description: t.Description,
		Amount:      t.Amount,
		OccurredAt:  m.DueDate(t.Day),
		CategoryID:  t.CategoryID,
		AccountID:   t.AccountID,
		SourceKind:  t.Kind,
		SourceID:    t.SourceID,
		PeriodKey:   m.Key(),
	}
}

// GenerationKey identifies one materialization of one definition.
type GenerationKey struct {
	SourceID  string
	PeriodKey string
}

func (t RecurringTemplate) Key(m Month) GenerationKey {
	return GenerationKey{SourceID: t.SourceID, PeriodKey: m.Key()}
}
