// Package store defines the document-store contract the services depend on.
// Implementations live in store/memory and storage (SQLite).
package store

import (
	"context"
	"time"

	"fluxo/internal/core"
)

// Collection names a document collection.
type Collection string

const (
	Entries       Collection = "ledgerEntries"
	Accounts      Collection = "accounts"
	Categories    Collection = "categories"
	Partners      Collection = "partners"
	FixedExpenses Collection = "fixedExpenseDefinitions"
	Salaries      Collection = "salaryDefinitions"
)

// EntryQuery selects ledger entries. Zero fields do not filter; From and To
// are both inclusive.
type EntryQuery struct {
	From       time.Time
	To         time.Time
	AccountID  string
	CategoryID string
	SourceID   string
	PeriodKey  string
	Descending bool
	Limit      int
}

// Match reports whether e satisfies every filter of q.
func (q EntryQuery) Match(e core.LedgerEntry) bool {
	if !q.From.IsZero() && e.OccurredAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.OccurredAt.After(q.To) {
		return false
	}
	if q.AccountID != "" && e.AccountID != q.AccountID {
		return false
	}
	if q.CategoryID != "" && e.CategoryID != q.CategoryID {
		return false
	}
	if q.SourceID != "" && e.SourceID != q.SourceID {
		return false
	}
	if q.PeriodKey != "" && e.PeriodKey != q.PeriodKey {
		return false
	}
	return true
}

// Ports consumed by the services. Inserts assign the id and creation time
// and return the stored record.
type (
	EntryReader interface {
		GetEntry(ctx context.Context, id string) (core.LedgerEntry, error)
		QueryEntries(ctx context.Context, q EntryQuery) ([]core.LedgerEntry, error)
	}

	EntryWriter interface {
		InsertEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
	}

	AccountStore interface {
		InsertAccount(ctx context.Context, a core.Account) (core.Account, error)
		GetAccount(ctx context.Context, id string) (core.Account, error)
		ListAccounts(ctx context.Context) ([]core.Account, error)
	}

	CategoryStore interface {
		InsertCategory(ctx context.Context, c core.Category) (core.Category, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	PartnerStore interface {
		InsertPartner(ctx context.Context, p core.Partner) (core.Partner, error)
		GetPartner(ctx context.Context, id string) (core.Partner, error)
		ListPartners(ctx context.Context) ([]core.Partner, error)
	}

	FixedExpenseStore interface {
		InsertFixedExpense(ctx context.Context, f core.FixedExpense) (core.FixedExpense, error)
		GetFixedExpense(ctx context.Context, id string) (core.FixedExpense, error)
		ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error)
	}

	SalaryStore interface {
		InsertSalary(ctx context.Context, s core.Salary) (core.Salary, error)
		GetSalary(ctx context.Context, id string) (core.Salary, error)
		ListSalaries(ctx context.Context) ([]core.Salary, error)
	}

	// Applier commits a list of operations atomically: either every op is
	// applied or none is.
	Applier interface {
		Apply(ctx context.Context, ops []Op) error
	}

	// Store is the full document store.
	Store interface {
		EntryReader
		EntryWriter
		AccountStore
		CategoryStore
		PartnerStore
		FixedExpenseStore
		SalaryStore
		Applier
		Ping(ctx context.Context) error
		Close() error
	}
)
