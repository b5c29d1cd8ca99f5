package services

import "fmt"

// RefAction is what happens to a record that references a deleted one.
type RefAction int

const (
	// Ignore leaves referencing records untouched.
	Ignore RefAction = iota
	// Detach clears the reference and keeps the record.
	Detach
	// Cascade deletes the referencing record.
	Cascade
)

func (a RefAction) String() string {
	switch a {
	case Ignore:
		return "ignore"
	case Detach:
		return "detach"
	case Cascade:
		return "cascade"
	}
	return fmt.Sprintf("RefAction(%d)", int(a))
}

// DeletionPolicy tells, per referencing collection, how deleting an
// account or a category propagates.
type DeletionPolicy struct {
	Entries       RefAction
	Salaries      RefAction
	FixedExpenses RefAction
}

var (
	// AccountDeletion removes everything tied to the account: its entries,
	// the salaries debited from it and the fixed expenses paid from it.
	AccountDeletion = DeletionPolicy{Entries: Cascade, Salaries: Cascade, FixedExpenses: Cascade}

	// CategoryDeletion keeps the history: entries and fixed expenses lose
	// their category. Salaries carry no category.
	CategoryDeletion = DeletionPolicy{Entries: Detach, Salaries: Ignore, FixedExpenses: Detach}
)

// validForAccount reports whether p can be applied to an account. An
// account reference is mandatory everywhere, so it cannot be detached.
func (p DeletionPolicy) validForAccount() error {
	if p.Entries == Detach || p.Salaries == Detach || p.FixedExpenses == Detach {
		return fmt.Errorf("account references cannot be detached: %+v", p)
	}
	return nil
}

func (p DeletionPolicy) validForCategory() error {
	if p.Salaries != Ignore {
		return fmt.Errorf("salaries do not reference categories: %+v", p)
	}
	return nil
}

// DeletionReport counts what a deletion did to referencing records.
type DeletionReport struct {
	EntriesDeleted        int `json:"entriesDeleted"`
	EntriesDetached       int `json:"entriesDetached"`
	SalariesDeleted       int `json:"salariesDeleted"`
	FixedExpensesDeleted  int `json:"fixedExpensesDeleted"`
	FixedExpensesDetached int `json:"fixedExpensesDetached"`
}
