package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

// LedgerRow is the spreadsheet form of a ledger entry. Account and
// category are written by name so the sheet reads without lookups.
type LedgerRow struct {
	EntryID     string
	Date        string // YYYY-MM-DD in the business timezone
	Type        core.EntryType
	Description string
	Amount      decimal.Decimal
	Account     string
	Category    string
}

// NewLedgerRow builds the row of e.
func NewLedgerRow(e core.LedgerEntry, account, category string, loc *time.Location) LedgerRow {
	if loc == nil {
		loc = time.UTC
	}
	return LedgerRow{
		EntryID:     e.ID,
		Date:        e.OccurredAt.In(loc).Format(time.DateOnly),
		Type:        e.Type,
		Description: e.Description,
		Amount:      e.Amount,
		Account:     account,
		Category:    category,
	}
}

// LedgerMirror is an outbound copy of the ledger keyed by entry id.
type LedgerMirror interface {
	// Upsert writes the row, replacing any row with the same entry id.
	Upsert(ctx context.Context, row LedgerRow) error
	// Remove deletes the row of entryID. Missing rows are not an error.
	Remove(ctx context.Context, entryID string) error
	// Rows returns every mirrored row.
	Rows(ctx context.Context) ([]LedgerRow, error)
}
