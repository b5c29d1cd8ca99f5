package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
	ports "fluxo/internal/sheets"
)

func formatRow(r ports.LedgerRow) []any {
	return []any{r.EntryID, r.Date, string(r.Type), r.Description, r.Amount.StringFixed(2), r.Account, r.Category}
}

// parseRows converts a values matrix (as returned by Sheets API) into
// ledger rows. The header, cleared rows and rows with an unreadable
// amount are skipped.
func parseRows(values [][]any) []ports.LedgerRow {
	var out []ports.LedgerRow
	for i, raw := range values {
		cols := toStrings(raw)
		if i == 0 && strings.EqualFold(safeGet(cols, 0), "entry id") {
			continue
		}
		id := safeGet(cols, 0)
		if id == "" {
			continue
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(safeGet(cols, 4), ",", "."))
		if err != nil {
			continue
		}
		out = append(out, ports.LedgerRow{
			EntryID:     id,
			Date:        safeGet(cols, 1),
			Type:        core.EntryType(safeGet(cols, 2)),
			Description: safeGet(cols, 3),
			Amount:      amount,
			Account:     safeGet(cols, 5),
			Category:    safeGet(cols, 6),
		})
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
