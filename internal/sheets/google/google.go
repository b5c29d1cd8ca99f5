package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	ports "fluxo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Ledger"

var header = []any{"Entry ID", "Date", "Type", "Description", "Amount", "Account", "Category"}

// Config selects the spreadsheet and the credentials. When neither
// credential field is set, GOOGLE_APPLICATION_CREDENTIALS or the options
// passed to New decide how requests are authenticated.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Client mirrors ledger rows into one sheet. Column A holds the entry id
// and is used to locate rows; row 1 is the header.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serializes read-modify-write sequences on the sheet.
	mu sync.Mutex
}

var _ ports.LedgerMirror = (*Client)(nil)

// New creates a Sheets client. Extra options are appended after the
// credential options.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}

	credOpts, err := credentialOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, append(credOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets mirror ready", "sheet", sheetName)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func credentialOptions(ctx context.Context, cfg Config) ([]goption.ClientOption, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, nil
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

func (c *Client) rng(cells string) string {
	return fmt.Sprintf("%s!%s", c.sheetName, cells)
}

// Upsert updates the row of row.EntryID in place or appends it.
func (c *Client) Upsert(ctx context.Context, row ports.LedgerRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if row.EntryID == "" {
		return errors.New("ledger row without entry id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	values := &gsheet.ValueRange{Values: [][]any{formatRow(row)}}

	if n := rowOf(ids, row.EntryID); n > 0 {
		target := c.rng(fmt.Sprintf("A%d:G%d", n, n))
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, values).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", target, err)
		}
		slog.DebugContext(ctx, "Mirrored row updated", "entry_id", row.EntryID, "row", n)
		return nil
	}

	if len(ids) == 0 {
		values.Values = append([][]any{header}, values.Values...)
	}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rng("A:G"), values).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	if resp.Updates != nil {
		slog.DebugContext(ctx, "Mirrored row appended", "entry_id", row.EntryID, "range", resp.Updates.UpdatedRange)
	}
	return nil
}

// Remove clears the row of entryID.
func (c *Client) Remove(ctx context.Context, entryID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	n := rowOf(ids, entryID)
	if n <= 0 {
		return nil
	}
	target := c.rng(fmt.Sprintf("A%d:G%d", n, n))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, target, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", target, err)
	}
	slog.DebugContext(ctx, "Mirrored row cleared", "entry_id", entryID, "row", n)
	return nil
}

// Rows reads every non-empty row below the header.
func (c *Client) Rows(ctx context.Context) ([]ports.LedgerRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	target := c.rng("A:G")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, target).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return parseRows(resp.Values), nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	target := c.rng("A:A")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, target).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

// rowOf returns the 1-based sheet row holding id, or 0.
func rowOf(ids []string, id string) int {
	for i, v := range ids {
		if i > 0 && v == id {
			return i + 1
		}
	}
	return 0
}
