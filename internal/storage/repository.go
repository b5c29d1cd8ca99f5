package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fluxo/internal/core"
	"fluxo/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable implementation of store.Store.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return core.Transient("ping database", r.db.PingContext(ctx))
}

func (r *SQLiteRepository) identity(id string, created time.Time) (string, time.Time) {
	if id == "" {
		id = uuid.NewString()
	}
	if created.IsZero() {
		created = r.now()
	}
	return id, created
}

func (r *SQLiteRepository) InsertEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	e.ID, e.CreatedAt = r.identity(e.ID, e.CreatedAt)
	if err := r.queries.CreateEntry(ctx, e); err != nil {
		return core.LedgerEntry{}, classify("insert entry", err)
	}
	slog.DebugContext(ctx, "Ledger entry saved to SQLite", "id", e.ID, "type", e.Type, "amount", e.Amount.String())
	return e, nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	e, err := r.queries.GetEntry(ctx, id)
	if isNoRows(err) {
		return core.LedgerEntry{}, core.NotFound("entry", id)
	}
	return e, classify("get entry", err)
}

func (r *SQLiteRepository) QueryEntries(ctx context.Context, q store.EntryQuery) ([]core.LedgerEntry, error) {
	out, err := r.queries.QueryEntries(ctx, q)
	if err != nil {
		return nil, classify("query entries", err)
	}
	return out, nil
}

func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.ID, a.CreatedAt = r.identity(a.ID, a.CreatedAt)
	if err := r.queries.CreateAccount(ctx, a); err != nil {
		return core.Account{}, classify("insert account", err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, id)
	if isNoRows(err) {
		return core.Account{}, core.NotFound("account", id)
	}
	return a, classify("get account", err)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	out, err := r.queries.ListAccounts(ctx)
	return out, classify("list accounts", err)
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID, c.CreatedAt = r.identity(c.ID, c.CreatedAt)
	if err := r.queries.CreateCategory(ctx, c); err != nil {
		return core.Category{}, classify("insert category", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, id)
	if isNoRows(err) {
		return core.Category{}, core.NotFound("category", id)
	}
	return c, classify("get category", err)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	out, err := r.queries.ListCategories(ctx)
	return out, classify("list categories", err)
}

func (r *SQLiteRepository) InsertPartner(ctx context.Context, p core.Partner) (core.Partner, error) {
	p.ID, p.CreatedAt = r.identity(p.ID, p.CreatedAt)
	if err := r.queries.CreatePartner(ctx, p); err != nil {
		return core.Partner{}, classify("insert partner", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetPartner(ctx context.Context, id string) (core.Partner, error) {
	p, err := r.queries.GetPartner(ctx, id)
	if isNoRows(err) {
		return core.Partner{}, core.NotFound("partner", id)
	}
	return p, classify("get partner", err)
}

func (r *SQLiteRepository) ListPartners(ctx context.Context) ([]core.Partner, error) {
	out, err := r.queries.ListPartners(ctx)
	return out, classify("list partners", err)
}

func (r *SQLiteRepository) InsertFixedExpense(ctx context.Context, f core.FixedExpense) (core.FixedExpense, error) {
	f.ID, f.CreatedAt = r.identity(f.ID, f.CreatedAt)
	if err := r.queries.CreateFixedExpense(ctx, f); err != nil {
		return core.FixedExpense{}, classify("insert fixed expense", err)
	}
	return f, nil
}

func (r *SQLiteRepository) GetFixedExpense(ctx context.Context, id string) (core.FixedExpense, error) {
	f, err := r.queries.GetFixedExpense(ctx, id)
	if isNoRows(err) {
		return core.FixedExpense{}, core.NotFound("fixed expense", id)
	}
	return f, classify("get fixed expense", err)
}

func (r *SQLiteRepository) ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	out, err := r.queries.ListFixedExpenses(ctx)
	return out, classify("list fixed expenses", err)
}

func (r *SQLiteRepository) InsertSalary(ctx context.Context, s core.Salary) (core.Salary, error) {
	s.ID, s.CreatedAt = r.identity(s.ID, s.CreatedAt)
	if err := r.queries.CreateSalary(ctx, s); err != nil {
		return core.Salary{}, classify("insert salary", err)
	}
	return s, nil
}

func (r *SQLiteRepository) GetSalary(ctx context.Context, id string) (core.Salary, error) {
	s, err := r.queries.GetSalary(ctx, id)
	if isNoRows(err) {
		return core.Salary{}, core.NotFound("salary", id)
	}
	return s, classify("get salary", err)
}

func (r *SQLiteRepository) ListSalaries(ctx context.Context) ([]core.Salary, error) {
	out, err := r.queries.ListSalaries(ctx)
	return out, classify("list salaries", err)
}

// Apply runs every op in a single transaction.
func (r *SQLiteRepository) Apply(ctx context.Context, ops []store.Op) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin batch", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.ErrorContext(ctx, "Batch rollback failed", "error", rbErr)
			}
		}
	}()

	q := r.queries.WithTx(tx)
	for i, op := range ops {
		if err = r.applyOne(ctx, q, op); err != nil {
			return fmt.Errorf("op %d (%s %s): %w", i, op.Kind, op.Collection, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return classify("commit batch", err)
	}
	slog.DebugContext(ctx, "Batch committed to SQLite", "ops", len(ops))
	return nil
}

func (r *SQLiteRepository) applyOne(ctx context.Context, q *Queries, op store.Op) error {
	switch {
	case op.Collection == store.Entries && op.Kind == store.OpCreate:
		e := *op.Entry
		e.ID, e.CreatedAt = r.identity(e.ID, e.CreatedAt)
		return classify("create entry", q.CreateEntry(ctx, e))

	case op.Collection == store.Entries && op.Kind == store.OpUpdate:
		n, err := q.UpdateEntry(ctx, *op.Entry)
		if err != nil {
			return classify("update entry", err)
		}
		if n == 0 {
			return core.NotFound("entry", op.ID)
		}
		return nil

	case op.Collection == store.FixedExpenses && op.Kind == store.OpUpdate:
		n, err := q.UpdateFixedExpense(ctx, *op.FixedExpense)
		if err != nil {
			return classify("update fixed expense", err)
		}
		if n == 0 {
			return core.NotFound("fixed expense", op.ID)
		}
		return nil

	case op.Kind == store.OpDelete:
		n, err := q.Delete(ctx, op.Collection, op.ID)
		if err != nil {
			return classify("delete", err)
		}
		if n == 0 {
			return core.NotFound(string(op.Collection), op.ID)
		}
		return nil
	}
	return fmt.Errorf("unsupported %s on %s", op.Kind, op.Collection)
}

// classify maps driver errors onto the domain error kinds: uniqueness
// violations become ErrConflict, anything else is transient.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, core.ErrConflict)
	}
	return core.Transient(op, err)
}
