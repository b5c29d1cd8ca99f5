package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fluxo/internal/core"
	"fluxo/internal/store"
)

// Timestamps are stored as Unix nanoseconds, amounts as decimal text.

func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

const entryColumns = `id, type, description, amount, occurred_at, category_id, account_id,
	source_kind, source_id, period_key, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(r rowScanner) (core.LedgerEntry, error) {
	var (
		e                   core.LedgerEntry
		typ, kind           string
		occurred, createdAt int64
	)
	err := r.Scan(&e.ID, &typ, &e.Description, &e.Amount, &occurred, &e.CategoryID, &e.AccountID,
		&kind, &e.SourceID, &e.PeriodKey, &createdAt)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.Type = core.EntryType(typ)
	e.SourceKind = core.SourceKind(kind)
	e.OccurredAt = fromNanos(occurred)
	e.CreatedAt = fromNanos(createdAt)
	return e, nil
}

func (q *Queries) CreateEntry(ctx context.Context, e core.LedgerEntry) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.Description, e.Amount, toNanos(e.OccurredAt), e.CategoryID, e.AccountID,
		string(e.SourceKind), e.SourceID, e.PeriodKey, toNanos(e.CreatedAt))
	return err
}

func (q *Queries) UpdateEntry(ctx context.Context, e core.LedgerEntry) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE ledger_entries
		SET type = ?, description = ?, amount = ?, occurred_at = ?, category_id = ?, account_id = ?
		WHERE id = ?`,
		string(e.Type), e.Description, e.Amount, toNanos(e.OccurredAt), e.CategoryID, e.AccountID, e.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`, id)
	return scanEntry(row)
}

func (q *Queries) QueryEntries(ctx context.Context, f store.EntryQuery) ([]core.LedgerEntry, error) {
	var (
		where []string
		args  []interface{}
	)
	if !f.From.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, toNanos(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, toNanos(f.To))
	}
	if f.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.SourceID != "" {
		where = append(where, "source_id = ?")
		args = append(args, f.SourceID)
	}
	if f.PeriodKey != "" {
		where = append(where, "period_key = ?")
		args = append(args, f.PeriodKey)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + entryColumns + ` FROM ledger_entries`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY occurred_at %[1]s, created_at %[1]s, id %[1]s", dir)
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO accounts (id, name, bank, opening_balance, created_at)
		VALUES (?, ?, ?, ?, ?)`, a.ID, a.Name, a.Bank, a.OpeningBalance, toNanos(a.CreatedAt))
	return err
}

func scanAccount(r rowScanner) (core.Account, error) {
	var (
		a       core.Account
		created int64
	)
	if err := r.Scan(&a.ID, &a.Name, &a.Bank, &a.OpeningBalance, &created); err != nil {
		return core.Account{}, err
	}
	a.CreatedAt = fromNanos(created)
	return a, nil
}

func (q *Queries) GetAccount(ctx context.Context, id string) (core.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx,
		`SELECT id, name, bank, opening_balance, created_at FROM accounts WHERE id = ?`, id))
}

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return list(ctx, q.db, `SELECT id, name, bank, opening_balance, created_at
		FROM accounts ORDER BY name COLLATE NOCASE, id`, scanAccount)
}

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, toNanos(c.CreatedAt))
	return err
}

func scanCategory(r rowScanner) (core.Category, error) {
	var (
		c       core.Category
		created int64
	)
	if err := r.Scan(&c.ID, &c.Name, &created); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = fromNanos(created)
	return c, nil
}

func (q *Queries) GetCategory(ctx context.Context, id string) (core.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE id = ?`, id))
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	return list(ctx, q.db, `SELECT id, name, created_at FROM categories ORDER BY name COLLATE NOCASE, id`, scanCategory)
}

func (q *Queries) CreatePartner(ctx context.Context, p core.Partner) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO partners (id, name, profit_share_percent, created_at)
		VALUES (?, ?, ?, ?)`, p.ID, p.Name, p.ProfitSharePercent, toNanos(p.CreatedAt))
	return err
}

func scanPartner(r rowScanner) (core.Partner, error) {
	var (
		p       core.Partner
		created int64
	)
	if err := r.Scan(&p.ID, &p.Name, &p.ProfitSharePercent, &created); err != nil {
		return core.Partner{}, err
	}
	p.CreatedAt = fromNanos(created)
	return p, nil
}

func (q *Queries) GetPartner(ctx context.Context, id string) (core.Partner, error) {
	return scanPartner(q.db.QueryRowContext(ctx,
		`SELECT id, name, profit_share_percent, created_at FROM partners WHERE id = ?`, id))
}

func (q *Queries) ListPartners(ctx context.Context) ([]core.Partner, error) {
	return list(ctx, q.db, `SELECT id, name, profit_share_percent, created_at
		FROM partners ORDER BY name COLLATE NOCASE, id`, scanPartner)
}

const fixedColumns = `id, description, amount, category_id, default_account_id, due_day, created_at`

func (q *Queries) CreateFixedExpense(ctx context.Context, f core.FixedExpense) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO fixed_expenses (`+fixedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Description, f.Amount, f.CategoryID, f.DefaultAccountID, f.DueDay, toNanos(f.CreatedAt))
	return err
}

func (q *Queries) UpdateFixedExpense(ctx context.Context, f core.FixedExpense) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE fixed_expenses
		SET description = ?, amount = ?, category_id = ?, default_account_id = ?, due_day = ?
		WHERE id = ?`,
		f.Description, f.Amount, f.CategoryID, f.DefaultAccountID, f.DueDay, f.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanFixedExpense(r rowScanner) (core.FixedExpense, error) {
	var (
		f       core.FixedExpense
		created int64
	)
	if err := r.Scan(&f.ID, &f.Description, &f.Amount, &f.CategoryID, &f.DefaultAccountID, &f.DueDay, &created); err != nil {
		return core.FixedExpense{}, err
	}
	f.CreatedAt = fromNanos(created)
	return f, nil
}

func (q *Queries) GetFixedExpense(ctx context.Context, id string) (core.FixedExpense, error) {
	return scanFixedExpense(q.db.QueryRowContext(ctx,
		`SELECT `+fixedColumns+` FROM fixed_expenses WHERE id = ?`, id))
}

func (q *Queries) ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	return list(ctx, q.db, `SELECT `+fixedColumns+` FROM fixed_expenses
		ORDER BY description COLLATE NOCASE, id`, scanFixedExpense)
}

const salaryColumns = `id, employee_name, amount, payment_day, debit_account_id, created_at`

func (q *Queries) CreateSalary(ctx context.Context, s core.Salary) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO salaries (`+salaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.EmployeeName, s.Amount, s.PaymentDay, s.DebitAccountID, toNanos(s.CreatedAt))
	return err
}

func scanSalary(r rowScanner) (core.Salary, error) {
	var (
		s       core.Salary
		created int64
	)
	if err := r.Scan(&s.ID, &s.EmployeeName, &s.Amount, &s.PaymentDay, &s.DebitAccountID, &created); err != nil {
		return core.Salary{}, err
	}
	s.CreatedAt = fromNanos(created)
	return s, nil
}

func (q *Queries) GetSalary(ctx context.Context, id string) (core.Salary, error) {
	return scanSalary(q.db.QueryRowContext(ctx,
		`SELECT `+salaryColumns+` FROM salaries WHERE id = ?`, id))
}

func (q *Queries) ListSalaries(ctx context.Context) ([]core.Salary, error) {
	return list(ctx, q.db, `SELECT `+salaryColumns+` FROM salaries
		ORDER BY employee_name COLLATE NOCASE, id`, scanSalary)
}

var tables = map[store.Collection]string{
	store.Entries:       "ledger_entries",
	store.Accounts:      "accounts",
	store.Categories:    "categories",
	store.Partners:      "partners",
	store.FixedExpenses: "fixed_expenses",
	store.Salaries:      "salaries",
}

// Delete removes one row and returns the number of rows affected.
func (q *Queries) Delete(ctx context.Context, c store.Collection, id string) (int64, error) {
	table, ok := tables[c]
	if !ok {
		return 0, fmt.Errorf("unknown collection %q", c)
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func list[T any](ctx context.Context, db DBTX, query string, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
