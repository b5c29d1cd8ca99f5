package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fluxo/internal/core"
	"fluxo/internal/events"
	"fluxo/internal/store"
)

// ReferenceStore is the part of the store the reference service needs.
type ReferenceStore interface {
	store.EntryReader
	store.AccountStore
	store.CategoryStore
	store.PartnerStore
	store.FixedExpenseStore
	store.SalaryStore
	store.Applier
}

// ReferenceService manages accounts, categories, partners and recurring
// definitions.
type ReferenceService struct {
	store          ReferenceStore
	publisher      events.Publisher
	accountPolicy  DeletionPolicy
	categoryPolicy DeletionPolicy
}

type ReferenceOption func(*ReferenceService)

// WithAccountPolicy overrides AccountDeletion.
func WithAccountPolicy(p DeletionPolicy) ReferenceOption {
	return func(s *ReferenceService) { s.accountPolicy = p }
}

// WithCategoryPolicy overrides CategoryDeletion.
func WithCategoryPolicy(p DeletionPolicy) ReferenceOption {
	return func(s *ReferenceService) { s.categoryPolicy = p }
}

func NewReferenceService(s ReferenceStore, publisher events.Publisher, opts ...ReferenceOption) (*ReferenceService, error) {
	if publisher == nil {
		publisher = events.Nop{}
	}
	svc := &ReferenceService{
		store:          s,
		publisher:      publisher,
		accountPolicy:  AccountDeletion,
		categoryPolicy: CategoryDeletion,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if err := svc.accountPolicy.validForAccount(); err != nil {
		return nil, err
	}
	if err := svc.categoryPolicy.validForCategory(); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *ReferenceService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.ID = ""
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	saved, err := s.store.InsertAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	s.publish(ctx, store.Accounts, events.Created, saved.ID)
	return saved, nil
}

func (s *ReferenceService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

func (s *ReferenceService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = ""
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.store.InsertCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.publish(ctx, store.Categories, events.Created, saved.ID)
	return saved, nil
}

func (s *ReferenceService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *ReferenceService) CreatePartner(ctx context.Context, p core.Partner) (core.Partner, error) {
	p.ID = ""
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return core.Partner{}, err
	}
	saved, err := s.store.InsertPartner(ctx, p)
	if err != nil {
		return core.Partner{}, fmt.Errorf("save partner: %w", err)
	}
	s.publish(ctx, store.Partners, events.Created, saved.ID)
	return saved, nil
}

func (s *ReferenceService) ListPartners(ctx context.Context) ([]core.Partner, error) {
	return s.store.ListPartners(ctx)
}

func (s *ReferenceService) DeletePartner(ctx context.Context, id string) error {
	return s.deleteOne(ctx, store.Partners, id, func() error {
		_, err := s.store.GetPartner(ctx, id)
		return err
	})
}

func (s *ReferenceService) CreateFixedExpense(ctx context.Context, f core.FixedExpense) (core.FixedExpense, error) {
	f.ID = ""
	if err := f.Validate(); err != nil {
		return core.FixedExpense{}, err
	}
	if _, err := s.store.GetAccount(ctx, f.DefaultAccountID); err != nil {
		return core.FixedExpense{}, err
	}
	if f.CategoryID != "" {
		if _, err := s.store.GetCategory(ctx, f.CategoryID); err != nil {
			return core.FixedExpense{}, err
		}
	}
	saved, err := s.store.InsertFixedExpense(ctx, f)
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("save fixed expense: %w", err)
	}
	s.publish(ctx, store.FixedExpenses, events.Created, saved.ID)
	return saved, nil
}

func (s *ReferenceService) ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	return s.store.ListFixedExpenses(ctx)
}

// DeleteFixedExpense removes the definition. Entries already generated
// from it stay in the ledger.
func (s *ReferenceService) DeleteFixedExpense(ctx context.Context, id string) error {
	return s.deleteOne(ctx, store.FixedExpenses, id, func() error {
		_, err := s.store.GetFixedExpense(ctx, id)
		return err
	})
}

func (s *ReferenceService) CreateSalary(ctx context.Context, sal core.Salary) (core.Salary, error) {
	sal.ID = ""
	sal.EmployeeName = strings.TrimSpace(sal.EmployeeName)
	if err := sal.Validate(); err != nil {
		return core.Salary{}, err
	}
	if _, err := s.store.GetAccount(ctx, sal.DebitAccountID); err != nil {
		return core.Salary{}, err
	}
	saved, err := s.store.InsertSalary(ctx, sal)
	if err != nil {
		return core.Salary{}, fmt.Errorf("save salary: %w", err)
	}
	s.publish(ctx, store.Salaries, events.Created, saved.ID)
	return saved, nil
}

func (s *ReferenceService) ListSalaries(ctx context.Context) ([]core.Salary, error) {
	return s.store.ListSalaries(ctx)
}

// DeleteSalary removes the definition. Entries already generated from it
// stay in the ledger.
func (s *ReferenceService) DeleteSalary(ctx context.Context, id string) error {
	return s.deleteOne(ctx, store.Salaries, id, func() error {
		_, err := s.store.GetSalary(ctx, id)
		return err
	})
}

// DeleteAccount deletes the account and applies the account policy to
// every record referencing it, in one atomic batch.
func (s *ReferenceService) DeleteAccount(ctx context.Context, id string) (DeletionReport, error) {
	var rep DeletionReport
	if _, err := s.store.GetAccount(ctx, id); err != nil {
		return rep, err
	}
	p := s.accountPolicy
	b := store.NewBatch(s.store)
	changed := map[store.Collection][]string{}

	if p.Entries == Cascade {
		entries, err := s.store.QueryEntries(ctx, store.EntryQuery{AccountID: id})
		if err != nil {
			return rep, fmt.Errorf("find account entries: %w", err)
		}
		for _, e := range entries {
			b.Delete(store.Entries, e.ID)
			changed[store.Entries] = append(changed[store.Entries], e.ID)
		}
		rep.EntriesDeleted = len(entries)
	}

	if p.Salaries == Cascade {
		salaries, err := s.store.ListSalaries(ctx)
		if err != nil {
			return rep, fmt.Errorf("find account salaries: %w", err)
		}
		for _, sal := range salaries {
			if sal.DebitAccountID == id {
				b.Delete(store.Salaries, sal.ID)
				changed[store.Salaries] = append(changed[store.Salaries], sal.ID)
				rep.SalariesDeleted++
			}
		}
	}

	if p.FixedExpenses == Cascade {
		fixed, err := s.store.ListFixedExpenses(ctx)
		if err != nil {
			return rep, fmt.Errorf("find account fixed expenses: %w", err)
		}
		for _, f := range fixed {
			if f.DefaultAccountID == id {
				b.Delete(store.FixedExpenses, f.ID)
				changed[store.FixedExpenses] = append(changed[store.FixedExpenses], f.ID)
				rep.FixedExpensesDeleted++
			}
		}
	}

	b.Delete(store.Accounts, id)
	if err := b.Commit(ctx); err != nil {
		return DeletionReport{}, fmt.Errorf("delete account: %w", err)
	}

	s.publish(ctx, store.Accounts, events.Deleted, id)
	for _, c := range []store.Collection{store.Entries, store.Salaries, store.FixedExpenses} {
		if ids := changed[c]; len(ids) > 0 {
			s.publish(ctx, c, events.Deleted, ids...)
		}
	}
	slog.InfoContext(ctx, "Account deleted",
		"account_id", id,
		"entries_deleted", rep.EntriesDeleted,
		"salaries_deleted", rep.SalariesDeleted,
		"fixed_expenses_deleted", rep.FixedExpensesDeleted)
	return rep, nil
}

// DeleteCategory deletes the category and applies the category policy to
// every record referencing it, in one atomic batch.
func (s *ReferenceService) DeleteCategory(ctx context.Context, id string) (DeletionReport, error) {
	var rep DeletionReport
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return rep, err
	}
	p := s.categoryPolicy
	b := store.NewBatch(s.store)
	var updatedEntries, deletedEntries, updatedFixed, deletedFixed []string

	if p.Entries != Ignore {
		entries, err := s.store.QueryEntries(ctx, store.EntryQuery{CategoryID: id})
		if err != nil {
			return rep, fmt.Errorf("find category entries: %w", err)
		}
		for _, e := range entries {
			if p.Entries == Cascade {
				b.Delete(store.Entries, e.ID)
				deletedEntries = append(deletedEntries, e.ID)
				continue
			}
			e.CategoryID = ""
			b.UpdateEntry(e)
			updatedEntries = append(updatedEntries, e.ID)
		}
	}

	if p.FixedExpenses != Ignore {
		fixed, err := s.store.ListFixedExpenses(ctx)
		if err != nil {
			return rep, fmt.Errorf("find category fixed expenses: %w", err)
		}
		for _, f := range fixed {
			if f.CategoryID != id {
				continue
			}
			if p.FixedExpenses == Cascade {
				b.Delete(store.FixedExpenses, f.ID)
				deletedFixed = append(deletedFixed, f.ID)
				continue
			}
			f.CategoryID = ""
			b.UpdateFixedExpense(f)
			updatedFixed = append(updatedFixed, f.ID)
		}
	}

	b.Delete(store.Categories, id)
	if err := b.Commit(ctx); err != nil {
		return DeletionReport{}, fmt.Errorf("delete category: %w", err)
	}

	rep.EntriesDetached, rep.EntriesDeleted = len(updatedEntries), len(deletedEntries)
	rep.FixedExpensesDetached, rep.FixedExpensesDeleted = len(updatedFixed), len(deletedFixed)

	s.publish(ctx, store.Categories, events.Deleted, id)
	if len(updatedEntries) > 0 {
		s.publish(ctx, store.Entries, events.Updated, updatedEntries...)
	}
	if len(deletedEntries) > 0 {
		s.publish(ctx, store.Entries, events.Deleted, deletedEntries...)
	}
	if len(updatedFixed) > 0 {
		s.publish(ctx, store.FixedExpenses, events.Updated, updatedFixed...)
	}
	if len(deletedFixed) > 0 {
		s.publish(ctx, store.FixedExpenses, events.Deleted, deletedFixed...)
	}
	slog.InfoContext(ctx, "Category deleted",
		"category_id", id,
		"entries_detached", rep.EntriesDetached,
		"fixed_expenses_detached", rep.FixedExpensesDetached)
	return rep, nil
}

func (s *ReferenceService) deleteOne(ctx context.Context, c store.Collection, id string, exists func() error) error {
	if err := exists(); err != nil {
		return err
	}
	b := store.NewBatch(s.store)
	b.Delete(c, id)
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", c, err)
	}
	s.publish(ctx, c, events.Deleted, id)
	return nil
}

func (s *ReferenceService) publish(ctx context.Context, c store.Collection, action events.Action, ids ...string) {
	if err := s.publisher.Publish(ctx, events.Change{Collection: c, Action: action, IDs: ids}); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change", "collection", c, "action", action, "error", err)
	}
}
