package store

import (
	"context"

	"github.com/google/uuid"

	"fluxo/internal/core"
)

type OpKind int

const (
	OpCreate OpKind = iota + 1
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Op is one write of a batch. Entry is set for entry creates and updates,
// FixedExpense for fixed-expense updates.
type Op struct {
	Kind         OpKind
	Collection   Collection
	ID           string
	Entry        *core.LedgerEntry
	FixedExpense *core.FixedExpense
}

// Batch groups writes to be committed as one atomic unit.
type Batch struct {
	applier Applier
	ops     []Op
}

func NewBatch(a Applier) *Batch {
	return &Batch{applier: a}
}

// CreateEntry queues an insert and returns the id the entry will have.
func (b *Batch) CreateEntry(e core.LedgerEntry) string {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	b.ops = append(b.ops, Op{Kind: OpCreate, Collection: Entries, ID: e.ID, Entry: &e})
	return e.ID
}

func (b *Batch) UpdateEntry(e core.LedgerEntry) {
	b.ops = append(b.ops, Op{Kind: OpUpdate, Collection: Entries, ID: e.ID, Entry: &e})
}

func (b *Batch) UpdateFixedExpense(f core.FixedExpense) {
	b.ops = append(b.ops, Op{Kind: OpUpdate, Collection: FixedExpenses, ID: f.ID, FixedExpense: &f})
}

func (b *Batch) Delete(c Collection, id string) {
	b.ops = append(b.ops, Op{Kind: OpDelete, Collection: c, ID: id})
}

func (b *Batch) Len() int { return len(b.ops) }

// Ops returns a copy of the queued operations.
func (b *Batch) Ops() []Op {
	return append([]Op(nil), b.ops...)
}

// Commit applies every queued op atomically. An empty batch is a no-op.
func (b *Batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	return b.applier.Apply(ctx, b.ops)
}
