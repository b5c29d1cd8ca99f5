package memory

import (
	"context"
	"sync"

	"fluxo/internal/sheets"
)

// Mirror keeps rows in insertion order.
type Mirror struct {
	mu    sync.Mutex
	order []string
	rows  map[string]sheets.LedgerRow
}

var _ sheets.LedgerMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[string]sheets.LedgerRow{}}
}

func (m *Mirror) Upsert(_ context.Context, row sheets.LedgerRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[row.EntryID]; !ok {
		m.order = append(m.order, row.EntryID)
	}
	m.rows[row.EntryID] = row
	return nil
}

func (m *Mirror) Remove(_ context.Context, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[entryID]; !ok {
		return nil
	}
	delete(m.rows, entryID)
	for i, id := range m.order {
		if id == entryID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Mirror) Rows(_ context.Context) ([]sheets.LedgerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sheets.LedgerRow, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out, nil
}
