package tabular

import (
	"context"
	"sync"
)

type memTable struct {
	header []string
	rows   [][]string
}

// Memory is an in-process Store used by tests and local development.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*memTable
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*memTable)}
}

func (m *Memory) EnsureTable(_ context.Context, name string, columns []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[name]
	if !ok {
		t = &memTable{header: append([]string(nil), columns...)}
		m.tables[name] = t
		return nil
	}

	// Additive-only migration: append missing columns, never reorder.
	present := make(map[string]struct{}, len(t.header))
	for _, h := range t.header {
		present[h] = struct{}{}
	}
	for _, c := range columns {
		if _, ok := present[c]; !ok {
			t.header = append(t.header, c)
		}
	}
	return nil
}

func (m *Memory) Header(_ context.Context, name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return nil, ErrNoTable
	}
	return append([]string(nil), t.header...), nil
}

func (m *Memory) AppendRow(_ context.Context, name string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	if !ok {
		return ErrNoTable
	}
	t.rows = append(t.rows, append([]string(nil), values...))
	return nil
}

func (m *Memory) ScanRows(_ context.Context, name string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return nil, ErrNoTable
	}
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		cells := make([]string, len(t.header))
		copy(cells, r)
		out[i] = Row{Index: HeaderRowIndex + 1 + i, Cells: cells}
	}
	return out, nil
}

func (m *Memory) UpdateCell(_ context.Context, name string, rowIndex int, column string, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	if !ok {
		return false, nil
	}
	col := ColumnIndex(t.header, column)
	if col < 0 {
		return false, nil
	}
	i := rowIndex - HeaderRowIndex - 1
	if i < 0 || i >= len(t.rows) {
		return false, nil
	}
	row := t.rows[i]
	for len(row) <= col {
		row = append(row, "")
	}
	row[col] = value
	t.rows[i] = row
	return true, nil
}

func (m *Memory) RowCount(_ context.Context, name string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return 0, ErrNoTable
	}
	return len(t.rows) + 1, nil
}
