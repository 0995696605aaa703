// Package tabular is the access layer for the external named-table datastore.
// Tables are flat ordered lists of string columns; rows are string-typed and
// append-ordered. The contract is deliberately the lowest common denominator
// of a remote tabular store: no transactions, no server-side autoincrement,
// no typed columns.
package tabular

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTable is returned when an operation references a table that was
// never ensured.
var ErrNoTable = errors.New("tabular: no such table")

// HeaderRowIndex is the absolute position of the header row. Data rows
// start at HeaderRowIndex+1, matching the addressing used by UpdateCell.
const HeaderRowIndex = 1

// Row is one data row together with its absolute position in the table.
type Row struct {
	Index int
	Cells []string
}

// Get returns the cell at column position i, or "" when the row is shorter
// than the header (rows written before an additive header migration).
func (r Row) Get(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Store is the tabular datastore contract.
//
// Implementations must preserve strict append order for ScanRows (oldest
// first) and must never reorder or destroy existing columns or data:
// EnsureTable performs additive-only header migration. UpdateCell locates
// the target by a fresh scan of the header and row set on every call; no
// cached row index is trusted across calls.
type Store interface {
	// EnsureTable creates the table with the given header when absent, and
	// appends any missing required columns to the header when present.
	EnsureTable(ctx context.Context, name string, columns []string) error

	// Header returns the current ordered column list.
	Header(ctx context.Context, name string) ([]string, error)

	// AppendRow appends one row positioned after all existing rows.
	AppendRow(ctx context.Context, name string, values []string) error

	// ScanRows returns all data rows in strict append order, oldest first.
	ScanRows(ctx context.Context, name string) ([]Row, error)

	// UpdateCell sets a single cell addressed by absolute row index and
	// column name. It reports false, with a nil error, when the row or
	// column cannot be located.
	UpdateCell(ctx context.Context, name string, rowIndex int, column string, value string) (bool, error)

	// RowCount returns the number of rows currently visible, including the
	// header row.
	RowCount(ctx context.Context, name string) (int, error)
}

// Order selects scan direction for Filter.
type Order int

const (
	// OldestFirst keeps strict append order.
	OldestFirst Order = iota
	// NewestFirst reverses append order after scanning.
	NewestFirst
)

// Filter scans a table and returns rows matching pred in the requested
// order, up to limit (limit <= 0 means no limit). It is the single query
// primitive: all lookups are full-table scans at this system's scale.
func Filter(ctx context.Context, s Store, table string, pred func(Row) bool, order Order, limit int) ([]Row, error) {
	rows, err := s.ScanRows(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", table, err)
	}
	var out []Row
	if order == NewestFirst {
		for i := len(rows) - 1; i >= 0; i-- {
			if pred == nil || pred(rows[i]) {
				out = append(out, rows[i])
				if limit > 0 && len(out) >= limit {
					break
				}
			}
		}
		return out, nil
	}
	for _, r := range rows {
		if pred == nil || pred(r) {
			out = append(out, r)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// ColumnIndex resolves a column name to its position in the header, or -1.
func ColumnIndex(header []string, column string) int {
	for i, h := range header {
		if h == column {
			return i
		}
	}
	return -1
}
