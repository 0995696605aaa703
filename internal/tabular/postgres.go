package tabular

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres implements Store over a SQL database. Each named table maps to a
// real table of TEXT columns plus a hidden "_seq" BIGSERIAL preserving
// append order. EnsureTable issues additive ALTER TABLE statements only.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

const seqColumn = "_seq"

func (p *Postgres) EnsureTable(ctx context.Context, name string, columns []string) error {
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s BIGSERIAL PRIMARY KEY)",
		pq.QuoteIdentifier(name), pq.QuoteIdentifier(seqColumn))
	if _, err := p.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("ensure table %s: %w", name, err)
	}

	header, err := p.Header(ctx, name)
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	for _, c := range columns {
		if _, ok := present[c]; ok {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s TEXT",
			pq.QuoteIdentifier(name), pq.QuoteIdentifier(c))
		if _, err := p.db.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("add column %s.%s: %w", name, c, err)
		}
	}
	return nil
}

func (p *Postgres) Header(ctx context.Context, name string) ([]string, error) {
	var cols []string
	err := p.db.SelectContext(ctx, &cols,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1
		 ORDER BY ordinal_position`, name)
	if err != nil {
		return nil, fmt.Errorf("header %s: %w", name, err)
	}
	if len(cols) == 0 {
		return nil, ErrNoTable
	}
	out := cols[:0]
	for _, c := range cols {
		if c != seqColumn {
			out = append(out, c)
		}
	}
	return out, nil
}

func (p *Postgres) AppendRow(ctx context.Context, name string, values []string) error {
	header, err := p.Header(ctx, name)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		return fmt.Errorf("append to %s: empty header", name)
	}

	cols := make([]string, len(header))
	params := make([]string, len(header))
	args := make([]any, len(header))
	for i, h := range header {
		cols[i] = pq.QuoteIdentifier(h)
		params[i] = fmt.Sprintf("$%d", i+1)
		if i < len(values) {
			args[i] = values[i]
		} else {
			args[i] = ""
		}
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(name), strings.Join(cols, ", "), strings.Join(params, ", "))
	if _, err := p.db.ExecContext(ctx, insert, args...); err != nil {
		return fmt.Errorf("append to %s: %w", name, err)
	}
	return nil
}

func (p *Postgres) ScanRows(ctx context.Context, name string) ([]Row, error) {
	header, err := p.Header(ctx, name)
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = fmt.Sprintf("COALESCE(%s, '')", pq.QuoteIdentifier(h))
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), pq.QuoteIdentifier(name), pq.QuoteIdentifier(seqColumn))

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}
	defer rows.Close()

	var out []Row
	idx := HeaderRowIndex + 1
	for rows.Next() {
		cells := make([]string, len(header))
		dest := make([]any, len(header))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		out = append(out, Row{Index: idx, Cells: cells})
		idx++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}
	return out, nil
}

func (p *Postgres) UpdateCell(ctx context.Context, name string, rowIndex int, column string, value string) (bool, error) {
	header, err := p.Header(ctx, name)
	if err != nil {
		if err == ErrNoTable {
			return false, nil
		}
		return false, err
	}
	if ColumnIndex(header, column) < 0 {
		return false, nil
	}

	offset := rowIndex - HeaderRowIndex - 1
	if offset < 0 {
		return false, nil
	}

	// Re-resolve the target row by append order on every call; _seq values
	// are not assumed dense.
	var seq int64
	err = p.db.GetContext(ctx, &seq,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY %s OFFSET $1 LIMIT 1",
			pq.QuoteIdentifier(seqColumn), pq.QuoteIdentifier(name), pq.QuoteIdentifier(seqColumn)),
		offset)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("update %s: %w", name, err)
	}

	res, err := p.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s = $1 WHERE %s = $2",
			pq.QuoteIdentifier(name), pq.QuoteIdentifier(column), pq.QuoteIdentifier(seqColumn)),
		value, seq)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", name, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (p *Postgres) RowCount(ctx context.Context, name string) (int, error) {
	var n int
	err := p.db.GetContext(ctx, &n,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(name)))
	if err != nil {
		return 0, fmt.Errorf("row count %s: %w", name, err)
	}
	return n + 1, nil
}
