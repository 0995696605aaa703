package tabular

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// FormatID renders a human-readable sequential identifier, e.g. OWN-000042.
func FormatID(prefix string, n int) string {
	return fmt.Sprintf("%s%06d", prefix, n)
}

// RowCountID derives an identifier from the current visible row count of a
// table, including the header row.
//
// This is the legacy issuance scheme and it is not atomic: two concurrent
// creations that observe the same row count before either has appended will
// compute the same identifier. New code must issue ids through a Sequencer;
// this function remains for compatibility with tables populated before the
// counters existed.
func RowCountID(ctx context.Context, s Store, table, prefix string) (string, error) {
	n, err := s.RowCount(ctx, table)
	if err != nil {
		return "", fmt.Errorf("row count id: %w", err)
	}
	return FormatID(prefix, n), nil
}

// Sequencer issues unique, monotonically increasing sequence numbers per
// named counter.
type Sequencer interface {
	Next(ctx context.Context, name string) (int, error)
}

// MemorySequencer serializes issuance behind a single mutex. Suitable for
// tests and single-process development against the Memory store.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewMemorySequencer returns a sequencer with all counters at zero.
func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[string]int)}
}

func (m *MemorySequencer) Next(_ context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
	return m.counters[name], nil
}

// Seed sets a counter's current value, used when adopting tables that
// already contain rows issued by the legacy scheme.
func (m *MemorySequencer) Seed(name string, value int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters[name] < value {
		m.counters[name] = value
	}
}

// PostgresSequencer issues sequence numbers through an atomic upsert on the
// tab_counters table, removing the row-count race across processes.
type PostgresSequencer struct {
	db *sqlx.DB
}

// NewPostgresSequencer wraps an open connection pool.
func NewPostgresSequencer(db *sqlx.DB) *PostgresSequencer {
	return &PostgresSequencer{db: db}
}

func (p *PostgresSequencer) Next(ctx context.Context, name string) (int, error) {
	var value int
	err := p.db.GetContext(ctx, &value,
		`INSERT INTO tab_counters (name, value) VALUES ($1, 1)
		 ON CONFLICT (name) DO UPDATE SET value = tab_counters.value + 1
		 RETURNING value`, name)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", name, err)
	}
	return value, nil
}
