package roster

import (
	"context"
	"sync"
)

// MemorySource keeps the sheet in memory. It backs the development server and tests.
type MemorySource struct {
	mu   sync.Mutex
	rows [][]string

	// FailNext, when set, is returned by the next call and then cleared.
	FailNext error
}

// NewMemorySource creates a source seeded with rows (header row first).
func NewMemorySource(rows [][]string) *MemorySource {
	return &MemorySource{rows: cloneRows(rows)}
}

func (m *MemorySource) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

// Rows returns a copy of every row.
func (m *MemorySource) Rows(_ context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	return padRows(cloneRows(m.rows)), nil
}

// WriteRow replaces row rowIndex (1-based).
func (m *MemorySource) WriteRow(_ context.Context, rowIndex int, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if rowIndex < 2 {
		return ErrInvalidRow
	}
	for len(m.rows) < rowIndex {
		m.rows = append(m.rows, nil)
	}
	m.rows[rowIndex-1] = append([]string(nil), values...)
	return nil
}

// AppendRow adds values as the last row.
func (m *MemorySource) AppendRow(_ context.Context, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.rows = append(m.rows, append([]string(nil), values...))
	return nil
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
