package table

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory Backend. It is safe for concurrent use.
// Data is lost on restart.
type Memory struct {
	mu      sync.RWMutex
	headers map[string][]string
	rows    map[string][]Row
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		headers: make(map[string][]string),
		rows:    make(map[string][]Row),
	}
}

// EnsureTable implements Backend.
func (m *Memory) EnsureTable(ctx context.Context, name string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.headers[name]; !ok {
		m.headers[name] = append([]string(nil), header...)
	}
	return nil
}

// ReadRows implements Backend.
func (m *Memory) ReadRows(ctx context.Context, name string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.rows[name]
	out := make([]Row, len(src))
	for i, r := range src {
		// Copy so callers cannot mutate stored rows
		out[i] = append(Row(nil), r...)
	}
	return out, nil
}

// AppendRow implements Backend.
func (m *Memory) AppendRow(ctx context.Context, name string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows[name] = append(m.rows[name], append(Row(nil), row...))
	return nil
}

// DeleteRow implements Backend.
func (m *Memory) DeleteRow(ctx context.Context, name string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[name]
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("DeleteRow: %s[%d]: %w", name, index, ErrRowNotFound)
	}
	m.rows[name] = append(rows[:index:index], rows[index+1:]...)
	return nil
}

// Header returns the header registered for name.
func (m *Memory) Header(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.headers[name]...)
}

// Close implements Backend.
func (m *Memory) Close() error {
	return nil
}

var _ Backend = (*Memory)(nil)
