package memory

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-process Store. Its lifetime is the process.
//
// A single RWMutex serializes writers against each other and against
// readers, so two approvals racing on one query resolve to whichever
// acquired the lock last.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
	closed  bool
	now     func() time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Lookup implements Reader.
func (m *MemStore) Lookup(ctx context.Context, query string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	e, ok := m.entries[query]
	if !ok {
		return "", false, nil
	}
	return e.Result, true, nil
}

// Approve implements Store.
func (m *MemStore) Approve(ctx context.Context, query, result string) error {
	return m.put(ctx, query, result, SourceApproved)
}

// Edit implements Store.
func (m *MemStore) Edit(ctx context.Context, query, result string) error {
	return m.put(ctx, query, result, SourceEdited)
}

func (m *MemStore) put(ctx context.Context, query, result string, source Source) error {
	if err := validate(query); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.entries[query]; !ok {
		m.order = append(m.order, query)
	}
	m.entries[query] = &Entry{Query: query, Result: result, Source: source, UpdatedAt: m.now()}
	return nil
}

// Entries implements Store.
func (m *MemStore) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Entry, 0, len(m.order))
	for _, q := range m.order {
		out = append(out, *m.entries[q])
	}
	return out, nil
}

// Len returns the number of entries.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close implements Store. Later calls fail with ErrClosed.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
