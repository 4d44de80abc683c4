package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// sqlStore holds the logic shared by the database/sql backends. Insertion
// order is the auto-increment id, which both dialects' upserts preserve.
//
// Each dialect supplies its lookup and upsert statements. key returns the
// leading arguments that identify query in both; the upsert takes result,
// source and updated_at after them.
type sqlStore struct {
	db     *sql.DB
	lookup string
	upsert string
	key    func(query string) []any

	mu     sync.RWMutex
	closed bool
}

func (s *sqlStore) check() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Lookup implements Reader.
func (s *sqlStore) Lookup(ctx context.Context, query string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return "", false, err
	}

	var result string
	err := s.db.QueryRowContext(ctx, s.lookup, s.key(query)...).Scan(&result)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up memory: %w", err)
	}
	return result, true, nil
}

// Approve implements Store.
func (s *sqlStore) Approve(ctx context.Context, query, result string) error {
	return s.put(ctx, query, result, SourceApproved)
}

// Edit implements Store.
func (s *sqlStore) Edit(ctx context.Context, query, result string) error {
	return s.put(ctx, query, result, SourceEdited)
}

// put runs the upsert as a single statement so a cancelled context either
// commits the write or leaves the row untouched.
func (s *sqlStore) put(ctx context.Context, query, result string, source Source) error {
	if err := validate(query); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return err
	}

	args := append(s.key(query), result, string(source), time.Now().UnixMilli())
	if _, err := s.db.ExecContext(ctx, s.upsert, args...); err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// Entries implements Store.
func (s *sqlStore) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT query_text, result, source, updated_at FROM hitl_memory ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list memory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			source  string
			updated int64
		)
		if err := rows.Scan(&e.Query, &e.Result, &source, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan memory entry: %w", err)
		}
		e.Source = Source(source)
		e.UpdatedAt = time.UnixMilli(updated)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ping verifies the database is reachable.
func (s *sqlStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *sqlStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
