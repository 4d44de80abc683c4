package memory

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store persisted in a single SQLite file, so approvals
// survive restarts of a single-process deployment.
type SQLiteStore struct {
	sqlStore
	path string
}

// NewSQLiteStore opens or creates the database at path. ":memory:" gives a
// private in-memory database.
//
//	store, err := memory.NewSQLiteStore("./hitl.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time; a single connection also keeps
	// ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS hitl_memory (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query_text TEXT NOT NULL UNIQUE,
			result TEXT NOT NULL,
			source TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStore{
		sqlStore: sqlStore{
			db:     db,
			lookup: "SELECT result FROM hitl_memory WHERE query_text = ?",
			key:    func(query string) []any { return []any{query} },
			upsert: `INSERT INTO hitl_memory (query_text, result, source, updated_at) VALUES (?, ?, ?, ?)
				ON CONFLICT(query_text) DO UPDATE SET
					result = excluded.result,
					source = excluded.source,
					updated_at = excluded.updated_at`,
		},
		path: path,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}
