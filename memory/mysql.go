package memory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a Store shared by several processes through MySQL or
// MariaDB.
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore connects to dsn and creates the schema if needed.
//
//	user:password@tcp(localhost:3306)/stategraph
//
// Read the DSN from configuration or the environment, never from source.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	// query_text is binary so comparisons see every byte, trailing spaces
	// included. The unique key is the SHA-256 of the query, which keeps
	// arbitrarily long queries indexable.
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS hitl_memory (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			query_hash BINARY(32) NOT NULL,
			query_text MEDIUMBLOB NOT NULL,
			result MEDIUMTEXT NOT NULL,
			source VARCHAR(16) NOT NULL,
			updated_at BIGINT NOT NULL,
			UNIQUE KEY unique_query (query_hash)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &MySQLStore{sqlStore{
		db:     db,
		lookup: "SELECT result FROM hitl_memory WHERE query_hash = ? AND query_text = ?",
		key:    mysqlKey,
		upsert: `INSERT INTO hitl_memory (query_hash, query_text, result, source, updated_at) VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				result = VALUES(result),
				source = VALUES(source),
				updated_at = VALUES(updated_at)`,
	}}, nil
}

// mysqlKey returns the hash and text columns that identify query.
func mysqlKey(query string) []any {
	sum := sha256.Sum256([]byte(query))
	return []any{sum[:], []byte(query)}
}
