// Package memory implements the human-in-the-loop memory store: approved or
// human-edited results keyed by the exact query string, consulted by nodes
// before they do real work.
//
// Entries are never invalidated, expired, or evicted.
package memory

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Source records how an entry's result was produced.
type Source string

const (
	SourceApproved Source = "approved"
	SourceEdited   Source = "edited"
)

// ErrEmptyQuery is returned when approving or editing a blank query.
var ErrEmptyQuery = errors.New("empty query")

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("memory store closed")

// Entry is one remembered result.
type Entry struct {
	Query     string
	Result    string
	Source    Source
	UpdatedAt time.Time
}

// Reader is the read-only view handed to nodes.
type Reader interface {
	// Lookup returns the result remembered for query, matched exactly.
	Lookup(ctx context.Context, query string) (result string, ok bool, err error)
}

// Store is a HITL memory. Implementations are safe for concurrent use;
// each write is atomic and the last writer for a query wins.
type Store interface {
	Reader

	// Approve records result verbatim under query, replacing any prior entry.
	Approve(ctx context.Context, query, result string) error

	// Edit records a human-modified result with the same overwrite
	// semantics as Approve.
	Edit(ctx context.Context, query, result string) error

	// Entries lists all entries in the order their queries were first
	// stored.
	Entries(ctx context.Context) ([]Entry, error)

	Close() error
}

func validate(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// Format renders entries for display.
func Format(entries []Entry) string {
	if len(entries) == 0 {
		return "Memory is empty"
	}
	lines := make([]string, 0, len(entries)*3)
	for _, e := range entries {
		lines = append(lines, "Query: "+e.Query, e.Result, strings.Repeat("-", 40))
	}
	return strings.Join(lines, "\n")
}
