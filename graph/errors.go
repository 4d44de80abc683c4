// Package graph provides the core graph execution engine for stategraph.
package graph

import (
	"errors"
	"strconv"
)

// ErrCompile is wrapped by every CompileError so callers can test for any
// build-time graph defect with errors.Is.
var ErrCompile = errors.New("graph compile error")

// ErrStepLimitExceeded indicates that the run performed more transitions than
// the configured ceiling allows. It usually means the graph contains a cycle
// that never reaches End.
var ErrStepLimitExceeded = errors.New("execution exceeded maximum steps limit")

// ErrUnmappedBranch indicates that a conditional edge's branch function
// returned a key with no target in its mapping.
var ErrUnmappedBranch = errors.New("branch key has no mapped target")

// ErrUndeclaredWrite indicates that a node returned a field outside the
// write set declared with Writes.
var ErrUndeclaredWrite = errors.New("node wrote undeclared field")

// ErrMissingField indicates that a field declared with Reads is absent from
// the initial state and has no default.
var ErrMissingField = errors.New("required state field missing")

// ErrStreamConsumed is yielded when a stream is ranged over more than once.
var ErrStreamConsumed = errors.New("stream already consumed")

// Error codes carried by NodeError.Code.
const (
	CodeNodeFailed        = "NODE_FAILED"
	CodeNodePanic         = "NODE_PANIC"
	CodeNodeTimeout       = "NODE_TIMEOUT"
	CodeStepLimitExceeded = "STEP_LIMIT_EXCEEDED"
	CodeUnmappedBranch    = "UNMAPPED_BRANCH"
	CodeUndeclaredWrite   = "UNDECLARED_WRITE"
	CodeMissingField      = "MISSING_FIELD"
	CodeCancelled         = "CANCELLED"
)

// CompileError reports one structural defect found while compiling a graph.
// Compile joins one CompileError per defect; use errors.As to inspect the
// first one or errors.Is(err, ErrCompile) to test for any.
type CompileError struct {
	// Kind classifies the defect, e.g. "dangling_edge" or "unreachable".
	Kind string

	// Node is the node the defect was found on, if any.
	Node string

	// Reason is the human-readable description.
	Reason string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Node != "" {
		return "compile error: " + e.Kind + ": node " + strconv.Quote(e.Node) + ": " + e.Reason
	}
	return "compile error: " + e.Kind + ": " + e.Reason
}

// Unwrap returns ErrCompile.
func (e *CompileError) Unwrap() error {
	return ErrCompile
}

// EngineError represents misuse of the graph builder API, such as
// registering a node twice.
type EngineError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code for programmatic handling.
	Code string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
