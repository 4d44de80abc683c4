package tool

import (
	"context"
	"sync"

	"github.com/dshills/stategraph/graph/model"
)

// MockTool is a scripted Tool for tests.
//
// Responses are returned in order and the last one repeats once exhausted.
// Handler, when set, computes the result from the arguments instead. Err
// fails every call. Every call is recorded, including failed ones.
//
//	echo := &tool.MockTool{
//	    ToolName: "echo",
//	    Handler:  func(args tool.Arguments) (string, error) { return args["x"], nil },
//	}
type MockTool struct {
	ToolName  string
	Spec      *model.ToolSpec
	Responses []string
	Handler   func(args Arguments) (string, error)
	Err       error

	// Calls tracks every invocation's arguments.
	Calls []Arguments

	mu        sync.Mutex
	callIndex int
}

// Name implements Tool.
func (m *MockTool) Name() string {
	return m.ToolName
}

// Describe implements Describer when Spec is set.
func (m *MockTool) Describe() model.ToolSpec {
	if m.Spec == nil {
		return model.ToolSpec{Name: m.ToolName}
	}
	return *m.Spec
}

// Call implements Tool.
func (m *MockTool) Call(ctx context.Context, args Arguments) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make(Arguments, len(args))
	for k, v := range args {
		copied[k] = v
	}
	m.Calls = append(m.Calls, copied)

	if m.Err != nil {
		return "", m.Err
	}
	if m.Handler != nil {
		return m.Handler(args)
	}
	if len(m.Responses) == 0 {
		return "", nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears the call history and rewinds the responses.
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns the number of calls received.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}
