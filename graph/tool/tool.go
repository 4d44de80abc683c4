// Package tool defines the tools a tool-calling agent may invoke and a
// registry that dispatches model-requested calls to them.
package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/stategraph/graph/model"
)

// Arguments are the string arguments of one tool call.
type Arguments = map[string]string

// Tool is an executable capability a model can request.
//
// Call receives the model's arguments and returns the text handed back to
// the model as the tool result.
//
// Example implementation:
//
//	type EchoTool struct{}
//
//	func (EchoTool) Name() string { return "echo" }
//
//	func (EchoTool) Call(ctx context.Context, args tool.Arguments) (string, error) {
//	    return args["x"], nil
//	}
type Tool interface {
	// Name returns the identifier the model uses to request the tool.
	// Names should be lowercase with underscores, e.g. "search_house_prices".
	Name() string

	Call(ctx context.Context, args Arguments) (string, error)
}

// Describer is implemented by tools that publish a schema to the model.
// Tools without one are offered by name only.
type Describer interface {
	Describe() model.ToolSpec
}

// ErrUnknownTool is returned by Registry.Call for an unregistered name.
var ErrUnknownTool = errors.New("unknown tool")

// ErrDuplicateTool is returned by Registry.Register for a name already in use.
var ErrDuplicateTool = errors.New("duplicate tool")

// Registry maps tool names to tools. Tools are registered when the agent
// is built; lookups are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry holding tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	if err := r.Register(tools...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds tools. It fails without registering anything if a name is
// empty or already taken.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tools == nil {
		r.tools = make(map[string]Tool, len(tools))
	}
	seen := make(map[string]bool, len(tools))
	for _, t := range tools {
		if t == nil {
			return errors.New("tool is nil")
		}
		name := t.Name()
		if name == "" {
			return errors.New("tool name is empty")
		}
		if _, ok := r.tools[name]; ok || seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
		}
		seen[name] = true
	}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns the tool specs offered to the model, sorted by name.
func (r *Registry) Specs() []model.ToolSpec {
	names := r.Names()
	specs := make([]model.ToolSpec, 0, len(names))
	for _, name := range names {
		t, _ := r.Get(name)
		if d, ok := t.(Describer); ok {
			spec := d.Describe()
			spec.Name = name
			specs = append(specs, spec)
			continue
		}
		specs = append(specs, model.ToolSpec{Name: name})
	}
	return specs
}

// Call executes call against the registered tool of the same name.
func (r *Registry) Call(ctx context.Context, call model.ToolCall) (string, error) {
	t, ok := r.Get(call.Name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	args := call.Arguments
	if args == nil {
		args = Arguments{}
	}
	return t.Call(ctx, args)
}
