package graph

import (
	"fmt"
	"sync"
)

// Graph collects nodes and edges at build time. It is not executable; call
// Compile to validate it and obtain a Compiled plan for an Engine.
//
// Builder methods reject malformed individual calls (empty names, nil
// functions, duplicate registrations) with an *EngineError. Whole-graph
// properties such as reachability are checked by Compile.
//
// Type parameter S is the state type shared across the workflow.
type Graph[S any] struct {
	mu sync.Mutex

	reducer  Reducer[S]
	nodes    map[string]Node[S]
	policies map[string]NodePolicy
	order    []string
	edges    []Edge[S]
	entry    string
	defaults map[string]any
}

// NewGraph creates an empty graph merging partial states with reducer.
// Use Merge as the reducer for State.
func NewGraph[S any](reducer Reducer[S]) *Graph[S] {
	return &Graph[S]{
		reducer:  reducer,
		nodes:    make(map[string]Node[S]),
		policies: make(map[string]NodePolicy),
		defaults: make(map[string]any),
	}
}

// AddNode registers node under name.
func (g *Graph[S]) AddNode(name string, node Node[S], opts ...NodeOption) error {
	if name == "" {
		return &EngineError{Message: "node name cannot be empty", Code: "INVALID_NODE"}
	}
	if name == End {
		return &EngineError{Message: "node name " + End + " is reserved", Code: "INVALID_NODE"}
	}
	if node == nil {
		return &EngineError{Message: "node cannot be nil", Code: "INVALID_NODE"}
	}

	var policy NodePolicy
	for _, opt := range opts {
		opt(&policy)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[name]; exists {
		return &EngineError{Message: "duplicate node name: " + name, Code: "DUPLICATE_NODE"}
	}
	g.nodes[name] = node
	g.policies[name] = policy
	g.order = append(g.order, name)
	return nil
}

// SetEntry designates the entry node. Its existence is checked by Compile.
func (g *Graph[S]) SetEntry(name string) error {
	if name == "" {
		return &EngineError{Message: "entry node name cannot be empty", Code: "INVALID_ENTRY"}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entry = name
	return nil
}

// AddEdge adds a direct edge from -> to. to may be End.
func (g *Graph[S]) AddEdge(from, to string) error {
	if from == "" || to == "" {
		return &EngineError{Message: "edge endpoints cannot be empty", Code: "INVALID_EDGE"}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = append(g.edges, Edge[S]{From: from, Kind: Direct, To: to})
	return nil
}

// AddConditionalEdge adds a conditional edge leaving from. After from runs,
// branch decides a key on the merged state and targets maps it to the next
// node or End.
func (g *Graph[S]) AddConditionalEdge(from string, branch Branch[S], targets map[string]string) error {
	if from == "" {
		return &EngineError{Message: "edge source cannot be empty", Code: "INVALID_EDGE"}
	}
	if branch.Decide == nil {
		return &EngineError{Message: fmt.Sprintf("branch %q has no decide function", branch.Name), Code: "INVALID_EDGE"}
	}
	copied := make(map[string]string, len(targets))
	for k, v := range targets {
		copied[k] = v
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = append(g.edges, Edge[S]{From: from, Kind: Conditional, Branch: branch, Targets: copied})
	return nil
}

// SetDefault supplies a value for field when a key-addressable initial state
// lacks it. Defaults satisfy declared reads.
func (g *Graph[S]) SetDefault(field string, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.defaults[field] = value
}
