package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Compiled is a validated, immutable execution plan. It is safe to share
// between engines and concurrent runs.
type Compiled[S any] struct {
	reducer  Reducer[S]
	nodes    map[string]Node[S]
	policies map[string]NodePolicy
	edges    map[string]Edge[S]
	entry    string
	defaults map[string]any
}

// Compile validates the graph and assembles an executable plan.
//
// It checks that:
//   - a reducer is configured and an entry node is set and registered
//   - every edge leaves a registered node
//   - every direct target and every mapped conditional target is a
//     registered node or End
//   - every declared branch key has a mapped target
//   - every node has exactly one outgoing edge definition
//   - every node is reachable from the entry
//
// All defects are reported together, one *CompileError each, in a stable
// order. Nothing is returned on failure.
func (g *Graph[S]) Compile() (*Compiled[S], error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	fail := func(kind, node, format string, args ...any) {
		errs = append(errs, &CompileError{Kind: kind, Node: node, Reason: fmt.Sprintf(format, args...)})
	}

	if g.reducer == nil {
		fail("missing_reducer", "", "no reducer configured")
	}

	switch _, ok := g.nodes[g.entry]; {
	case g.entry == "":
		fail("missing_entry", "", "no entry node set")
	case !ok:
		fail("missing_entry", g.entry, "entry node is not registered")
	}

	known := func(name string) bool {
		_, ok := g.nodes[name]
		return ok || name == End
	}

	outgoing := make(map[string][]Edge[S])
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			fail("unknown_node", e.From, "edge leaves a node that is not registered")
			continue
		}
		outgoing[e.From] = append(outgoing[e.From], e)
	}

	for _, name := range g.sortedNodes() {
		defs := outgoing[name]
		switch {
		case len(defs) == 0:
			fail("missing_edge", name, "node has no outgoing edge")
			continue
		case len(defs) > 1:
			fail("duplicate_edge", name, "node has %d outgoing edge definitions, want 1", len(defs))
			continue
		}

		e := defs[0]
		if e.Kind == Direct {
			if !known(e.To) {
				fail("dangling_edge", name, "edge target %q is not a registered node", e.To)
			}
			continue
		}

		if len(e.Targets) == 0 {
			fail("invalid_branch", name, "branch %q has no targets", e.Branch.Name)
		}
		for _, key := range slices.Sorted(maps.Keys(e.Targets)) {
			if target := e.Targets[key]; !known(target) {
				fail("dangling_edge", name, "branch %q key %q targets unregistered node %q", e.Branch.Name, key, target)
			}
		}
		for _, key := range e.Branch.Keys {
			if _, ok := e.Targets[key]; !ok {
				fail("uncovered_branch", name, "branch %q key %q has no target", e.Branch.Name, key)
			}
		}
	}

	if _, ok := g.nodes[g.entry]; ok {
		seen := reachable(g.entry, outgoing)
		for _, name := range g.sortedNodes() {
			if !seen[name] {
				fail("unreachable", name, "node is not reachable from entry %q", g.entry)
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	c := &Compiled[S]{
		reducer:  g.reducer,
		nodes:    maps.Clone(g.nodes),
		policies: make(map[string]NodePolicy, len(g.policies)),
		edges:    make(map[string]Edge[S], len(outgoing)),
		entry:    g.entry,
		defaults: maps.Clone(g.defaults),
	}
	for name, p := range g.policies {
		p.Reads = slices.Clone(p.Reads)
		p.Writes = slices.Clone(p.Writes)
		c.policies[name] = p
	}
	for name, defs := range outgoing {
		c.edges[name] = defs[0]
	}
	return c, nil
}

func (g *Graph[S]) sortedNodes() []string {
	return slices.Sorted(maps.Keys(g.nodes))
}

// reachable walks edges forward from entry.
func reachable[S any](entry string, outgoing map[string][]Edge[S]) map[string]bool {
	seen := map[string]bool{entry: true}
	queue := []string{entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range outgoing[cur] {
			next := []string{e.To}
			if e.Kind == Conditional {
				next = slices.Collect(maps.Values(e.Targets))
			}
			for _, n := range next {
				if n == End || n == "" || seen[n] {
					continue
				}
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return seen
}

// Entry returns the entry node name.
func (c *Compiled[S]) Entry() string {
	return c.entry
}

// Nodes returns the registered node names in sorted order.
func (c *Compiled[S]) Nodes() []string {
	return slices.Sorted(maps.Keys(c.nodes))
}

// Successors returns the possible next hops of node, sorted. End is
// included when the node can finish the run.
func (c *Compiled[S]) Successors(node string) []string {
	e, ok := c.edges[node]
	if !ok {
		return nil
	}
	if e.Kind == Direct {
		return []string{e.To}
	}
	out := slices.Sorted(maps.Values(e.Targets))
	return slices.Compact(out)
}

// IsConditional reports whether node leaves through a conditional edge.
func (c *Compiled[S]) IsConditional(node string) bool {
	e, ok := c.edges[node]
	return ok && e.Kind == Conditional
}

// Policy returns the policy node was registered with.
func (c *Compiled[S]) Policy(node string) (NodePolicy, bool) {
	p, ok := c.policies[node]
	return p, ok
}
