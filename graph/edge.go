package graph

// EdgeKind distinguishes direct from conditional edges.
type EdgeKind int

const (
	// Direct edges always move to a single target.
	Direct EdgeKind = iota

	// Conditional edges evaluate a Branch on the post-merge state and look
	// the returned key up in a target mapping.
	Conditional
)

// String returns the kind's name.
func (k EdgeKind) String() string {
	if k == Conditional {
		return "conditional"
	}
	return "direct"
}

// Edge is the single outgoing edge definition of a node.
//
// Type parameter S is the state type used for branch evaluation.
type Edge[S any] struct {
	// From is the source node name.
	From string

	// Kind selects between To and Branch/Targets.
	Kind EdgeKind

	// To is the target of a direct edge: a node name or End.
	To string

	// Branch decides the branch key of a conditional edge.
	Branch Branch[S]

	// Targets maps branch keys to node names or End.
	Targets map[string]string
}

// BranchFunc evaluates the post-merge state and returns a branch key.
// It must be pure and total over every state reachable at its edge.
type BranchFunc[S any] func(state S) string

// Branch is a named, first-class conditional routing decision. Keys lists
// every key Decide can return so the compiler can check that the edge's
// target mapping covers them.
type Branch[S any] struct {
	Name   string
	Keys   []string
	Decide BranchFunc[S]
}

// NewBranch builds a Branch that may return any of keys.
//
// Example:
//
//	bySentiment := graph.NewBranch("sentiment", func(s NewsState) string {
//	    if s.SentimentLabel == "positive" {
//	        return "investor"
//	    }
//	    return "general"
//	}, "investor", "general")
func NewBranch[S any](name string, decide BranchFunc[S], keys ...string) Branch[S] {
	return Branch[S]{Name: name, Keys: keys, Decide: decide}
}

// resolve returns the target of e for state, or ErrUnmappedBranch.
func (e Edge[S]) resolve(state S) (target, key string, err error) {
	if e.Kind == Direct {
		return e.To, "", nil
	}
	key = e.Branch.Decide(state)
	target, ok := e.Targets[key]
	if !ok {
		return "", key, ErrUnmappedBranch
	}
	return target, key, nil
}
