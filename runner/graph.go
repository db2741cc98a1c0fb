package runner

import (
	"strings"

	"github.com/tailored-agentic-units/flow/runstate"
	"github.com/tailored-agentic-units/flow/steps"
)

// Predicate evaluates run state to decide if an edge can be traversed.
type Predicate func(st *runstate.State) bool

// Always returns a predicate that always evaluates to true. Use for
// unconditional transitions between nodes.
func Always() Predicate {
	return func(*runstate.State) bool { return true }
}

// KeyExists returns a predicate that checks if a key exists in a namespace.
func KeyExists(namespace, key string) Predicate {
	return func(st *runstate.State) bool {
		return st.Has(namespace, key)
	}
}

// KeyEquals returns a predicate that checks if a key holds a specific value.
func KeyEquals(namespace, key string, value any) Predicate {
	return func(st *runstate.State) bool {
		return st.Has(namespace, key) && st.Get(namespace, key, nil) == value
	}
}

// Contains returns a predicate that checks if a text value contains a
// substring. Non-text values never match.
func Contains(namespace, key, substring string) Predicate {
	return func(st *runstate.State) bool {
		text := st.Text(namespace, key, "")
		return text != "" && strings.Contains(strings.ToLower(text), strings.ToLower(substring))
	}
}

// Not inverts a predicate.
func Not(predicate Predicate) Predicate {
	return func(st *runstate.State) bool {
		return !predicate(st)
	}
}

// And combines predicates with logical AND (all must be true).
func And(predicates ...Predicate) Predicate {
	return func(st *runstate.State) bool {
		for _, p := range predicates {
			if !p(st) {
				return false
			}
		}
		return true
	}
}

// Or combines predicates with logical OR (at least one must be true).
func Or(predicates ...Predicate) Predicate {
	return func(st *runstate.State) bool {
		for _, p := range predicates {
			if p(st) {
				return true
			}
		}
		return false
	}
}

// Edge is a compiled transition between two nodes. During normal advancement
// the runner evaluates a node's non-error edges in declaration order and
// follows the first whose predicate passes; OnError edges are consulted only
// when the node's outcome carries an error status.
type Edge struct {
	From      string
	To        string
	Name      string
	Predicate Predicate // nil = always transition
	OnError   bool
}

// Graph is a compiled, validated run graph ready for execution. Graphs are
// immutable after Build and safe to share across concurrent runs.
type Graph struct {
	name     string
	nodes    map[string]steps.Step
	edges    map[string][]Edge
	entry    string
	maxSteps int
}

// Name returns the graph identifier used in event metadata.
func (g *Graph) Name() string { return g.name }

// Entry returns the id of the node each run starts at.
func (g *Graph) Entry() string { return g.entry }

// Node returns the step registered under the given id.
func (g *Graph) Node(id string) (steps.Step, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// next evaluates the non-error edges out of a node in order and returns the
// destination of the first match.
func (g *Graph) next(from string, st *runstate.State) (Edge, bool) {
	for _, edge := range g.edges[from] {
		if edge.OnError {
			continue
		}
		if edge.Predicate == nil || edge.Predicate(st) {
			return edge, true
		}
	}
	return Edge{}, false
}

// fallback returns the first OnError edge out of a node, if any.
func (g *Graph) fallback(from string) (Edge, bool) {
	for _, edge := range g.edges[from] {
		if edge.OnError {
			return edge, true
		}
	}
	return Edge{}, false
}

// terminal reports whether a node has no outgoing non-error edges.
func (g *Graph) terminal(id string) bool {
	for _, edge := range g.edges[id] {
		if !edge.OnError {
			return false
		}
	}
	return true
}
