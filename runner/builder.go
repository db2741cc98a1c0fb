package runner

import (
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/flow/capability"
	"github.com/tailored-agentic-units/flow/model"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/steps"
	"github.com/tailored-agentic-units/flow/tools"
)

const defaultMaxSteps = 100

// Builder compiles graph documents into executable graphs. A single Builder
// carries the collaborators every run needs — the model client, the tool
// registry, and the capability router — and can compile any number of
// documents against them.
//
// Build collects every structural problem in the document and reports them
// together, so an author fixes a broken graph in one pass instead of
// replaying an error-at-a-time loop.
type Builder struct {
	client   model.Client
	registry *tools.Registry
	router   *capability.Router
	observer observability.Observer
	history  *model.History
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithStepObserver sets the observer wired into compiled steps.
func WithStepObserver(o observability.Observer) BuilderOption {
	return func(b *Builder) { b.observer = o }
}

// WithHistory sets a shared conversation transcript for the graph's LLM
// steps. Without it each compiled graph gets a fresh transcript.
func WithHistory(h *model.History) BuilderOption {
	return func(b *Builder) { b.history = h }
}

// NewBuilder creates a Builder over the given collaborators.
func NewBuilder(client model.Client, registry *tools.Registry, router *capability.Router, opts ...BuilderOption) (*Builder, error) {
	if client == nil || registry == nil || router == nil {
		return nil, ErrNilDependency
	}

	b := &Builder{
		client:   client,
		registry: registry,
		router:   router,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.observer = observability.Resolve(b.observer)

	return b, nil
}

// Build compiles and validates a graph document. On failure the returned
// error joins every problem found; none of the partial compilation escapes.
func (b *Builder) Build(spec *GraphSpec) (*Graph, error) {
	var problems []error

	if len(spec.Nodes) == 0 {
		problems = append(problems, ErrNoNodes)
	}

	history := b.history
	if history == nil {
		history = model.NewHistory()
	}

	nodes := make(map[string]steps.Step, len(spec.Nodes))
	for i := range spec.Nodes {
		ns := &spec.Nodes[i]
		if ns.ID == "" {
			problems = append(problems, fmt.Errorf("node %d: missing id", i))
			continue
		}
		if _, dup := nodes[ns.ID]; dup {
			problems = append(problems, fmt.Errorf("node %s: duplicate id", ns.ID))
			continue
		}

		step, err := b.buildStep(ns, history)
		if err != nil {
			problems = append(problems, fmt.Errorf("node %s: %w", ns.ID, err))
			continue
		}
		nodes[ns.ID] = step
	}

	edges := make(map[string][]Edge, len(spec.Edges))
	incoming := make(map[string]int)
	for i := range spec.Edges {
		es := &spec.Edges[i]
		if _, exists := nodes[es.From]; !exists {
			problems = append(problems, fmt.Errorf("edge %d: unknown source node %q", i, es.From))
			continue
		}
		if _, exists := nodes[es.To]; !exists {
			problems = append(problems, fmt.Errorf("edge %d: unknown destination node %q", i, es.To))
			continue
		}

		edge := Edge{From: es.From, To: es.To, Name: es.Name, OnError: es.OnError}
		if es.When != nil {
			predicate, err := es.When.Compile()
			if err != nil {
				problems = append(problems, fmt.Errorf("edge %s->%s: %w", es.From, es.To, err))
				continue
			}
			edge.Predicate = predicate
		}

		edges[es.From] = append(edges[es.From], edge)
		incoming[es.To]++
	}

	entry := ""
	for i := range spec.Nodes {
		id := spec.Nodes[i].ID
		if _, exists := nodes[id]; !exists {
			continue
		}
		if incoming[id] > 0 {
			continue
		}
		if entry != "" {
			problems = append(problems, fmt.Errorf("%w: both %s and %s have no incoming edges", ErrNoEntry, entry, id))
			continue
		}
		entry = id
	}
	if entry == "" && len(nodes) > 0 {
		problems = append(problems, fmt.Errorf("%w: every node has incoming edges", ErrNoEntry))
	}

	// Router nodes are pure branch points: one with nothing to branch to is a
	// document bug, not a terminal node.
	for i := range spec.Nodes {
		ns := &spec.Nodes[i]
		if ns.Kind != string(steps.KindRouter) {
			continue
		}
		if _, exists := nodes[ns.ID]; !exists {
			continue
		}
		hasOutgoing := false
		for _, edge := range edges[ns.ID] {
			if !edge.OnError {
				hasOutgoing = true
				break
			}
		}
		if !hasOutgoing {
			problems = append(problems, fmt.Errorf("node %s: router has no outgoing edges", ns.ID))
		}
	}

	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}

	maxSteps := spec.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	return &Graph{
		name:     spec.Name,
		nodes:    nodes,
		edges:    edges,
		entry:    entry,
		maxSteps: maxSteps,
	}, nil
}

func (b *Builder) buildStep(ns *NodeSpec, history *model.History) (steps.Step, error) {
	switch steps.Kind(ns.Kind) {
	case steps.KindLLM:
		if ns.LLM == nil {
			return nil, fmt.Errorf("llm node missing llm config")
		}
		return steps.NewLLMStep(ns.ID, ns.Label, *ns.LLM, b.client, history, b.observer)

	case steps.KindTool:
		if ns.Tool == nil {
			return nil, fmt.Errorf("tool node missing tool config")
		}
		step, err := steps.NewToolStep(ns.ID, ns.Label, *ns.Tool, b.registry, b.router, b.observer)
		if err != nil {
			return nil, err
		}
		tool, exists := b.registry.Get(ns.Tool.Tool)
		if !exists {
			return nil, fmt.Errorf("%w: %s", tools.ErrNotFound, ns.Tool.Tool)
		}
		if !b.router.Registered(tool.Capability) {
			return nil, fmt.Errorf("%w: %s", capability.ErrUnknownCapability, tool.Capability)
		}
		return step, nil

	case steps.KindRouter:
		cfg := steps.RouterConfig{}
		if ns.Router != nil {
			cfg = *ns.Router
		}
		return steps.NewRouterStep(ns.ID, ns.Label, cfg), nil

	default:
		return nil, fmt.Errorf("unknown kind %q", ns.Kind)
	}
}
