package steps

import (
	"context"

	"github.com/tailored-agentic-units/flow/runstate"
)

// RouterConfig is the kind-specific configuration for a router step.
type RouterConfig struct {
	// Watch lists state references recorded into the step's outcome metadata
	// for audit, as "namespace/key" pairs. The routing decision itself is
	// carried by the guard predicates on the node's outgoing edges.
	Watch []StateRef `json:"watch,omitempty"`
}

// StateRef names one namespace/key pair in the run state.
type StateRef struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
}

// RouterStep is a pure branch point. It performs no work of its own: the
// runner evaluates the guard predicates on its outgoing edges against the
// current run state and follows the first match. The step records the watched
// state values so the routing context is visible in the event stream.
type RouterStep struct {
	id     string
	label  string
	config RouterConfig
}

// NewRouterStep creates a router step.
func NewRouterStep(id, label string, config RouterConfig) *RouterStep {
	return &RouterStep{id: id, label: label, config: config}
}

func (s *RouterStep) ID() string    { return s.id }
func (s *RouterStep) Kind() Kind    { return KindRouter }
func (s *RouterStep) Label() string { return s.label }

func (s *RouterStep) Execute(ctx context.Context, in Input, st *runstate.State, emit Emit) Outcome {
	metadata := map[string]any{"router": true}
	for _, ref := range s.config.Watch {
		metadata[ref.Namespace+"/"+ref.Key] = st.Get(ref.Namespace, ref.Key, nil)
	}
	return Complete(metadata)
}
