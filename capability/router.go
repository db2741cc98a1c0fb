package capability

import (
	"context"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/flow/observability"
)

// Invocation is the raw execution result of one tool call as seen by the
// router. Handlers may mutate Metadata and Artifact; Content is what the
// caller-facing stream will carry.
type Invocation struct {
	Tool     string
	Content  string
	Artifact any
	Metadata map[string]any
}

// Handler processes the invocation result for one capability.
type Handler func(ctx context.Context, inv *Invocation) error

// Router maps each declared capability to exactly one handler.
type Router struct {
	handlers map[Capability]Handler
	observer observability.Observer
}

// NewRouter creates a Router with the reference handler set: none, browser,
// realtime, and todo pass results through unchanged (distinct extension
// points); file attaches the workspace directory. Handlers can be replaced
// via Register.
func NewRouter(workspace string, observer observability.Observer) *Router {
	r := &Router{
		handlers: make(map[Capability]Handler),
		observer: observability.Resolve(observer),
	}

	r.Register(None, Passthrough())
	r.Register(Browser, Passthrough())
	r.Register(Realtime, Passthrough())
	r.Register(Todo, Passthrough())
	r.Register(File, FileHandler(workspace))

	return r
}

// Register adds or replaces the handler for a capability.
func (r *Router) Register(c Capability, handler Handler) {
	r.handlers[c] = handler
}

// Registered reports whether a handler exists for the capability. The graph
// builder uses this to reject unknown capabilities at compile time.
func (r *Router) Registered(c Capability) bool {
	_, exists := r.handlers[c]
	return exists
}

// Dispatch routes the invocation to the capability's handler.
func (r *Router) Dispatch(ctx context.Context, c Capability, inv *Invocation) error {
	handler, exists := r.handlers[c]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownCapability, c)
	}

	r.observer.OnEvent(ctx, observability.NewEvent(
		EventDispatch, observability.LevelVerbose, "capability",
		map[string]any{"capability": string(c), "tool": inv.Tool},
	))

	return handler(ctx, inv)
}

// Passthrough returns a handler that leaves the invocation unchanged.
func Passthrough() Handler {
	return func(ctx context.Context, inv *Invocation) error {
		return nil
	}
}

// FileHandler returns the handler for file-producing tools: it ensures the
// workspace directory exists and attaches its path to the invocation
// metadata. Materialization stays with the tool — only tools that write
// files create any.
func FileHandler(workspace string) Handler {
	return func(ctx context.Context, inv *Invocation) error {
		if workspace == "" {
			return ErrNoWorkspace
		}
		if err := os.MkdirAll(workspace, 0o755); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}

		if inv.Metadata == nil {
			inv.Metadata = make(map[string]any)
		}
		inv.Metadata["workspace"] = workspace
		return nil
	}
}
