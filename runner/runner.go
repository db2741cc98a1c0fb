// Package runner executes compiled run graphs and streams ordered events to
// the caller.
//
// Each Run executes on a single goroutine: one node at a time, in graph
// order, with every event passing through the observer hook before delivery.
// The caller consumes the returned channel until it closes; the stream always
// carries exactly one final event followed by exactly one done event, whether
// the run succeeded, failed, or was cancelled.
package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/flow/core/event"
	"github.com/tailored-agentic-units/flow/hooks"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/runstate"
	"github.com/tailored-agentic-units/flow/steps"
)

const defaultBufferSize = 64

// Runner executes a compiled graph. A Runner is immutable after construction
// and safe to share: each Run gets its own state, stream, and goroutine.
type Runner struct {
	graph      *Graph
	hook       hooks.Hook
	observer   observability.Observer
	bufferSize int
}

// Option configures a Runner.
type Option func(*Runner)

// WithHook installs the observer hook applied to every run event. Panics in
// the hook are recovered; a panicking hook degrades to a pass-through.
func WithHook(h hooks.Hook) Option {
	return func(r *Runner) { r.hook = h }
}

// WithObserver sets the operator-facing diagnostic observer.
func WithObserver(o observability.Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithBufferSize sets the event stream buffer. Larger buffers decouple slow
// consumers from run progress at the cost of memory.
func WithBufferSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.bufferSize = n
		}
	}
}

// NewRunner creates a Runner for a compiled graph.
func NewRunner(graph *Graph, opts ...Option) *Runner {
	r := &Runner{
		graph:      graph,
		hook:       hooks.NopHook{},
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.observer = observability.Resolve(r.observer)
	r.hook = hooks.Guard(r.hook, r.observer)

	return r
}

// Run is one in-flight execution.
type Run struct {
	ID     string
	stream *stream
}

// Events returns the run's event stream. The channel closes after the done
// event is delivered.
func (run *Run) Events() <-chan event.Event {
	return run.stream.Events()
}

// Run starts executing the graph for one caller turn. The returned Run's
// event stream delivers ordered events until the run terminates; cancel ctx
// to stop the run at its next yield point.
func (r *Runner) Run(ctx context.Context, input string) *Run {
	run := &Run{
		ID:     uuid.Must(uuid.NewV7()).String(),
		stream: newStream(ctx, r.bufferSize),
	}

	go r.execute(ctx, run, input)
	return run
}

func (r *Runner) execute(ctx context.Context, run *Run, input string) {
	defer run.stream.Close()

	st := runstate.New(run.ID, r.observer)
	st.Put(runstate.GlobalNamespace, "input", input)
	in := steps.Input{RunID: run.ID, Prompt: input}

	r.observer.OnEvent(ctx, observability.NewEvent(
		EventRunStart, observability.LevelInfo, "runner",
		map[string]any{"run_id": run.ID, "graph": r.graph.name, "entry": r.graph.entry},
	))

	started := event.New(run.ID, event.TypeStatus)
	started.Content = "started"
	started.Metadata = map[string]any{"input": input, "graph": r.graph.name}
	r.deliver(ctx, run, started)

	current := r.graph.entry
	path := make([]string, 0, r.graph.maxSteps)
	count := 0

	for {
		if err := ctx.Err(); err != nil {
			r.finish(ctx, run, st, current, path, count, fmt.Errorf("%w: %v", ErrRunCancelled, err))
			return
		}

		count++
		if count > r.graph.maxSteps {
			r.finish(ctx, run, st, current, path, count, fmt.Errorf("%w (%d)", ErrMaxSteps, r.graph.maxSteps))
			return
		}

		node, exists := r.graph.Node(current)
		if !exists {
			r.finish(ctx, run, st, current, path, count, fmt.Errorf("node %s not found", current))
			return
		}
		path = append(path, current)
		st.EnsureNamespace(runstate.StepNamespace(current))

		r.observer.OnEvent(ctx, observability.NewEvent(
			EventNodeStart, observability.LevelVerbose, "runner",
			map[string]any{"run_id": run.ID, "node": current, "step": count},
		))

		nodeStart := event.New(run.ID, event.TypeNodeStart)
		nodeStart.StepName = current
		nodeStart.Metadata = map[string]any{"kind": string(node.Kind()), "label": node.Label()}
		r.deliver(ctx, run, nodeStart)

		outcome := node.Execute(ctx, in, st, func(o steps.Outcome) {
			r.deliver(ctx, run, outcomeEvent(run.ID, current, o))
		})

		r.observer.OnEvent(ctx, observability.NewEvent(
			EventNodeComplete, observability.LevelVerbose, "runner",
			map[string]any{"run_id": run.ID, "node": current, "step": count, "error": outcome.IsError()},
		))

		if outcome.IsError() {
			r.deliver(ctx, run, outcomeEvent(run.ID, current, outcome))

			fallback, recoverable := r.graph.fallback(current)
			if !recoverable {
				r.finish(ctx, run, st, current, path, count,
					fmt.Errorf("%w: node %s: %s", ErrStepFailed, current, outcome.Content))
				return
			}

			r.transition(ctx, run.ID, fallback)
			current = fallback.To
			continue
		}

		r.deliver(ctx, run, outcomeEvent(run.ID, current, outcome))

		if r.graph.terminal(current) {
			r.finish(ctx, run, st, current, path, count, nil)
			return
		}

		edge, matched := r.graph.next(current, st)
		if !matched {
			r.finish(ctx, run, st, current, path, count,
				fmt.Errorf("%w: node %s", ErrNoTransition, current))
			return
		}

		r.transition(ctx, run.ID, edge)
		current = edge.To
	}
}

// finish emits the terminal final and done events, fires OnFinal exactly
// once, and reports the run outcome to the observer. A nil err marks success.
func (r *Runner) finish(ctx context.Context, run *Run, st *runstate.State, nodeID string, path []string, count int, err error) {
	final := event.New(run.ID, event.TypeFinal)
	final.Terminal = true
	final.Metadata = map[string]any{
		"steps": count,
		"path":  append([]string(nil), path...),
		"state": st.Export(),
	}

	if err != nil {
		runErr := &RunError{RunID: run.ID, NodeID: nodeID, Path: path, Err: err}

		errEvent := event.New(run.ID, event.TypeError)
		errEvent.StepName = nodeID
		errEvent.Content = err.Error()
		r.deliver(ctx, run, errEvent)

		final.Content = runErr.Error()
		final.Metadata["error"] = err.Error()

		r.observer.OnEvent(ctx, observability.NewEvent(
			EventRunError, observability.LevelError, "runner",
			map[string]any{"run_id": run.ID, "node": nodeID, "steps": count, "error": err.Error()},
		))
	} else {
		final.Content = st.Text(runstate.GlobalNamespace, "last_response", "")

		r.observer.OnEvent(ctx, observability.NewEvent(
			EventRunComplete, observability.LevelInfo, "runner",
			map[string]any{"run_id": run.ID, "steps": count, "path_length": len(path)},
		))
	}

	r.deliver(ctx, run, final)
	r.hook.OnFinal(ctx, final)

	done := event.New(run.ID, event.TypeDone)
	done.Terminal = true
	r.deliver(ctx, run, done)
}

// deliver passes an event through the hook and sends the survivor to the
// caller. Suppression drops the event without affecting run control flow.
// Terminal events fall back to a non-blocking send so a cancelled consumer
// context cannot swallow the final/done pair while buffer space remains.
func (r *Runner) deliver(ctx context.Context, run *Run, ev event.Event) {
	out := r.hook.OnEvent(ctx, ev)
	if out == nil {
		return
	}

	if err := run.stream.Send(ctx, *out); err != nil {
		if out.Terminal && run.stream.TrySend(*out) {
			return
		}
		r.observer.OnEvent(ctx, observability.NewEvent(
			EventEventDropped, observability.LevelWarning, "runner",
			map[string]any{"run_id": run.ID, "type": string(out.Type), "error": err.Error()},
		))
	}
}

func (r *Runner) transition(ctx context.Context, runID string, edge Edge) {
	r.observer.OnEvent(ctx, observability.NewEvent(
		EventEdgeTransition, observability.LevelVerbose, "runner",
		map[string]any{"run_id": runID, "from": edge.From, "to": edge.To, "edge": edge.Name, "on_error": edge.OnError},
	))
}

// outcomeEvent translates a step outcome into a caller-visible event.
func outcomeEvent(runID, stepName string, o steps.Outcome) event.Event {
	var t event.Type
	switch o.Status {
	case steps.StatusStarted:
		t = event.TypeNodeStart
	case steps.StatusToolResult:
		t = event.TypeToolResult
	case steps.StatusNodeComplete:
		t = event.TypeNodeComplete
	case steps.StatusError:
		t = event.TypeError
	case steps.StatusFinal:
		t = event.TypeFinal
	case steps.StatusDone:
		t = event.TypeDone
	default:
		t = event.TypeContent
	}

	ev := event.New(runID, t)
	ev.StepName = stepName
	ev.Content = o.Content
	ev.Metadata = o.Metadata
	ev.Terminal = o.Terminal

	if tool, ok := o.Metadata["tool"].(string); ok {
		ev.ToolName = tool
	}
	return ev
}
