package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/tailored-agentic-units/flow/core/event"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/snapshot"
)

// EventSnapshotFailed is emitted when a finished run could not be persisted.
const EventSnapshotFailed observability.EventType = "hooks.snapshot_failed"

// PersistenceHook accumulates a run summary from the event stream and saves it
// as a snapshot when the run finishes. Events pass through unchanged; the run
// is never blocked or altered, and a failed save only surfaces to the
// observer.
type PersistenceHook struct {
	store    snapshot.Store
	observer observability.Observer

	mu    sync.Mutex
	input string
	nodes []string
	tools []string
}

// NewPersistenceHook creates a PersistenceHook that saves to store.
func NewPersistenceHook(store snapshot.Store, observer observability.Observer) *PersistenceHook {
	return &PersistenceHook{
		store:    store,
		observer: observability.Resolve(observer),
	}
}

func (p *PersistenceHook) OnEvent(_ context.Context, ev event.Event) *event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type {
	case event.TypeNodeStart:
		p.nodes = append(p.nodes, ev.StepName)
	case event.TypeToolResult:
		if ev.ToolName != "" {
			p.tools = append(p.tools, ev.ToolName)
		}
	}

	if input, ok := ev.Metadata["input"].(string); ok && input != "" {
		p.input = input
	}

	return &ev
}

func (p *PersistenceHook) OnFinal(ctx context.Context, ev event.Event) {
	p.mu.Lock()
	snap := snapshot.Snapshot{
		RunID:     ev.RunID,
		Input:     p.input,
		Response:  ev.Content,
		Nodes:     append([]string(nil), p.nodes...),
		Tools:     append([]string(nil), p.tools...),
		CreatedAt: time.Now().UTC(),
	}
	p.mu.Unlock()

	if state, ok := ev.Metadata["state"].(map[string]any); ok {
		snap.State = state
	}

	if err := p.store.Save(ctx, snap); err != nil {
		p.observer.OnEvent(ctx, observability.NewEvent(
			EventSnapshotFailed, observability.LevelWarning, "hooks",
			map[string]any{"run_id": ev.RunID, "error": err.Error()},
		))
	}
}
