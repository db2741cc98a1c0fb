// Package hooks defines the observer protocol for run event streams. Hooks see
// every event before it reaches the caller and may substitute or suppress it;
// OnFinal fires exactly once per run, after the final event has been emitted.
package hooks

import (
	"context"

	"github.com/tailored-agentic-units/flow/core/event"
	"github.com/tailored-agentic-units/flow/observability"
)

// Hook observes a run's event stream.
//
// OnEvent is called for every event before delivery. The returned event is
// what the caller receives: return the input unchanged to pass it through, a
// modified copy to substitute it, or nil to suppress delivery entirely.
// Suppression never alters run control flow — the runner advances the same
// way whether or not the event reached the caller.
//
// OnFinal is called exactly once per run with the final event, whether the run
// succeeded or terminated on an error.
type Hook interface {
	OnEvent(ctx context.Context, ev event.Event) *event.Event
	OnFinal(ctx context.Context, ev event.Event)
}

// NopHook passes every event through unchanged.
type NopHook struct{}

func (NopHook) OnEvent(_ context.Context, ev event.Event) *event.Event { return &ev }
func (NopHook) OnFinal(context.Context, event.Event)                   {}

// MultiHook chains hooks in order. Each hook receives the previous hook's
// output; the first hook to suppress stops the chain.
type MultiHook struct {
	hooks []Hook
}

// NewMultiHook creates a Hook that fans out to the given hooks in order.
func NewMultiHook(hooks ...Hook) *MultiHook {
	return &MultiHook{hooks: hooks}
}

func (m *MultiHook) OnEvent(ctx context.Context, ev event.Event) *event.Event {
	current := &ev
	for _, h := range m.hooks {
		current = h.OnEvent(ctx, *current)
		if current == nil {
			return nil
		}
	}
	return current
}

func (m *MultiHook) OnFinal(ctx context.Context, ev event.Event) {
	for _, h := range m.hooks {
		h.OnFinal(ctx, ev)
	}
}

// EventHookPanic is emitted when a guarded hook panics.
const EventHookPanic observability.EventType = "hooks.panic"

type guardedHook struct {
	inner    Hook
	observer observability.Observer
}

// Guard wraps a hook so a panic in OnEvent or OnFinal is recovered and
// reported to the observer instead of killing the run. A panicking OnEvent
// behaves as a pass-through: the original event is delivered unchanged.
func Guard(h Hook, observer observability.Observer) Hook {
	return &guardedHook{inner: h, observer: observability.Resolve(observer)}
}

func (g *guardedHook) OnEvent(ctx context.Context, ev event.Event) (out *event.Event) {
	defer func() {
		if r := recover(); r != nil {
			g.report(ctx, "OnEvent", ev, r)
			out = &ev
		}
	}()
	return g.inner.OnEvent(ctx, ev)
}

func (g *guardedHook) OnFinal(ctx context.Context, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			g.report(ctx, "OnFinal", ev, r)
		}
	}()
	g.inner.OnFinal(ctx, ev)
}

func (g *guardedHook) report(ctx context.Context, method string, ev event.Event, cause any) {
	g.observer.OnEvent(ctx, observability.NewEvent(
		EventHookPanic, observability.LevelWarning, "hooks",
		map[string]any{"run_id": ev.RunID, "method": method, "event_type": string(ev.Type), "panic": cause},
	))
}
