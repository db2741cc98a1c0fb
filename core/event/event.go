// Package event defines the caller-visible event shape produced by a run.
// Hooks and transports depend only on this package, keeping them decoupled
// from runner internals.
package event

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of run event.
type Type string

const (
	TypeNodeStart    Type = "node_start"
	TypeContent      Type = "content"
	TypeToolResult   Type = "tool_result"
	TypeNodeComplete Type = "node_complete"
	TypeError        Type = "error"
	TypeFinal        Type = "final"
	TypeDone         Type = "done"
	TypeStatus       Type = "status"
)

// Event is a single entry in the ordered stream a run produces. Exactly one
// final event followed by one done event closes every run that starts; no
// events are valid after done.
type Event struct {
	ID        string         `json:"id"`
	RunID     string         `json:"runId"`
	Type      Type           `json:"type"`
	Content   string         `json:"content,omitempty"`
	StepName  string         `json:"stepName,omitempty"`
	ToolName  string         `json:"toolName,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Terminal  bool           `json:"isTerminal"`
	Timestamp time.Time      `json:"timestamp"`
}

// New creates an Event for the given run with a unique UUIDv7 identifier and
// the current timestamp. Remaining fields are set by the caller.
func New(runID string, t Type) Event {
	return Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		RunID:     runID,
		Type:      t,
		Timestamp: time.Now(),
	}
}

// Clone returns a copy of the event with its own metadata map. Hooks receive
// clones so a hook that mutates and returns an event never aliases runner
// internals.
func (e Event) Clone() Event {
	clone := e
	clone.Metadata = maps.Clone(e.Metadata)
	return clone
}

// IsTerminal reports whether the event closes a run stream.
func (e Event) IsTerminal() bool {
	return e.Terminal || e.Type == TypeDone
}
