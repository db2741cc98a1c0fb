package runner

import "github.com/tailored-agentic-units/flow/observability"

// Diagnostic event types emitted by the runner. These go to the operator
// observer stream, not the caller-facing run event stream.
const (
	EventRunStart       observability.EventType = "run.start"
	EventRunComplete    observability.EventType = "run.complete"
	EventRunError       observability.EventType = "run.error"
	EventNodeStart      observability.EventType = "run.node_start"
	EventNodeComplete   observability.EventType = "run.node_complete"
	EventEdgeTransition observability.EventType = "run.edge_transition"
	EventEventDropped   observability.EventType = "run.event_dropped"
)
