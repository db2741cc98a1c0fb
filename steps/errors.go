package steps

import (
	"errors"

	"github.com/tailored-agentic-units/flow/observability"
)

// Sentinel errors for step construction. Execution-time failures are never
// returned as errors; they surface as error-status Outcomes.
var (
	ErrNoClient   = errors.New("llm step requires a model client")
	ErrNoRegistry = errors.New("tool step requires a tool registry")
	ErrNoRouter   = errors.New("tool step requires a capability router")
)

// Diagnostic event types emitted by step implementations.
const (
	EventModelCall observability.EventType = "step.model.call"
	EventToolLog   observability.EventType = "step.tool.log"
)
