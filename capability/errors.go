package capability

import (
	"errors"

	"github.com/tailored-agentic-units/flow/observability"
)

// Sentinel errors for capability routing.
var (
	ErrUnknownCapability = errors.New("unknown capability")
	ErrNoWorkspace       = errors.New("no workspace directory configured")
)

// EventDispatch is emitted for every routed tool invocation.
const EventDispatch observability.EventType = "capability.dispatch"
