package runstate

import "github.com/tailored-agentic-units/flow/observability"

// Store mutation and file registry event types.
const (
	EventStatePut       observability.EventType = "state.put"
	EventStateDelete    observability.EventType = "state.delete"
	EventFileRegister   observability.EventType = "file.register"
	EventFileMissing    observability.EventType = "file.missing"
	EventFileReadError  observability.EventType = "file.read_error"
	EventExportStripped observability.EventType = "export.stripped"
)
