// Package steps defines the uniform execution contract for units of work in a
// run graph, and the reference step kinds: LLM call, tool invocation, and
// router.
//
// Steps never return Go errors or panic across the execution boundary for
// expected failure modes. A missing parameter, a downstream call failure, or a
// tool fault is recovered into an error-status Outcome carrying a
// human-readable message and a structured metadata error, so event consumers
// never special-case failure versus success.
package steps

import (
	"context"

	"github.com/tailored-agentic-units/flow/runstate"
)

// Status tags an Outcome within the fixed set of step result states.
// The zero value marks a plain streamed content fragment.
type Status string

const (
	StatusStarted      Status = "started"
	StatusToolResult   Status = "tool_result"
	StatusNodeComplete Status = "node_complete"
	StatusError        Status = "error"
	StatusFinal        Status = "final"
	StatusDone         Status = "done"
)

// Outcome is the uniform result type every step produces, successful or not.
type Outcome struct {
	Content  string
	Status   Status
	Metadata map[string]any
	Terminal bool
}

// Content builds a streamed partial-text outcome.
func Content(text string) Outcome {
	return Outcome{Content: text}
}

// Complete builds the outcome closing a successful step execution.
func Complete(metadata map[string]any) Outcome {
	return Outcome{Status: StatusNodeComplete, Metadata: metadata}
}

// Errorf builds an error outcome. The message is caller-visible; the cause is
// recorded under metadata "error" for structured consumers.
func Errorf(message string, cause error) Outcome {
	metadata := map[string]any{"error": message}
	if cause != nil {
		metadata["error"] = cause.Error()
		metadata["message"] = message
	}
	return Outcome{
		Content:  message,
		Status:   StatusError,
		Metadata: metadata,
	}
}

// IsError reports whether the outcome carries an error status.
func (o Outcome) IsError() bool {
	return o.Status == StatusError
}

// Input carries the caller's turn input into each step.
type Input struct {
	RunID  string
	Prompt string
}

// Emit forwards a partial outcome (streamed content, tool results) to the
// run's event stream while the step is still executing.
type Emit func(Outcome)

// Kind identifies a step implementation.
type Kind string

const (
	KindLLM    Kind = "llm"
	KindTool   Kind = "tool"
	KindRouter Kind = "router"
)

// Step is a single executable node in a run graph. Execute runs to completion
// (or to its next suspension point when streaming via emit) and returns the
// step's closing outcome. Implementations write intermediate values to the
// run state; the runner guarantees single-writer access.
type Step interface {
	ID() string
	Kind() Kind
	Label() string
	Execute(ctx context.Context, in Input, st *runstate.State, emit Emit) Outcome
}
