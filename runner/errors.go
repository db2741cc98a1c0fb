package runner

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building and execution.
var (
	ErrNoNodes       = errors.New("graph has no nodes")
	ErrNoEntry       = errors.New("graph has no entry node")
	ErrBadPredicate  = errors.New("predicate spec must set exactly one condition")
	ErrMaxSteps      = errors.New("max steps exceeded")
	ErrNoTransition  = errors.New("no matching edge")
	ErrRunCancelled  = errors.New("run cancelled")
	ErrStepFailed    = errors.New("step failed")
	ErrNilDependency = errors.New("builder requires non-nil dependencies")
)

// RunError captures execution context when a run terminates on a failure.
type RunError struct {
	RunID  string
	NodeID string
	Path   []string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed at node %s: %v", e.RunID, e.NodeID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
