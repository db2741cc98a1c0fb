// Package runstate implements the shared mutable store scoped to one run.
//
// A State is a mapping from namespace name to key/value pairs, plus a file
// registry and an append-only change log. Every step of a run reads and writes
// the same State instance. A State is owned by exactly one run and accessed
// sequentially by each step in turn — the runner enforces single-writer-at-a-
// time, so the store itself carries no locking. Runs never share a State;
// cross-run memory flows through the persistence hook instead.
package runstate

import (
	"context"
	"maps"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
)

// GlobalNamespace always exists and holds run-wide values.
const GlobalNamespace = "global"

// StepNamespace derives the per-step namespace name for a step id.
func StepNamespace(stepID string) string {
	return "step_" + stepID
}

// Change is one entry in the append-only change log. The log exists for
// auditing and debugging, never for rollback.
type Change struct {
	Timestamp time.Time
	Namespace string
	Key       string
	Old       any
	New       any
}

// State is the run-scoped store.
type State struct {
	runID      string
	namespaces map[string]map[string]any
	files      map[string]FileRecord
	changes    []Change
	observer   observability.Observer
}

// New creates a State for the given run. The "global" namespace exists from
// the start; per-step namespaces are created as steps execute.
func New(runID string, observer observability.Observer) *State {
	return &State{
		runID: runID,
		namespaces: map[string]map[string]any{
			GlobalNamespace: {},
		},
		files:    make(map[string]FileRecord),
		observer: observability.Resolve(observer),
	}
}

// RunID returns the identifier of the run owning this State.
func (s *State) RunID() string {
	return s.runID
}

// EnsureNamespace creates the named namespace if it does not exist yet.
// The runner calls this for each step before executing it.
func (s *State) EnsureNamespace(name string) {
	if _, exists := s.namespaces[name]; exists {
		return
	}
	s.namespaces[name] = make(map[string]any)
}

// Put stores a value under namespace/key, creating the namespace on demand,
// and appends the mutation to the change log.
func (s *State) Put(namespace, key string, value any) {
	s.EnsureNamespace(namespace)

	old := s.namespaces[namespace][key]
	s.namespaces[namespace][key] = value
	s.log(namespace, key, old, value)

	s.observer.OnEvent(context.Background(), observability.NewEvent(
		EventStatePut, observability.LevelVerbose, "runstate",
		map[string]any{"run_id": s.runID, "namespace": namespace, "key": key},
	))
}

// Get retrieves a value by namespace/key. An absent namespace or key returns
// the caller's default, never an error.
func (s *State) Get(namespace, key string, def any) any {
	ns, exists := s.namespaces[namespace]
	if !exists {
		return def
	}
	val, exists := ns[key]
	if !exists {
		return def
	}
	return val
}

// Has reports whether namespace/key holds a value.
func (s *State) Has(namespace, key string) bool {
	ns, exists := s.namespaces[namespace]
	if !exists {
		return false
	}
	_, exists = ns[key]
	return exists
}

// Delete removes a key from a namespace. Missing keys are ignored; actual
// removals are appended to the change log.
func (s *State) Delete(namespace, key string) {
	ns, exists := s.namespaces[namespace]
	if !exists {
		return
	}
	old, exists := ns[key]
	if !exists {
		return
	}

	delete(ns, key)
	s.log(namespace, key, old, nil)

	s.observer.OnEvent(context.Background(), observability.NewEvent(
		EventStateDelete, observability.LevelVerbose, "runstate",
		map[string]any{"run_id": s.runID, "namespace": namespace, "key": key},
	))
}

// Namespace returns a copy of the named namespace. Callers can never mutate
// store internals through the returned map. An absent namespace returns an
// empty map.
func (s *State) Namespace(name string) map[string]any {
	ns, exists := s.namespaces[name]
	if !exists {
		return map[string]any{}
	}
	return maps.Clone(ns)
}

// Namespaces returns the names of all existing namespaces.
func (s *State) Namespaces() []string {
	names := make([]string, 0, len(s.namespaces))
	for name := range s.namespaces {
		names = append(names, name)
	}
	return names
}

// Text retrieves a string value, returning def when the key is absent or the
// stored value is not a string.
func (s *State) Text(namespace, key, def string) string {
	if val, ok := s.Get(namespace, key, nil).(string); ok {
		return val
	}
	return def
}

// Structured retrieves a map value, returning def when the key is absent or
// the stored value is not a map.
func (s *State) Structured(namespace, key string, def map[string]any) map[string]any {
	if val, ok := s.Get(namespace, key, nil).(map[string]any); ok {
		return val
	}
	return def
}

// List retrieves a slice value, returning def when the key is absent or the
// stored value is not a slice.
func (s *State) List(namespace, key string, def []any) []any {
	if val, ok := s.Get(namespace, key, nil).([]any); ok {
		return val
	}
	return def
}

// Changes returns a copy of the append-only change log.
func (s *State) Changes() []Change {
	changes := make([]Change, len(s.changes))
	copy(changes, s.changes)
	return changes
}

func (s *State) log(namespace, key string, old, value any) {
	s.changes = append(s.changes, Change{
		Timestamp: time.Now(),
		Namespace: namespace,
		Key:       key,
		Old:       old,
		New:       value,
	})
}
