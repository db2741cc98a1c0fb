// Package jobs runs keyed background work alongside the main run loop. Each
// key admits at most one in-flight job: a duplicate submission is rejected
// rather than queued, so periodic triggers (state flushes, snapshot uploads)
// can fire blindly without piling up.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/flow/observability"
)

// Sentinel errors for job submission.
var (
	ErrDuplicateJob = errors.New("job already in flight")
	ErrEmptyKey     = errors.New("job requires a key")
	ErrClosed       = errors.New("dispatcher closed")
)

// Diagnostic event types emitted by the dispatcher.
const (
	EventJobStarted  observability.EventType = "jobs.started"
	EventJobFinished observability.EventType = "jobs.finished"
	EventJobFailed   observability.EventType = "jobs.failed"
	EventJobRejected observability.EventType = "jobs.rejected"
)

// Job is one unit of background work. The context is the dispatcher's group
// context: it is cancelled when any sibling job fails or the dispatcher's
// parent context is cancelled.
type Job func(ctx context.Context) error

// Dispatcher schedules keyed background jobs on a bounded worker group.
// Safe for concurrent use.
type Dispatcher struct {
	group    *errgroup.Group
	ctx      context.Context
	observer observability.Observer

	mu       sync.Mutex
	inflight map[string]bool
	closed   bool
}

// NewDispatcher creates a Dispatcher. Jobs run on an errgroup bound to ctx;
// limit caps concurrent jobs when positive, unbounded otherwise.
func NewDispatcher(ctx context.Context, limit int, observer observability.Observer) *Dispatcher {
	group, groupCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	return &Dispatcher{
		group:    group,
		ctx:      groupCtx,
		observer: observability.Resolve(observer),
		inflight: make(map[string]bool),
	}
}

// Submit schedules a job under the given key. Returns ErrDuplicateJob when a
// job with the same key is still in flight, and ErrClosed after Wait.
func (d *Dispatcher) Submit(key string, job Job) error {
	if key == "" {
		return ErrEmptyKey
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if d.inflight[key] {
		d.mu.Unlock()
		d.observer.OnEvent(d.ctx, observability.NewEvent(
			EventJobRejected, observability.LevelWarning, "jobs",
			map[string]any{"key": key},
		))
		return fmt.Errorf("%w: %s", ErrDuplicateJob, key)
	}
	d.inflight[key] = true
	d.mu.Unlock()

	d.group.Go(func() error {
		defer func() {
			d.mu.Lock()
			delete(d.inflight, key)
			d.mu.Unlock()
		}()

		d.observer.OnEvent(d.ctx, observability.NewEvent(
			EventJobStarted, observability.LevelVerbose, "jobs",
			map[string]any{"key": key},
		))

		if err := job(d.ctx); err != nil {
			d.observer.OnEvent(d.ctx, observability.NewEvent(
				EventJobFailed, observability.LevelError, "jobs",
				map[string]any{"key": key, "error": err.Error()},
			))
			return fmt.Errorf("job %s: %w", key, err)
		}

		d.observer.OnEvent(d.ctx, observability.NewEvent(
			EventJobFinished, observability.LevelVerbose, "jobs",
			map[string]any{"key": key},
		))
		return nil
	})

	return nil
}

// Running returns the keys of in-flight jobs, sorted.
func (d *Dispatcher) Running() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := make([]string, 0, len(d.inflight))
	for key := range d.inflight {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Wait blocks until all in-flight jobs finish and returns the first job error.
// The dispatcher rejects further submissions after Wait is called.
func (d *Dispatcher) Wait() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	return d.group.Wait()
}
