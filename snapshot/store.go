// Package snapshot persists run summaries after a run completes. A snapshot is
// the durable record a deployment keeps of one finished run: the caller input,
// the final response, the nodes and tools touched, and the exported run state.
//
// Stores are pluggable and stateless — they perform I/O on each call. The
// in-memory store backs tests; the file store writes one JSON document per run.
package snapshot

import (
	"context"
	"time"
)

// Snapshot is the durable record of one completed run.
type Snapshot struct {
	RunID     string         `json:"run_id"`
	Input     string         `json:"input,omitempty"`
	Response  string         `json:"response,omitempty"`
	Nodes     []string       `json:"nodes,omitempty"`
	Tools     []string       `json:"tools,omitempty"`
	State     map[string]any `json:"state,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists run snapshots keyed by run ID.
type Store interface {
	// Save persists a snapshot, creating or overwriting as needed.
	Save(ctx context.Context, snap Snapshot) error
	// Load retrieves the snapshot for a run ID.
	Load(ctx context.Context, runID string) (Snapshot, error)
	// List returns all stored run IDs, sorted.
	List(ctx context.Context) ([]string, error)
	// Delete removes a snapshot. Missing run IDs are ignored.
	Delete(ctx context.Context, runID string) error
}
