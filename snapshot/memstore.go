package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memStore struct {
	snaps map[string]Snapshot
	mu    sync.RWMutex
}

// NewMemStore creates an in-memory Store. Snapshots do not survive the
// process; intended for tests and ephemeral deployments.
func NewMemStore() Store {
	return &memStore{snaps: make(map[string]Snapshot)}
}

func (s *memStore) Save(_ context.Context, snap Snapshot) error {
	if snap.RunID == "" {
		return ErrEmptyRunID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.RunID] = snap
	return nil
}

func (s *memStore) Load(_ context.Context, runID string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.snaps[runID]
	if !exists {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return snap, nil
}

func (s *memStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snaps))
	for id := range s.snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, runID)
	return nil
}
