package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type fileStore struct {
	root string
}

// NewFileStore creates a Store backed by the filesystem. Each run maps to one
// JSON document at <root>/<runID>.json; writes go through a temp file and
// rename so readers never observe a partial document.
func NewFileStore(root string) Store {
	return &fileStore{root: root}
}

func (s *fileStore) path(runID string) string {
	return filepath.Join(s.root, runID+".json")
}

func (s *fileStore) Save(_ context.Context, snap Snapshot) error {
	if snap.RunID == "" {
		return ErrEmptyRunID
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, snap.RunID, err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, snap.RunID, err)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, snap.RunID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, snap.RunID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, snap.RunID, err)
	}

	if err := os.Rename(tmpName, s.path(snap.RunID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, snap.RunID, err)
	}

	return nil
}

func (s *fileStore) Load(_ context.Context, runID string) (Snapshot, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, runID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrLoadFailed, runID, err)
	}
	return snap, nil
}

func (s *fileStore) List(_ context.Context) ([]string, error) {
	var ids []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.root {
				return fs.SkipAll
			}
			return err
		}

		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		ids = append(ids, strings.TrimSuffix(d.Name(), ".json"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	return ids, nil
}

func (s *fileStore) Delete(_ context.Context, runID string) error {
	if err := os.Remove(s.path(runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete failed: %s: %w", runID, err)
	}
	return nil
}
