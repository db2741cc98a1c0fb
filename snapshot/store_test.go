package snapshot_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tailored-agentic-units/flow/snapshot"
)

func sample(runID string) snapshot.Snapshot {
	return snapshot.Snapshot{
		RunID:     runID,
		Input:     "what is the weather",
		Response:  "sunny with a light breeze",
		Nodes:     []string{"greet", "route", "search", "summarize"},
		Tools:     []string{"search"},
		State:     map[string]any{"last_response": "sunny with a light breeze"},
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func stores(t *testing.T) map[string]snapshot.Store {
	t.Helper()
	return map[string]snapshot.Store{
		"mem":  snapshot.NewMemStore(),
		"file": snapshot.NewFileStore(t.TempDir()),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			original := sample("run-1")
			if err := store.Save(context.Background(), original); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := store.Load(context.Background(), "run-1")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if loaded.RunID != original.RunID {
				t.Errorf("RunID = %q, want %q", loaded.RunID, original.RunID)
			}
			if loaded.Response != original.Response {
				t.Errorf("Response = %q, want %q", loaded.Response, original.Response)
			}
			if len(loaded.Nodes) != 4 {
				t.Errorf("Nodes = %v, want 4 entries", loaded.Nodes)
			}
			if !loaded.CreatedAt.Equal(original.CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", loaded.CreatedAt, original.CreatedAt)
			}
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), "absent")
			if !errors.Is(err, snapshot.ErrNotFound) {
				t.Errorf("Load() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_SaveRequiresRunID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Save(context.Background(), snapshot.Snapshot{})
			if !errors.Is(err, snapshot.ErrEmptyRunID) {
				t.Errorf("Save() error = %v, want ErrEmptyRunID", err)
			}
		})
	}
}

func TestStore_ListSorted(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"run-c", "run-a", "run-b"} {
				if err := store.Save(context.Background(), sample(id)); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
			}

			ids, err := store.List(context.Background())
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}

			want := []string{"run-a", "run-b", "run-c"}
			if len(ids) != len(want) {
				t.Fatalf("List() returned %d ids, want %d", len(ids), len(want))
			}
			for i, id := range ids {
				if id != want[i] {
					t.Errorf("List()[%d] = %q, want %q", i, id, want[i])
				}
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(context.Background(), sample("run-1")); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			if err := store.Delete(context.Background(), "run-1"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Load(context.Background(), "run-1"); !errors.Is(err, snapshot.ErrNotFound) {
				t.Errorf("Load() after delete error = %v, want ErrNotFound", err)
			}

			if err := store.Delete(context.Background(), "run-1"); err != nil {
				t.Errorf("Delete() of missing id error = %v, want nil", err)
			}
		})
	}
}

func TestFileStore_Overwrite(t *testing.T) {
	store := snapshot.NewFileStore(t.TempDir())

	first := sample("run-1")
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := first
	second.Response = "revised answer"
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Response != "revised answer" {
		t.Errorf("Response = %q, want overwritten value", loaded.Response)
	}
}

func TestFileStore_ListMissingRoot(t *testing.T) {
	store := snapshot.NewFileStore(filepath.Join(t.TempDir(), "nonexistent"))

	ids, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("List() returned %d ids, want 0", len(ids))
	}
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "README.txt"), []byte("notes"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store := snapshot.NewFileStore(root)
	if err := store.Save(context.Background(), sample("run-1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	ids, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "run-1" {
		t.Errorf("List() = %v, want [run-1]", ids)
	}
}

func TestNewStore_FromConfig(t *testing.T) {
	cfg := snapshot.DefaultConfig()
	store, err := snapshot.NewStore(&cfg)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store != nil {
		t.Error("empty path should disable persistence")
	}

	cfg.Merge(&snapshot.Config{Path: t.TempDir()})
	store, err = snapshot.NewStore(&cfg)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store == nil {
		t.Fatal("configured path should enable the file store")
	}
}
