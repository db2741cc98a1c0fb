package runstate

import (
	"context"
	"os"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
)

// FileRecord describes a file registered with the run.
type FileRecord struct {
	Path         string         `json:"path"`
	Type         string         `json:"type"`
	Size         int64          `json:"size"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// PutFile registers a file under the given key. The path is probed to fill in
// the size; a missing path is allowed but logged as a warning — steps may
// register files they are about to produce.
func (s *State) PutFile(key string, record FileRecord) {
	record.RegisteredAt = time.Now()

	info, err := os.Stat(record.Path)
	if err != nil {
		s.observer.OnEvent(context.Background(), observability.NewEvent(
			EventFileMissing, observability.LevelWarning, "runstate",
			map[string]any{"run_id": s.runID, "key": key, "path": record.Path},
		))
	} else {
		record.Size = info.Size()
	}

	old, existed := s.files[key]
	s.files[key] = record

	var oldLogged any
	if existed {
		oldLogged = old
	}
	s.log("files", key, oldLogged, record)

	s.observer.OnEvent(context.Background(), observability.NewEvent(
		EventFileRegister, observability.LevelVerbose, "runstate",
		map[string]any{"run_id": s.runID, "key": key, "path": record.Path, "size": record.Size},
	))
}

// GetFile returns the registered record for a file key.
func (s *State) GetFile(key string) (FileRecord, bool) {
	record, exists := s.files[key]
	return record, exists
}

// Files returns a copy of the file registry.
func (s *State) Files() map[string]FileRecord {
	files := make(map[string]FileRecord, len(s.files))
	for key, record := range s.files {
		files[key] = record
	}
	return files
}

// ReadFileContent reads the content of a registered file. Reads are
// best-effort: an unregistered key or an I/O failure is logged and reported
// as not found, never propagated as an error.
func (s *State) ReadFileContent(key string) (string, bool) {
	record, exists := s.files[key]
	if !exists {
		return "", false
	}

	data, err := os.ReadFile(record.Path)
	if err != nil {
		s.observer.OnEvent(context.Background(), observability.NewEvent(
			EventFileReadError, observability.LevelWarning, "runstate",
			map[string]any{"run_id": s.runID, "key": key, "path": record.Path, "error": err.Error()},
		))
		return "", false
	}

	return string(data), true
}
