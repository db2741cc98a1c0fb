package runstate

import (
	"context"
	"encoding/json"

	"github.com/tailored-agentic-units/flow/observability"
)

// Export produces a plain nested-map snapshot of the store for external
// persistence: namespace data under "namespaces", the file registry under
// "files". Values that cannot be serialized (channels, functions, references
// to in-memory run objects) are stripped rather than failing the export; each
// stripped value is logged as a warning.
func (s *State) Export() map[string]any {
	namespaces := make(map[string]any, len(s.namespaces))
	for name, ns := range s.namespaces {
		exported := make(map[string]any, len(ns))
		for key, value := range ns {
			if !serializable(value) {
				s.observer.OnEvent(context.Background(), observability.NewEvent(
					EventExportStripped, observability.LevelWarning, "runstate",
					map[string]any{"run_id": s.runID, "namespace": name, "key": key},
				))
				continue
			}
			exported[key] = value
		}
		namespaces[name] = exported
	}

	files := make(map[string]any, len(s.files))
	for key, record := range s.files {
		files[key] = map[string]any{
			"path":          record.Path,
			"type":          record.Type,
			"size":          record.Size,
			"metadata":      record.Metadata,
			"registered_at": record.RegisteredAt,
		}
	}

	return map[string]any{
		"run_id":     s.runID,
		"namespaces": namespaces,
		"files":      files,
	}
}

func serializable(value any) bool {
	if value == nil {
		return true
	}
	_, err := json.Marshal(value)
	return err == nil
}
