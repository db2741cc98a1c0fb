package runstate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/flow/runstate"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestState_PutFile(t *testing.T) {
	path := writeTempFile(t, "report.md", "# Report\n")

	s := runstate.New("run-1", nil)
	s.PutFile("report", runstate.FileRecord{
		Path:     path,
		Type:     "markdown",
		Metadata: map[string]any{"step": "summarize"},
	})

	record, exists := s.GetFile("report")
	if !exists {
		t.Fatal("GetFile should find registered file")
	}
	if record.Size != int64(len("# Report\n")) {
		t.Errorf("Size = %d, want %d", record.Size, len("# Report\n"))
	}
	if record.RegisteredAt.IsZero() {
		t.Error("RegisteredAt should be stamped")
	}
}

func TestState_PutFile_MissingPathWarns(t *testing.T) {
	capture := &captureObserver{}
	s := runstate.New("run-1", capture)

	s.PutFile("pending", runstate.FileRecord{Path: "/nonexistent/output.txt", Type: "text"})

	if _, exists := s.GetFile("pending"); !exists {
		t.Error("missing path should still register")
	}
	if capture.count(runstate.EventFileMissing) != 1 {
		t.Error("missing path should emit a file.missing warning")
	}
}

func TestState_ReadFileContent(t *testing.T) {
	path := writeTempFile(t, "data.txt", "contents")

	capture := &captureObserver{}
	s := runstate.New("run-1", capture)
	s.PutFile("data", runstate.FileRecord{Path: path, Type: "text"})
	s.PutFile("gone", runstate.FileRecord{Path: filepath.Join(t.TempDir(), "gone.txt"), Type: "text"})

	tests := []struct {
		name      string
		key       string
		want      string
		wantFound bool
	}{
		{name: "readable file", key: "data", want: "contents", wantFound: true},
		{name: "unregistered key", key: "missing", wantFound: false},
		{name: "io failure is not-found", key: "gone", wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := s.ReadFileContent(tt.key)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if found && got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}

	if capture.count(runstate.EventFileReadError) != 1 {
		t.Error("I/O failure should emit a file.read_error warning")
	}
}

func TestState_Export(t *testing.T) {
	capture := &captureObserver{}
	s := runstate.New("run-1", capture)
	s.Put(runstate.GlobalNamespace, "answer", "42")
	s.Put(runstate.GlobalNamespace, "stream", make(chan int)) // not serializable
	s.PutFile("out", runstate.FileRecord{Path: "/tmp/out.txt", Type: "text"})

	snapshot := s.Export()

	if snapshot["run_id"] != "run-1" {
		t.Errorf("run_id = %v", snapshot["run_id"])
	}

	namespaces := snapshot["namespaces"].(map[string]any)
	global := namespaces[runstate.GlobalNamespace].(map[string]any)
	if global["answer"] != "42" {
		t.Errorf("exported answer = %v", global["answer"])
	}
	if _, exists := global["stream"]; exists {
		t.Error("non-serializable value should be stripped from export")
	}
	if capture.count(runstate.EventExportStripped) != 1 {
		t.Error("stripping should emit a warning event")
	}

	files := snapshot["files"].(map[string]any)
	if _, exists := files["out"]; !exists {
		t.Error("file registry missing from export")
	}
}
