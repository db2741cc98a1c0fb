package capability_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/flow/capability"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        capability.Capability
		expectError bool
	}{
		{name: "empty defaults to none", input: "", want: capability.None},
		{name: "none", input: "none", want: capability.None},
		{name: "file", input: "file", want: capability.File},
		{name: "browser", input: "browser", want: capability.Browser},
		{name: "realtime", input: "realtime", want: capability.Realtime},
		{name: "todo", input: "todo", want: capability.Todo},
		{name: "unknown", input: "quantum", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := capability.Parse(tt.input)

			if tt.expectError {
				if !errors.Is(err, capability.ErrUnknownCapability) {
					t.Errorf("expected ErrUnknownCapability, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRouter_DefaultHandlers(t *testing.T) {
	router := capability.NewRouter(t.TempDir(), nil)

	for _, c := range capability.All() {
		if !router.Registered(c) {
			t.Errorf("capability %q should be registered by default", c)
		}
	}
	if router.Registered("quantum") {
		t.Error("unknown capability should not be registered")
	}
}

func TestRouter_PassthroughLeavesResultUnchanged(t *testing.T) {
	router := capability.NewRouter("", nil)

	inv := &capability.Invocation{
		Tool:     "search",
		Content:  "result text",
		Metadata: map[string]any{"k": "v"},
	}
	if err := router.Dispatch(context.Background(), capability.None, inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inv.Content != "result text" || inv.Metadata["k"] != "v" {
		t.Errorf("passthrough modified invocation: %+v", inv)
	}
}

func TestRouter_FileHandler(t *testing.T) {
	workspace := filepath.Join(t.TempDir(), "workspace")
	router := capability.NewRouter(workspace, nil)

	inv := &capability.Invocation{Tool: "write_report", Content: "done"}
	if err := router.Dispatch(context.Background(), capability.File, inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inv.Metadata["workspace"] != workspace {
		t.Errorf("workspace not attached to metadata: %+v", inv.Metadata)
	}

	info, err := os.Stat(workspace)
	if err != nil || !info.IsDir() {
		t.Error("file handler should create the workspace directory")
	}

	// The handler must not materialize any files itself.
	entries, err := os.ReadDir(workspace)
	if err != nil {
		t.Fatalf("failed to read workspace: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("file handler created %d entries, want 0", len(entries))
	}
}

func TestRouter_FileHandlerWithoutWorkspace(t *testing.T) {
	router := capability.NewRouter("", nil)

	inv := &capability.Invocation{Tool: "write_report"}
	if err := router.Dispatch(context.Background(), capability.File, inv); !errors.Is(err, capability.ErrNoWorkspace) {
		t.Errorf("expected ErrNoWorkspace, got %v", err)
	}
}

func TestRouter_UnknownCapability(t *testing.T) {
	router := capability.NewRouter("", nil)

	err := router.Dispatch(context.Background(), "quantum", &capability.Invocation{})
	if !errors.Is(err, capability.ErrUnknownCapability) {
		t.Errorf("expected ErrUnknownCapability, got %v", err)
	}
}

func TestRouter_RegisterExtension(t *testing.T) {
	router := capability.NewRouter("", nil)

	router.Register(capability.Todo, func(ctx context.Context, inv *capability.Invocation) error {
		if inv.Metadata == nil {
			inv.Metadata = make(map[string]any)
		}
		inv.Metadata["todos"] = []any{inv.Content}
		return nil
	})

	inv := &capability.Invocation{Tool: "plan", Content: "buy milk"}
	if err := router.Dispatch(context.Background(), capability.Todo, inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	todos, ok := inv.Metadata["todos"].([]any)
	if !ok || len(todos) != 1 {
		t.Errorf("extension handler not applied: %+v", inv.Metadata)
	}
}
