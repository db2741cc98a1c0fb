package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailored-agentic-units/flow/capability"
	"github.com/tailored-agentic-units/flow/tools"
)

func registerBuiltinTools() *tools.Registry {
	registry := tools.NewRegistry()

	must(registry.Register(tools.Tool{
		Name:        "datetime",
		Description: "Returns the current date and time in RFC3339 format.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Capability: capability.None,
	}, handleDatetime))

	must(registry.Register(tools.Tool{
		Name:        "search",
		Description: "Returns canned search results for a query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query.",
				},
			},
			"required": []string{"query"},
		},
		Capability: capability.None,
	}, handleSearch))

	must(registry.Register(tools.Tool{
		Name:        "save_note",
		Description: "Writes a note into the run workspace.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "File name for the note.",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Note body.",
				},
			},
			"required": []string{"name", "content"},
		},
		Capability: capability.File,
	}, handleSaveNote))

	return registry
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("failed to register tool: %v", err))
	}
}

func handleDatetime(_ context.Context, _ json.RawMessage) (tools.Result, error) {
	return tools.Result{Content: time.Now().Format(time.RFC3339)}, nil
}

func handleSearch(_ context.Context, raw json.RawMessage) (tools.Result, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return tools.Result{Content: "invalid arguments: " + err.Error(), IsError: true}, nil
	}

	return tools.Result{
		Content: fmt.Sprintf("3 results for %q: forecast pages, local observations, radar", args.Query),
		Log:     []string{"search: index queried", "search: 3 hits ranked"},
		Artifact: map[string]any{
			"query": args.Query,
			"hits":  3,
		},
	}, nil
}

func handleSaveNote(_ context.Context, raw json.RawMessage) (tools.Result, error) {
	var args struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return tools.Result{Content: "invalid arguments: " + err.Error(), IsError: true}, nil
	}

	dir, err := os.MkdirTemp("", "flow-note-*")
	if err != nil {
		return tools.Result{Content: err.Error(), IsError: true}, nil
	}
	path := filepath.Join(dir, args.Name)
	if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
		return tools.Result{Content: err.Error(), IsError: true}, nil
	}

	return tools.Result{
		Content:  path,
		Log:      []string{"note written to " + path},
		Artifact: map[string]any{"path": path, "bytes": len(args.Content)},
	}, nil
}
