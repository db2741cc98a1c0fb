// Package tools manages tool definitions and their handlers.
//
// Unlike a process-wide registry, a Registry is constructed per deployment and
// injected into the graph builder, so concurrent runs and tests never share
// mutable registration state by accident.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/tailored-agentic-units/flow/capability"
)

// Tool defines a function a tool step can invoke. Parameters uses JSON Schema
// format to describe the input; Capability declares the output-routing
// category, fixed at registration time.
type Tool struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Parameters  map[string]any        `json:"parameters"`
	Capability  capability.Capability `json:"capability"`
}

// Result is a tool execution output. Each invocation produces three
// conceptually distinct channels: Content feeds the caller-facing stream, Log
// feeds the operator-facing diagnostics, and Artifact is what capability
// routing delivers to the matching container. IsError marks a failed
// invocation that was still synthesized into a well-formed result.
type Result struct {
	Content  string
	Log      []string
	Artifact any
	IsError  bool
}

// Handler is the function signature for tool implementations. Handlers
// receive the request context and JSON-encoded arguments.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

type entry struct {
	tool    Tool
	handler Handler
}

// Registry holds named tools. Thread-safe for concurrent access.
type Registry struct {
	entries map[string]entry
	mu      sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// Register adds a new tool. Returns ErrAlreadyExists if a tool with the same
// name is registered; use Replace to update an existing tool's handler.
func (r *Registry) Register(tool Tool, handler Handler) error {
	if tool.Name == "" {
		return ErrEmptyName
	}

	parsed, err := capability.Parse(string(tool.Capability))
	if err != nil {
		return fmt.Errorf("tool %s: %w", tool.Name, err)
	}
	tool.Capability = parsed

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, tool.Name)
	}

	r.entries[tool.Name] = entry{tool: tool, handler: handler}
	return nil
}

// Replace updates an existing tool's definition and handler.
// Returns ErrNotFound if no tool with the given name is registered.
func (r *Registry) Replace(tool Tool, handler Handler) error {
	if tool.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, tool.Name)
	}

	r.entries[tool.Name] = entry{tool: tool, handler: handler}
	return nil
}

// Get retrieves a tool definition by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return Tool{}, false
	}
	return e.tool, true
}

// List returns the definitions of all registered tools, sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.entries))
	for _, e := range r.entries {
		tools = append(tools, e.tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Execute dispatches a tool call to the registered handler by name.
// Returns ErrNotFound if the tool is not registered. Handler errors are
// wrapped with the tool name for context.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	r.mu.RLock()
	e, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	result, err := e.handler(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("tool %s execution failed: %w", name, err)
	}

	return result, nil
}

// RequiredParams returns the parameter names the tool's JSON Schema marks as
// required. Used by tool steps to validate arguments before execution.
func (t Tool) RequiredParams() []string {
	required, ok := t.Parameters["required"]
	if !ok {
		return nil
	}

	switch names := required.(type) {
	case []string:
		return names
	case []any:
		params := make([]string, 0, len(names))
		for _, name := range names {
			if s, ok := name.(string); ok {
				params = append(params, s)
			}
		}
		return params
	default:
		return nil
	}
}
