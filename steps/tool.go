package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/flow/capability"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/runstate"
	"github.com/tailored-agentic-units/flow/tools"
)

// ToolConfig is the kind-specific configuration for a tool step.
type ToolConfig struct {
	// Tool is the registered tool name to invoke.
	Tool string `json:"tool"`

	// Args are the invocation arguments. String values may use the
	// {{input}} placeholder, which expands to the caller's turn input.
	Args map[string]any `json:"args,omitempty"`
}

// ToolStep invokes one registered tool and routes its output through the
// capability router. Declared required parameters are validated before the
// tool body runs; any failure — missing parameter, handler error, or panic —
// is synthesized into a well-formed error outcome carrying the caller stream,
// diagnostic log, and artifact channels.
type ToolStep struct {
	id       string
	label    string
	config   ToolConfig
	registry *tools.Registry
	router   *capability.Router
	observer observability.Observer
}

// NewToolStep creates a tool step bound to a registry and capability router.
func NewToolStep(id, label string, config ToolConfig, registry *tools.Registry, router *capability.Router, observer observability.Observer) (*ToolStep, error) {
	if registry == nil {
		return nil, ErrNoRegistry
	}
	if router == nil {
		return nil, ErrNoRouter
	}
	if config.Tool == "" {
		return nil, tools.ErrEmptyName
	}

	return &ToolStep{
		id:       id,
		label:    label,
		config:   config,
		registry: registry,
		router:   router,
		observer: observability.Resolve(observer),
	}, nil
}

func (s *ToolStep) ID() string    { return s.id }
func (s *ToolStep) Kind() Kind    { return KindTool }
func (s *ToolStep) Label() string { return s.label }

// Tool returns the registered tool name this step invokes.
func (s *ToolStep) Tool() string { return s.config.Tool }

func (s *ToolStep) Execute(ctx context.Context, in Input, st *runstate.State, emit Emit) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = s.fail(ctx, in, st, fmt.Errorf("tool panicked: %v", r))
		}
	}()

	tool, exists := s.registry.Get(s.config.Tool)
	if !exists {
		return s.fail(ctx, in, st, fmt.Errorf("%w: %s", tools.ErrNotFound, s.config.Tool))
	}

	args := s.resolveArgs(in)
	for _, param := range tool.RequiredParams() {
		if _, present := args[param]; !present {
			return s.fail(ctx, in, st, fmt.Errorf("missing required parameter: %s", param))
		}
	}

	encoded, err := json.Marshal(args)
	if err != nil {
		return s.fail(ctx, in, st, fmt.Errorf("failed to encode arguments: %w", err))
	}

	result, err := s.registry.Execute(ctx, tool.Name, encoded)
	if err != nil {
		return s.fail(ctx, in, st, err)
	}
	if result.IsError {
		return s.fail(ctx, in, st, fmt.Errorf("tool reported failure: %s", result.Content))
	}

	s.diagnostics(ctx, in.RunID, result.Log)

	inv := &capability.Invocation{
		Tool:     tool.Name,
		Content:  result.Content,
		Artifact: result.Artifact,
		Metadata: map[string]any{"capability": string(tool.Capability)},
	}
	if err := s.router.Dispatch(ctx, tool.Capability, inv); err != nil {
		return s.fail(ctx, in, st, fmt.Errorf("capability routing failed: %w", err))
	}

	ns := runstate.StepNamespace(s.id)
	st.Put(ns, "result", inv.Content)
	if inv.Artifact != nil {
		st.Put(ns, "artifact", inv.Artifact)
	}

	inv.Metadata["tool"] = tool.Name
	emit(Outcome{
		Content:  inv.Content,
		Status:   StatusToolResult,
		Metadata: inv.Metadata,
	})

	return Complete(map[string]any{"tool": tool.Name, "capability": string(tool.Capability)})
}

// fail synthesizes a tool failure into a well-formed error outcome with the
// caller stream, diagnostic log, and artifact channels all populated with the
// error description. Downstream event consumers never need special-case
// handling for tool failure versus success.
func (s *ToolStep) fail(ctx context.Context, in Input, st *runstate.State, cause error) Outcome {
	description := cause.Error()
	s.diagnostics(ctx, in.RunID, []string{description})

	st.Put(runstate.StepNamespace(s.id), "error", description)

	outcome := Errorf(description, cause)
	outcome.Metadata["tool"] = s.config.Tool
	outcome.Metadata["artifact"] = description
	return outcome
}

// diagnostics forwards tool log lines to the operator-facing observer stream.
// Log lines never surface to the caller directly.
func (s *ToolStep) diagnostics(ctx context.Context, runID string, lines []string) {
	for _, line := range lines {
		s.observer.OnEvent(ctx, observability.NewEvent(
			EventToolLog, observability.LevelVerbose, "steps.tool",
			map[string]any{"run_id": runID, "step": s.id, "tool": s.config.Tool, "line": line},
		))
	}
}

func (s *ToolStep) resolveArgs(in Input) map[string]any {
	args := make(map[string]any, len(s.config.Args))
	for key, value := range s.config.Args {
		if text, ok := value.(string); ok {
			args[key] = strings.ReplaceAll(text, "{{input}}", in.Prompt)
			continue
		}
		args[key] = value
	}
	return args
}
