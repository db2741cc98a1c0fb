package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/flow/capability"
	"github.com/tailored-agentic-units/flow/core/event"
	"github.com/tailored-agentic-units/flow/hooks"
	"github.com/tailored-agentic-units/flow/model"
	"github.com/tailored-agentic-units/flow/runner"
	"github.com/tailored-agentic-units/flow/runstate"
	"github.com/tailored-agentic-units/flow/snapshot"
	"github.com/tailored-agentic-units/flow/steps"
	"github.com/tailored-agentic-units/flow/tools"
)

// scenarioSpec builds the reference weather workflow: an LLM greeting, a
// router that checks whether the response calls for a search, a search tool,
// and a summarizing LLM.
func scenarioSpec() *runner.GraphSpec {
	return &runner.GraphSpec{
		Name: "weather",
		Nodes: []runner.NodeSpec{
			{ID: "greet", Kind: "llm", Label: "Greet", LLM: &steps.LLMConfig{
				Prompt: "Greet the user asking: {{input}}",
			}},
			{ID: "route", Kind: "router", Label: "Route"},
			{ID: "search", Kind: "tool", Label: "Search", Tool: &steps.ToolConfig{
				Tool: "search",
				Args: map[string]any{"query": "{{input}}"},
			}},
			{ID: "summarize", Kind: "llm", Label: "Summarize", LLM: &steps.LLMConfig{
				Prompt: "Summarize what we found about: {{input}}",
			}},
		},
		Edges: []runner.EdgeSpec{
			{From: "greet", To: "route"},
			{From: "route", To: "search", Name: "needsSearch", When: &runner.PredicateSpec{
				Contains: &runner.ContainsSpec{
					Namespace: runstate.GlobalNamespace,
					Key:       "last_response",
					Substring: "search",
				},
			}},
			{From: "route", To: "summarize", Name: "direct"},
			{From: "search", To: "summarize"},
		},
	}
}

func scenarioDeps(t *testing.T, responses ...string) (*model.Scripted, *tools.Registry, *capability.Router) {
	t.Helper()

	client := model.NewScripted(responses...)
	registry := tools.NewRegistry()
	router := capability.NewRouter(t.TempDir(), nil)

	err := registry.Register(tools.Tool{
		Name:        "search",
		Description: "Search the web",
		Parameters:  map[string]any{"type": "object", "required": []any{"query"}},
		Capability:  capability.None,
	}, func(ctx context.Context, args json.RawMessage) (tools.Result, error) {
		return tools.Result{Content: "search results: sunny, 22C", Log: []string{"queried"}}, nil
	})
	if err != nil {
		t.Fatalf("failed to register tool: %v", err)
	}

	return client, registry, router
}

func buildGraph(t *testing.T, spec *runner.GraphSpec, client model.Client, registry *tools.Registry, router *capability.Router) *runner.Graph {
	t.Helper()

	builder, err := runner.NewBuilder(client, registry, router)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	graph, err := builder.Build(spec)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return graph
}

func collect(run *runner.Run) []event.Event {
	var events []event.Event
	for ev := range run.Events() {
		events = append(events, ev)
	}
	return events
}

type typeStep struct {
	t    event.Type
	step string
}

func sequence(events []event.Event) []typeStep {
	seq := make([]typeStep, len(events))
	for i, ev := range events {
		seq[i] = typeStep{t: ev.Type, step: ev.StepName}
	}
	return seq
}

func TestRunner_ScenarioEventOrder(t *testing.T) {
	client, registry, router := scenarioDeps(t,
		"Let me search for that.",
		"The weather is sunny, around 22C.",
	)
	graph := buildGraph(t, scenarioSpec(), client, registry, router)

	run := runner.NewRunner(graph).Run(context.Background(), "what is the weather")
	events := collect(run)

	want := []typeStep{
		{event.TypeStatus, ""},
		{event.TypeNodeStart, "greet"},
		{event.TypeContent, "greet"},
		{event.TypeNodeComplete, "greet"},
		{event.TypeNodeStart, "route"},
		{event.TypeNodeComplete, "route"},
		{event.TypeNodeStart, "search"},
		{event.TypeToolResult, "search"},
		{event.TypeNodeComplete, "search"},
		{event.TypeNodeStart, "summarize"},
		{event.TypeContent, "summarize"},
		{event.TypeNodeComplete, "summarize"},
		{event.TypeFinal, ""},
		{event.TypeDone, ""},
	}

	got := sequence(events)
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	final := events[len(events)-2]
	if !final.Terminal {
		t.Error("final event should be terminal")
	}
	if final.Content != "The weather is sunny, around 22C." {
		t.Errorf("final content = %q, want last response", final.Content)
	}
	if _, ok := final.Metadata["state"].(map[string]any); !ok {
		t.Error("final event should carry the exported state")
	}

	done := events[len(events)-1]
	if !done.Terminal {
		t.Error("done event should be terminal")
	}

	runID := events[0].RunID
	for i, ev := range events {
		if ev.RunID != runID {
			t.Errorf("event[%d].RunID = %q, want %q", i, ev.RunID, runID)
		}
	}
}

func TestRunner_RouterSkipsSearch(t *testing.T) {
	client, registry, router := scenarioDeps(t,
		"Hello! No lookup needed.",
		"All done.",
	)
	graph := buildGraph(t, scenarioSpec(), client, registry, router)

	run := runner.NewRunner(graph).Run(context.Background(), "just say hi")
	events := collect(run)

	for _, ev := range events {
		if ev.StepName == "search" {
			t.Fatalf("search node should not run when the response does not ask for it: %v", sequence(events))
		}
	}
	if events[len(events)-2].Content != "All done." {
		t.Errorf("final content = %q", events[len(events)-2].Content)
	}
}

func TestRunner_ErrorFallbackEdge(t *testing.T) {
	client := model.NewScripted("Sorry, the search backend is down.")
	registry := tools.NewRegistry()
	router := capability.NewRouter(t.TempDir(), nil)

	err := registry.Register(tools.Tool{
		Name:       "search",
		Parameters: map[string]any{"type": "object"},
		Capability: capability.None,
	}, func(ctx context.Context, args json.RawMessage) (tools.Result, error) {
		return tools.Result{}, errors.New("backend unreachable")
	})
	if err != nil {
		t.Fatalf("failed to register tool: %v", err)
	}

	spec := &runner.GraphSpec{
		Name: "fallback",
		Nodes: []runner.NodeSpec{
			{ID: "search", Kind: "tool", Tool: &steps.ToolConfig{Tool: "search"}},
			{ID: "apologize", Kind: "llm", LLM: &steps.LLMConfig{Prompt: "Apologize for the failure."}},
		},
		Edges: []runner.EdgeSpec{
			{From: "search", To: "apologize", OnError: true},
		},
	}
	graph := buildGraph(t, spec, client, registry, router)

	run := runner.NewRunner(graph).Run(context.Background(), "find something")
	events := collect(run)

	var sawError, sawApologize bool
	for _, ev := range events {
		if ev.Type == event.TypeError && ev.StepName == "search" {
			sawError = true
		}
		if ev.Type == event.TypeNodeComplete && ev.StepName == "apologize" {
			sawApologize = true
		}
	}
	if !sawError {
		t.Error("failing node should emit an error event")
	}
	if !sawApologize {
		t.Error("run should continue through the on_error edge")
	}

	final := events[len(events)-2]
	if final.Type != event.TypeFinal {
		t.Fatalf("penultimate event = %v, want final", final.Type)
	}
	if final.Metadata["error"] != nil {
		t.Errorf("recovered run should finish without a final error, got %v", final.Metadata["error"])
	}
	if final.Content != "Sorry, the search backend is down." {
		t.Errorf("final content = %q", final.Content)
	}
}

func TestRunner_ErrorWithoutFallbackTerminates(t *testing.T) {
	client := model.NewScripted() // exhausted: the first call fails
	registry := tools.NewRegistry()
	router := capability.NewRouter(t.TempDir(), nil)

	spec := &runner.GraphSpec{
		Name: "failing",
		Nodes: []runner.NodeSpec{
			{ID: "greet", Kind: "llm", LLM: &steps.LLMConfig{Prompt: "Say hello."}},
		},
	}
	graph := buildGraph(t, spec, client, registry, router)

	run := runner.NewRunner(graph).Run(context.Background(), "hi")
	events := collect(run)

	var finals, dones int
	for _, ev := range events {
		switch ev.Type {
		case event.TypeFinal:
			finals++
		case event.TypeDone:
			dones++
		}
	}
	if finals != 1 || dones != 1 {
		t.Fatalf("finals = %d, dones = %d, want exactly one each", finals, dones)
	}

	final := events[len(events)-2]
	if final.Metadata["error"] == nil {
		t.Error("failed run should carry the error in the final event metadata")
	}
}

func TestRunner_MaxStepsGuard(t *testing.T) {
	client, registry, router := scenarioDeps(t)

	spec := &runner.GraphSpec{
		Name:     "cyclic",
		MaxSteps: 5,
		Nodes: []runner.NodeSpec{
			{ID: "start", Kind: "router"},
			{ID: "a", Kind: "router"},
			{ID: "b", Kind: "router"},
		},
		Edges: []runner.EdgeSpec{
			{From: "start", To: "a"},
			{From: "a", To: "b"},
			{From: "b", To: "a"},
		},
	}
	graph := buildGraph(t, spec, client, registry, router)

	run := runner.NewRunner(graph).Run(context.Background(), "loop")
	events := collect(run)

	final := events[len(events)-2]
	if final.Type != event.TypeFinal {
		t.Fatalf("penultimate event = %v, want final", final.Type)
	}
	msg, _ := final.Metadata["error"].(string)
	if !strings.Contains(msg, "max steps") {
		t.Errorf("final error = %q, want max steps violation", msg)
	}
}

func TestRunner_Cancellation(t *testing.T) {
	client, registry, router := scenarioDeps(t,
		"Let me search for that.",
		"The weather is sunny.",
	)
	graph := buildGraph(t, scenarioSpec(), client, registry, router)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := runner.NewRunner(graph).Run(ctx, "what is the weather")
	events := collect(run)

	if len(events) < 2 {
		t.Fatalf("got %d events, want at least final and done", len(events))
	}
	final := events[len(events)-2]
	done := events[len(events)-1]
	if final.Type != event.TypeFinal || done.Type != event.TypeDone {
		t.Fatalf("stream must end with final, done even when cancelled; got %v", sequence(events))
	}
	msg, _ := final.Metadata["error"].(string)
	if !strings.Contains(msg, "cancelled") {
		t.Errorf("final error = %q, want cancellation", msg)
	}
}

type suppressContent struct{}

func (suppressContent) OnEvent(_ context.Context, ev event.Event) *event.Event {
	if ev.Type == event.TypeContent {
		return nil
	}
	return &ev
}

func (suppressContent) OnFinal(context.Context, event.Event) {}

func TestRunner_HookSuppression(t *testing.T) {
	client, registry, router := scenarioDeps(t,
		"Let me search for that.",
		"The weather is sunny.",
	)
	graph := buildGraph(t, scenarioSpec(), client, registry, router)

	run := runner.NewRunner(graph, runner.WithHook(suppressContent{})).Run(context.Background(), "what is the weather")
	events := collect(run)

	for _, ev := range events {
		if ev.Type == event.TypeContent {
			t.Fatal("suppressed content events must not reach the caller")
		}
	}

	// Control flow is unaffected: the run still visits every node and
	// terminates normally.
	var completes int
	for _, ev := range events {
		if ev.Type == event.TypeNodeComplete {
			completes++
		}
	}
	if completes != 4 {
		t.Errorf("node_complete events = %d, want 4", completes)
	}
	if events[len(events)-1].Type != event.TypeDone {
		t.Error("stream should still end with done")
	}
}

type finalCounter struct {
	finals []event.Event
}

func (h *finalCounter) OnEvent(_ context.Context, ev event.Event) *event.Event {
	ev.Content = strings.ReplaceAll(ev.Content, "sunny", "[weather]")
	return &ev
}

func (h *finalCounter) OnFinal(_ context.Context, ev event.Event) {
	h.finals = append(h.finals, ev)
}

func TestRunner_HookSubstitutionAndFinal(t *testing.T) {
	client, registry, router := scenarioDeps(t,
		"Let me search for that.",
		"The weather is sunny.",
	)
	graph := buildGraph(t, scenarioSpec(), client, registry, router)

	hook := &finalCounter{}
	run := runner.NewRunner(graph, runner.WithHook(hook)).Run(context.Background(), "what is the weather")
	events := collect(run)

	final := events[len(events)-2]
	if final.Content != "The weather is [weather]." {
		t.Errorf("final content = %q, want substituted text", final.Content)
	}

	if len(hook.finals) != 1 {
		t.Fatalf("OnFinal fired %d times, want exactly once", len(hook.finals))
	}
	if hook.finals[0].Type != event.TypeFinal {
		t.Errorf("OnFinal event type = %v", hook.finals[0].Type)
	}
}

type panicEverywhere struct{}

func (panicEverywhere) OnEvent(context.Context, event.Event) *event.Event { panic("hook bug") }
func (panicEverywhere) OnFinal(context.Context, event.Event)              { panic("hook bug") }

func TestRunner_PanickingHookDoesNotKillRun(t *testing.T) {
	client, registry, router := scenarioDeps(t,
		"Let me search for that.",
		"The weather is sunny.",
	)
	graph := buildGraph(t, scenarioSpec(), client, registry, router)

	run := runner.NewRunner(graph, runner.WithHook(panicEverywhere{})).Run(context.Background(), "what is the weather")
	events := collect(run)

	if len(events) == 0 {
		t.Fatal("events should still be delivered when the hook panics")
	}
	if events[len(events)-1].Type != event.TypeDone {
		t.Errorf("last event = %v, want done", events[len(events)-1].Type)
	}
}

func TestRunner_PersistenceHookSavesRun(t *testing.T) {
	client, registry, router := scenarioDeps(t,
		"Let me search for that.",
		"The weather is sunny.",
	)
	graph := buildGraph(t, scenarioSpec(), client, registry, router)

	store := snapshot.NewMemStore()
	hook := hooks.NewPersistenceHook(store, nil)

	run := runner.NewRunner(graph, runner.WithHook(hook)).Run(context.Background(), "what is the weather")
	collect(run)

	snap, err := store.Load(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Input != "what is the weather" {
		t.Errorf("Input = %q", snap.Input)
	}
	if snap.Response != "The weather is sunny." {
		t.Errorf("Response = %q", snap.Response)
	}
	if len(snap.Nodes) != 4 {
		t.Errorf("Nodes = %v, want all four", snap.Nodes)
	}
	if len(snap.Tools) != 1 || snap.Tools[0] != "search" {
		t.Errorf("Tools = %v", snap.Tools)
	}
	if snap.State == nil {
		t.Error("State should be captured from the final event")
	}
}
