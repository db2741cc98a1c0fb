// Command flow executes a run graph document against a scripted model client
// and prints the resulting event stream. It demonstrates the full wiring of a
// deployment: tool registry, capability router, graph builder, runner, and
// the snapshot persistence hook.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/lmittmann/tint"

	"github.com/tailored-agentic-units/flow/capability"
	"github.com/tailored-agentic-units/flow/core/event"
	"github.com/tailored-agentic-units/flow/hooks"
	"github.com/tailored-agentic-units/flow/model"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/runner"
	"github.com/tailored-agentic-units/flow/snapshot"
)

func main() {
	var (
		graphFile  = flag.String("graph", "", "Path to graph document, YAML or JSON (required)")
		configFile = flag.String("config", "", "Path to runner config JSON file")
		input      = flag.String("input", "", "Caller input for the run (required)")
		workspace  = flag.String("workspace", "", "Workspace directory for file-producing tools (overrides config)")
		snapshots  = flag.String("snapshots", "", "Directory for run snapshots (overrides config)")
		responses  = flag.String("responses", "", "Scripted model responses, separated by '|'")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if *graphFile == "" || *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: flow -graph <file> -input <text>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := runner.DefaultConfig()
	if *configFile != "" {
		loaded, err := runner.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if *workspace != "" {
		cfg.Workspace = *workspace
	}
	if *snapshots != "" {
		cfg.Snapshot.Path = *snapshots
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
	}))
	observer := observability.NewSlogObserver(logger)

	spec, err := runner.LoadGraphSpec(*graphFile)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	if spec.MaxSteps == 0 {
		spec.MaxSteps = cfg.MaxSteps
	}

	var script []string
	if *responses != "" {
		script = strings.Split(*responses, "|")
	} else {
		script = demoScript()
	}
	client := model.NewScripted(script...)

	registry := registerBuiltinTools()
	router := capability.NewRouter(cfg.Workspace, observer)

	builder, err := runner.NewBuilder(client, registry, router, runner.WithStepObserver(observer))
	if err != nil {
		log.Fatalf("Failed to create builder: %v", err)
	}
	graph, err := builder.Build(spec)
	if err != nil {
		log.Fatalf("Failed to build graph:\n%v", err)
	}

	opts := []runner.Option{
		runner.WithObserver(observer),
		runner.WithBufferSize(cfg.BufferSize),
	}
	store, err := snapshot.NewStore(&cfg.Snapshot)
	if err != nil {
		log.Fatalf("Failed to create snapshot store: %v", err)
	}
	if store != nil {
		opts = append(opts, runner.WithHook(hooks.NewPersistenceHook(store, observer)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run := runner.NewRunner(graph, opts...).Run(ctx, *input)
	fmt.Printf("run %s\n", run.ID)

	for ev := range run.Events() {
		printEvent(ev)
	}
}

func printEvent(ev event.Event) {
	switch ev.Type {
	case event.TypeContent:
		fmt.Print(ev.Content)
	case event.TypeNodeStart:
		fmt.Printf("\n[%s] %s\n", ev.StepName, ev.Metadata["label"])
	case event.TypeToolResult:
		fmt.Printf("  tool %s -> %s\n", ev.ToolName, ev.Content)
	case event.TypeError:
		fmt.Printf("  error: %s\n", ev.Content)
	case event.TypeFinal:
		fmt.Printf("\n\nfinal: %s\n", ev.Content)
	case event.TypeDone:
		fmt.Println("done")
	}
}

// demoScript provides canned responses when -responses is not given, enough
// to drive the reference weather graph end to end.
func demoScript() []string {
	return []string{
		"Let me search for that.",
		"The weather looks sunny with a light breeze.",
	}
}
