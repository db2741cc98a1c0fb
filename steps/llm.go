package steps

import (
	"context"
	"strings"

	"github.com/tailored-agentic-units/flow/model"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/runstate"
)

// LLMConfig is the kind-specific configuration for an LLM step.
type LLMConfig struct {
	// System is an optional system prompt prepended to the conversation.
	System string `json:"system,omitempty"`

	// Prompt is the user-turn template. The {{input}} placeholder expands to
	// the caller's turn input. When empty, the caller input is used directly.
	Prompt string `json:"prompt,omitempty"`

	// Stream selects fragment-by-fragment emission via CallStream. When
	// false the step issues one blocking Call and emits a single fragment.
	Stream bool `json:"stream,omitempty"`
}

// LLMStep calls the injected model client and streams the response to the
// caller. The resolved prompt and the response are appended to the run
// transcript and recorded in the step's namespace.
type LLMStep struct {
	id       string
	label    string
	config   LLMConfig
	client   model.Client
	history  *model.History
	observer observability.Observer
}

// NewLLMStep creates an LLM step. The client is a required collaborator.
func NewLLMStep(id, label string, config LLMConfig, client model.Client, history *model.History, observer observability.Observer) (*LLMStep, error) {
	if client == nil {
		return nil, ErrNoClient
	}
	if history == nil {
		history = model.NewHistory()
	}

	return &LLMStep{
		id:       id,
		label:    label,
		config:   config,
		client:   client,
		history:  history,
		observer: observability.Resolve(observer),
	}, nil
}

func (s *LLMStep) ID() string    { return s.id }
func (s *LLMStep) Kind() Kind    { return KindLLM }
func (s *LLMStep) Label() string { return s.label }

func (s *LLMStep) Execute(ctx context.Context, in Input, st *runstate.State, emit Emit) Outcome {
	prompt := s.resolvePrompt(in)
	if prompt == "" {
		return Errorf("missing required parameter: prompt", nil)
	}

	messages := s.buildMessages(prompt)

	s.observer.OnEvent(ctx, observability.NewEvent(
		EventModelCall, observability.LevelVerbose, "steps.llm",
		map[string]any{"run_id": in.RunID, "step": s.id, "messages": len(messages), "stream": s.config.Stream},
	))

	response, outcome := s.call(ctx, messages, emit)
	if outcome != nil {
		return *outcome
	}

	s.history.Add(model.NewMessage(model.RoleUser, prompt))
	s.history.Add(model.NewMessage(model.RoleAssistant, response))

	ns := runstate.StepNamespace(s.id)
	st.Put(ns, "prompt", prompt)
	st.Put(ns, "response", response)
	st.Put(runstate.GlobalNamespace, "last_response", response)

	return Complete(map[string]any{"response_length": len(response)})
}

func (s *LLMStep) call(ctx context.Context, messages []model.Message, emit Emit) (string, *Outcome) {
	if !s.config.Stream {
		response, err := s.client.Call(ctx, messages)
		if err != nil {
			outcome := Errorf("model call failed", err)
			return "", &outcome
		}
		emit(Content(response))
		return response, nil
	}

	fragments, err := s.client.CallStream(ctx, messages)
	if err != nil {
		outcome := Errorf("model call failed", err)
		return "", &outcome
	}

	var b strings.Builder
	for fragment := range fragments {
		b.WriteString(fragment)
		emit(Content(fragment))
	}

	// A cancelled stream closes early; the runner observes the context and
	// stops scheduling. The partial response is still recorded — no rollback.
	return b.String(), nil
}

func (s *LLMStep) resolvePrompt(in Input) string {
	if s.config.Prompt == "" {
		return in.Prompt
	}
	return strings.ReplaceAll(s.config.Prompt, "{{input}}", in.Prompt)
}

func (s *LLMStep) buildMessages(prompt string) []model.Message {
	history := s.history.Messages()

	messages := make([]model.Message, 0, len(history)+2)
	if s.config.System != "" {
		messages = append(messages, model.NewMessage(model.RoleSystem, s.config.System))
	}
	messages = append(messages, history...)
	messages = append(messages, model.NewMessage(model.RoleUser, prompt))
	return messages
}
