package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/flow/steps"
)

// GraphSpec is the declarative graph document the builder compiles. Documents
// are authored as YAML or JSON files, or constructed directly in code.
type GraphSpec struct {
	Name     string     `json:"name" yaml:"name"`
	MaxSteps int        `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	Nodes    []NodeSpec `json:"nodes" yaml:"nodes"`
	Edges    []EdgeSpec `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// NodeSpec declares one node. Exactly one of the kind sections must be set,
// matching Kind.
type NodeSpec struct {
	ID    string `json:"id" yaml:"id"`
	Kind  string `json:"kind" yaml:"kind"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	LLM    *steps.LLMConfig    `json:"llm,omitempty" yaml:"llm,omitempty"`
	Tool   *steps.ToolConfig   `json:"tool,omitempty" yaml:"tool,omitempty"`
	Router *steps.RouterConfig `json:"router,omitempty" yaml:"router,omitempty"`
}

// EdgeSpec declares one transition. When is optional (nil = always); OnError
// marks the edge as the source node's failure fallback, excluded from normal
// advancement.
type EdgeSpec struct {
	From    string         `json:"from" yaml:"from"`
	To      string         `json:"to" yaml:"to"`
	Name    string         `json:"name,omitempty" yaml:"name,omitempty"`
	When    *PredicateSpec `json:"when,omitempty" yaml:"when,omitempty"`
	OnError bool           `json:"on_error,omitempty" yaml:"on_error,omitempty"`
}

// PredicateSpec declares one guard condition. Exactly one field must be set.
type PredicateSpec struct {
	Exists   *StateRefSpec   `json:"exists,omitempty" yaml:"exists,omitempty"`
	Equals   *EqualsSpec     `json:"equals,omitempty" yaml:"equals,omitempty"`
	Contains *ContainsSpec   `json:"contains,omitempty" yaml:"contains,omitempty"`
	Not      *PredicateSpec  `json:"not,omitempty" yaml:"not,omitempty"`
	All      []PredicateSpec `json:"all,omitempty" yaml:"all,omitempty"`
	Any      []PredicateSpec `json:"any,omitempty" yaml:"any,omitempty"`
}

// StateRefSpec names one namespace/key pair.
type StateRefSpec struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Key       string `json:"key" yaml:"key"`
}

// EqualsSpec matches an exact value at a namespace/key.
type EqualsSpec struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Key       string `json:"key" yaml:"key"`
	Value     any    `json:"value" yaml:"value"`
}

// ContainsSpec matches a case-insensitive substring of a text value.
type ContainsSpec struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Key       string `json:"key" yaml:"key"`
	Substring string `json:"substring" yaml:"substring"`
}

// Compile converts a predicate spec into an executable Predicate.
func (p *PredicateSpec) Compile() (Predicate, error) {
	set := 0
	var compiled Predicate
	var err error

	if p.Exists != nil {
		set++
		compiled = KeyExists(p.Exists.Namespace, p.Exists.Key)
	}
	if p.Equals != nil {
		set++
		compiled = KeyEquals(p.Equals.Namespace, p.Equals.Key, p.Equals.Value)
	}
	if p.Contains != nil {
		set++
		compiled = Contains(p.Contains.Namespace, p.Contains.Key, p.Contains.Substring)
	}
	if p.Not != nil {
		set++
		inner, innerErr := p.Not.Compile()
		if innerErr != nil {
			return nil, innerErr
		}
		compiled = Not(inner)
	}
	if len(p.All) > 0 {
		set++
		compiled, err = compileGroup(p.All, And)
		if err != nil {
			return nil, err
		}
	}
	if len(p.Any) > 0 {
		set++
		compiled, err = compileGroup(p.Any, Or)
		if err != nil {
			return nil, err
		}
	}

	if set != 1 {
		return nil, fmt.Errorf("%w: got %d conditions", ErrBadPredicate, set)
	}
	return compiled, nil
}

func compileGroup(specs []PredicateSpec, combine func(...Predicate) Predicate) (Predicate, error) {
	predicates := make([]Predicate, 0, len(specs))
	for i := range specs {
		p, err := specs[i].Compile()
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}
	return combine(predicates...), nil
}

// LoadGraphSpec reads a graph document from a YAML (.yaml/.yml) or JSON file.
func LoadGraphSpec(filename string) (*GraphSpec, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	var spec GraphSpec
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse graph file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse graph file: %w", err)
		}
	}

	return &spec, nil
}
