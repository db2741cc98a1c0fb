package runner

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/flow/snapshot"
)

// Config holds runner initialization parameters.
type Config struct {
	MaxSteps   int             `json:"max_steps,omitempty"`   // Default step budget for graphs that set none.
	BufferSize int             `json:"buffer_size,omitempty"` // Event stream buffer per run.
	Workspace  string          `json:"workspace,omitempty"`   // Directory file-capability tools write into.
	Snapshot   snapshot.Config `json:"snapshot"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSteps:   defaultMaxSteps,
		BufferSize: defaultBufferSize,
		Snapshot:   snapshot.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.MaxSteps > 0 {
		c.MaxSteps = source.MaxSteps
	}
	if source.BufferSize > 0 {
		c.BufferSize = source.BufferSize
	}
	if source.Workspace != "" {
		c.Workspace = source.Workspace
	}
	c.Snapshot.Merge(&source.Snapshot)
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
