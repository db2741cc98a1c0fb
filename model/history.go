package model

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// History holds the ordered conversation transcript accumulated across the
// LLM steps of one run. Safe for concurrent use; the per-run single-writer
// rule applies to RunState, not to transcript readers such as hooks.
type History struct {
	id       string
	messages []Message
	mu       sync.RWMutex
}

// NewHistory creates an empty History with a unique UUIDv7 identifier.
func NewHistory() *History {
	return &History{
		id: uuid.Must(uuid.NewV7()).String(),
	}
}

// ID returns the unique transcript identifier.
func (h *History) ID() string {
	return h.id
}

// Add appends a message to the transcript.
func (h *History) Add(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

// Messages returns a defensive copy of the transcript.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.messages)
}

// Clear resets the transcript.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}
