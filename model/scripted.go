package model

import (
	"context"
	"strings"
	"sync"
)

// Scripted is a Client that replays canned responses in order. It backs tests
// and the demo CLI: each Call or CallStream consumes the next response, and
// CallStream yields it word by word to exercise streaming consumers.
//
// When the script is exhausted, calls return ErrScriptExhausted.
type Scripted struct {
	responses []string
	calls     [][]Message
	next      int
	mu        sync.Mutex
}

// NewScripted creates a Scripted client that replays the given responses.
func NewScripted(responses ...string) *Scripted {
	return &Scripted{responses: responses}
}

// Calls returns the message slices received so far, in call order.
func (s *Scripted) Calls() [][]Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([][]Message, len(s.calls))
	copy(calls, s.calls)
	return calls
}

func (s *Scripted) take(messages []Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, messages)
	if s.next >= len(s.responses) {
		return "", ErrScriptExhausted
	}

	response := s.responses[s.next]
	s.next++
	return response, nil
}

func (s *Scripted) Call(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.take(messages)
}

func (s *Scripted) CallStream(ctx context.Context, messages []Message) (<-chan string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response, err := s.take(messages)
	if err != nil {
		return nil, err
	}

	fragments := make(chan string)
	go func() {
		defer close(fragments)
		words := strings.SplitAfter(response, " ")
		for _, word := range words {
			select {
			case fragments <- word:
			case <-ctx.Done():
				return
			}
		}
	}()

	return fragments, nil
}
