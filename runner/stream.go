package runner

import (
	"context"
	"sync/atomic"

	"github.com/tailored-agentic-units/flow/core/event"
)

// stream is the buffered, cancellation-aware channel carrying one run's
// events to the caller. Send blocks when the buffer is full; a cancelled run
// context or consumer context unblocks it.
type stream struct {
	channel chan event.Event
	ctx     context.Context
	closed  atomic.Int32
}

func newStream(ctx context.Context, bufferSize int) *stream {
	return &stream{
		channel: make(chan event.Event, bufferSize),
		ctx:     ctx,
	}
}

func (s *stream) Send(ctx context.Context, ev event.Event) error {
	select {
	case s.channel <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// TrySend delivers without blocking, reporting whether the event was queued.
func (s *stream) TrySend(ev event.Event) bool {
	select {
	case s.channel <- ev:
		return true
	default:
		return false
	}
}

// Events exposes the receive side. The channel closes when the run finishes.
func (s *stream) Events() <-chan event.Event {
	return s.channel
}

func (s *stream) Close() {
	if s.closed.CompareAndSwap(0, 1) {
		close(s.channel)
	}
}
