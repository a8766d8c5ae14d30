package llm

import (
	"context"
)

// Provider is the provider-neutral interface for model backends.
// Implementations handle vendor-specific wire details internally.
type Provider interface {
	// Generate sends a request and returns a complete response.
	// This is for non-streaming use cases.
	Generate(ctx context.Context, req *Request) (*GenerateResult, error)

	// Stream sends a request and returns a stream of events.
	// The caller should read from the returned Stream until it's done or an error occurs.
	Stream(ctx context.Context, req *Request) (Stream, error)
}

// Stream represents a streaming response from a model.
type Stream interface {
	// Next advances to the next event in the stream.
	// Returns false when the stream is complete or an error occurs.
	Next() bool

	// Event returns the current event.
	// Should only be called after Next() returns true.
	Event() *Event

	// Err returns any error that occurred during streaming.
	Err() error

	// Close closes the stream and releases resources.
	Close() error
}

// EventStream is a channel-fed Stream shared by the provider adapters.
// A producer goroutine pumps vendor events in through Send/Fail/Done while
// the consumer iterates with Next. Close cancels the producer's context so
// an abandoned stream does not leak its goroutine.
type EventStream struct {
	ch     chan Event
	errc   chan error
	cancel context.CancelFunc
	cur    *Event
	err    error
}

// NewEventStream creates a stream. The producer derives a cancellable
// context and passes its cancel func here; Close invokes it.
func NewEventStream(cancel context.CancelFunc) *EventStream {
	return &EventStream{
		ch:     make(chan Event, 16),
		errc:   make(chan error, 1),
		cancel: cancel,
	}
}

// Send delivers an event to the consumer. Returns false when the consumer
// has gone away, in which case the producer should stop.
func (s *EventStream) Send(ctx context.Context, ev Event) bool {
	select {
	case s.ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Fail records a terminal error and ends the stream. Producer side.
func (s *EventStream) Fail(err error) {
	s.errc <- err
	close(s.ch)
}

// Done ends the stream successfully. Producer side.
func (s *EventStream) Done() {
	close(s.ch)
}

// Next implements Stream.Next.
func (s *EventStream) Next() bool {
	ev, ok := <-s.ch
	if !ok {
		select {
		case err := <-s.errc:
			s.err = err
		default:
		}
		return false
	}
	s.cur = &ev
	return true
}

// Event implements Stream.Event.
func (s *EventStream) Event() *Event {
	return s.cur
}

// Err implements Stream.Err.
func (s *EventStream) Err() error {
	return s.err
}

// Close implements Stream.Close.
func (s *EventStream) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Ensure EventStream implements Stream
var _ Stream = (*EventStream)(nil)
