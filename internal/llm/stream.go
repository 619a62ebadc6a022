package llm

import (
	"context"
	"io"
)

// eventStream adapts a producer goroutine to the pull-based Stream interface.
type eventStream struct {
	events chan Event
	cancel context.CancelFunc
	err    error // written by the producer before events is closed
}

// newEventStream runs fn in a goroutine and returns a Stream over the events
// it emits. The error fn returns is surfaced by Recv after all emitted events
// have been drained; a nil error ends the stream with io.EOF.
func newEventStream(parent context.Context, fn func(ctx context.Context, events chan<- Event) error) Stream {
	ctx, cancel := context.WithCancel(parent)
	s := &eventStream{
		events: make(chan Event, 64),
		cancel: cancel,
	}
	go func() {
		s.err = fn(ctx, s.events)
		close(s.events)
	}()
	return s
}

func (s *eventStream) Recv() (Event, error) {
	event, ok := <-s.events
	if !ok {
		if s.err != nil {
			return Event{}, s.err
		}
		return Event{}, io.EOF
	}
	return event, nil
}

// Close cancels the producer and drains any buffered events so the
// goroutine can exit.
func (s *eventStream) Close() error {
	s.cancel()
	for range s.events {
	}
	return nil
}

// emit sends an event unless the context is done. A nil channel drops the
// event, which lets non-streaming callers reuse streaming code paths.
func emit(ctx context.Context, events chan<- Event, event Event) error {
	if events == nil {
		return nil
	}
	select {
	case events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
