package sink

import (
	"context"

	"ops-chat/domain/event"
)

// SessionSink buffers events for one connected session.
// The transport's write loop drains Events and pushes frames on the wire.
type SessionSink struct {
	Events chan event.DomainEvent
	onDrop func()
}

// NewSessionSink creates a sink with a bounded buffer. onDrop is invoked for
// every event lost to backpressure; it may be nil.
func NewSessionSink(bufferSize int, onDrop func()) *SessionSink {
	return &SessionSink{
		Events: make(chan event.DomainEvent, bufferSize),
		onDrop: onDrop,
	}
}

// Consume is called by the registry's send primitives.
// A full buffer means the session is too slow to keep up; the event is
// dropped rather than blocking the dispatch path.
func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if s.onDrop != nil {
			s.onDrop()
		}
		return nil
	}
}
