package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ops-chat/contract"
	"ops-chat/domain"
	"ops-chat/domain/event"
)

// Registry tracks every live session and owns the two send primitives.
// Sessions are registered by the transport at connect time and removed
// immediately on disconnect; a send racing a disconnect is dropped silently.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[domain.SessionID]contract.EventSink
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[domain.SessionID]contract.EventSink),
	}
}

// Subscribe registers a session's receive stream.
func (r *Registry) Subscribe(sessionID domain.SessionID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = sink
}

// Unsubscribe removes a session from the registry.
// Events broadcast after this call will no longer reach the session.
func (r *Registry) Unsubscribe(sessionID domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Len reports the number of connected sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SendTo delivers an event to exactly one session.
// An unknown session is a no-op: the requester disconnected mid-dispatch.
func (r *Registry) SendTo(ctx context.Context, sessionID domain.SessionID, e event.DomainEvent) {
	r.mu.RLock()
	sink, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		r.log.Debug(fmt.Sprintf("Session %s gone, dropping reply", sessionID))
		return
	}
	if err := sink.Consume(ctx, e); err != nil {
		r.log.Debug("Reply dropped", "session_id", sessionID, "error", err)
	}
}

// Broadcast delivers an event to every session connected at call time.
// Sessions joining afterwards do not retroactively receive it.
func (r *Registry) Broadcast(ctx context.Context, e event.DomainEvent) {
	r.mu.RLock()
	sinks := make(map[domain.SessionID]contract.EventSink, len(r.sessions))
	for id, sink := range r.sessions {
		sinks[id] = sink
	}
	r.mu.RUnlock()

	for id, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			r.log.Debug("Broadcast delivery dropped", "session_id", id, "error", err)
		}
	}
}
