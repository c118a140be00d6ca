package event

import (
	"time"

	"ops-chat/domain"

	"github.com/google/uuid"
)

// DomainEvent is anything deliverable to a session's receive stream.
type DomainEvent interface {
	MessageKind() domain.Kind
}

// ChatBroadcast carries a chat message that has already been persisted.
// It is fanned out to every connected session.
type ChatBroadcast struct {
	ID      uuid.UUID
	Sender  string
	Content string
	At      time.Time
}

func (c ChatBroadcast) MessageKind() domain.Kind {
	return domain.KindChat
}

// SystemReply carries a bot reply addressed to exactly one session.
// It is never persisted.
type SystemReply struct {
	ID      uuid.UUID
	Content string
	At      time.Time
}

func (s SystemReply) MessageKind() domain.Kind {
	return domain.KindSystem
}

// FromMessage converts a domain message into its deliverable event form.
func FromMessage(m domain.Message) DomainEvent {
	if m.Kind == domain.KindSystem {
		return SystemReply{ID: m.ID, Content: m.Content, At: m.CreatedAt}
	}
	return ChatBroadcast{ID: m.ID, Sender: m.Sender, Content: m.Content, At: m.CreatedAt}
}
