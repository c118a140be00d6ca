// Package domain contains core concepts of the ops chat channel.
// This file defines Message entities and their classification.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind separates persisted chat traffic from transient bot replies.
type Kind string

const (
	KindChat   Kind = "chat"
	KindSystem Kind = "system"
)

// BotSender identifies replies emitted by the command layer.
const BotSender = "OpsBot"

// Message represents one chat-log entry.
// Only KindChat messages are ever persisted; KindSystem messages exist
// solely on a session's receive stream.
type Message struct {
	ID        uuid.UUID
	Sender    string
	Content   string
	Kind      Kind
	CreatedAt time.Time
}

// NewChatMessage builds an unpersisted chat message. The repository assigns
// the final timestamp at append time.
func NewChatMessage(sender, content string) Message {
	return Message{
		ID:      uuid.New(),
		Sender:  sender,
		Content: content,
		Kind:    KindChat,
	}
}

// NewSystemReply builds a transient bot reply addressed to a single session.
func NewSystemReply(content string) Message {
	return Message{
		ID:        uuid.New(),
		Sender:    BotSender,
		Content:   content,
		Kind:      KindSystem,
		CreatedAt: time.Now().UTC(),
	}
}
