package ws

import (
	"time"

	"ops-chat/domain"
	"ops-chat/domain/event"

	"github.com/samber/lo"
)

// Frame types on the wire. Inbound traffic is send_message only; the
// server answers with one load_history frame on connect and
// receive_message frames afterwards.
const (
	FrameSendMessage    = "send_message"
	FrameLoadHistory    = "load_history"
	FrameReceiveMessage = "receive_message"
)

// InboundFrame is the only frame a session may send.
// Shape violations are rejected at the boundary before they reach the
// dispatch path.
type InboundFrame struct {
	Type   string `json:"type" validate:"required,eq=send_message"`
	Sender string `json:"sender" validate:"required,max=64"`
	Text   string `json:"text" validate:"required,max=4096"`
}

// WireMessage is one delivered message as a session sees it.
type WireMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
}

type ReceiveFrame struct {
	Type    string      `json:"type"`
	Message WireMessage `json:"message"`
}

type HistoryFrame struct {
	Type     string        `json:"type"`
	Messages []WireMessage `json:"messages"`
}

func toWireMessage(e event.DomainEvent) WireMessage {
	switch ev := e.(type) {
	case event.ChatBroadcast:
		return WireMessage{
			Sender:    ev.Sender,
			Text:      ev.Content,
			Kind:      string(domain.KindChat),
			Timestamp: ev.At.UnixMilli(),
		}
	case event.SystemReply:
		return WireMessage{
			Sender:    domain.BotSender,
			Text:      ev.Content,
			Kind:      string(domain.KindSystem),
			Timestamp: ev.At.UnixMilli(),
		}
	default:
		return WireMessage{Kind: string(e.MessageKind()), Timestamp: time.Now().UTC().UnixMilli()}
	}
}

func newReceiveFrame(e event.DomainEvent) ReceiveFrame {
	return ReceiveFrame{Type: FrameReceiveMessage, Message: toWireMessage(e)}
}

func newHistoryFrame(events []event.DomainEvent) HistoryFrame {
	return HistoryFrame{
		Type:     FrameLoadHistory,
		Messages: lo.Map(events, func(e event.DomainEvent, _ int) WireMessage { return toWireMessage(e) }),
	}
}
