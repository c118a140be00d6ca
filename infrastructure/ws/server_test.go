package ws

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ops-chat/domain"
	"ops-chat/domain/event"
	"ops-chat/errors"
	"ops-chat/observability"
	"ops-chat/runtime"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// scriptedDispatcher stands in for the real dispatch path: chat text is
// recorded and echoed to every session, history comes from a fixed
// backlog.
type scriptedDispatcher struct {
	sessions *runtime.Registry
	history  []domain.Message

	mu         sync.Mutex
	dispatched []string
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, _ domain.SessionID, sender, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.ErrEmptyMessage
	}
	d.mu.Lock()
	d.dispatched = append(d.dispatched, text)
	d.mu.Unlock()

	d.sessions.Broadcast(ctx, event.ChatBroadcast{Sender: sender, Content: text, At: time.Now().UTC()})
	return nil
}

func (d *scriptedDispatcher) Replay(ctx context.Context, sessionID domain.SessionID, limit int) error {
	for _, message := range d.history {
		d.sessions.SendTo(ctx, sessionID, event.FromMessage(message))
	}
	return nil
}

func (d *scriptedDispatcher) Dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dispatched...)
}

func newTestGateway(t *testing.T, history []domain.Message) (*httptest.Server, *scriptedDispatcher) {
	t.Helper()
	log := slog.Default()
	sessions := runtime.NewRegistry(log)
	dispatcher := &scriptedDispatcher{sessions: sessions, history: history}
	server := NewServer(log, dispatcher, sessions, observability.NewMonitor(log), "127.0.0.1:0", 50, 256)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, dispatcher
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGateway_Sends_History_Frame_On_Connect(t *testing.T) {
	req := require.New(t)
	history := []domain.Message{
		{Sender: "Alice", Content: "first", Kind: domain.KindChat, CreatedAt: time.Now().UTC()},
		{Sender: "Bob", Content: "second", Kind: domain.KindChat, CreatedAt: time.Now().UTC()},
	}
	ts, _ := newTestGateway(t, history)

	conn := dial(t, ts)

	// Then the very first frame is the backlog, oldest first
	var frame HistoryFrame
	req.NoError(conn.ReadJSON(&frame))
	req.Equal(FrameLoadHistory, frame.Type)
	req.Len(frame.Messages, 2)
	req.Equal("first", frame.Messages[0].Text)
	req.Equal("second", frame.Messages[1].Text)
	req.Equal(string(domain.KindChat), frame.Messages[0].Kind)
}

func TestGateway_Empty_History_Still_Sends_Frame(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestGateway(t, nil)

	conn := dial(t, ts)

	var frame HistoryFrame
	req.NoError(conn.ReadJSON(&frame))
	req.Equal(FrameLoadHistory, frame.Type)
	req.Empty(frame.Messages)
}

func TestGateway_Routes_Send_Message_To_Dispatcher(t *testing.T) {
	req := require.New(t)
	ts, dispatcher := newTestGateway(t, nil)
	conn := dial(t, ts)

	var history HistoryFrame
	req.NoError(conn.ReadJSON(&history))

	// When the session sends a chat frame
	req.NoError(conn.WriteJSON(InboundFrame{Type: FrameSendMessage, Sender: "Alice", Text: "hello ops"}))

	// Then the broadcast comes back as a receive frame
	var frame ReceiveFrame
	req.NoError(conn.ReadJSON(&frame))
	req.Equal(FrameReceiveMessage, frame.Type)
	req.Equal("Alice", frame.Message.Sender)
	req.Equal("hello ops", frame.Message.Text)
	req.Equal(string(domain.KindChat), frame.Message.Kind)
	req.NotZero(frame.Message.Timestamp)

	req.Equal([]string{"hello ops"}, dispatcher.Dispatched())
}

func TestGateway_Broadcast_Reaches_Every_Connection(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestGateway(t, nil)

	alice := dial(t, ts)
	bob := dial(t, ts)
	var history HistoryFrame
	req.NoError(alice.ReadJSON(&history))
	req.NoError(bob.ReadJSON(&history))

	req.NoError(alice.WriteJSON(InboundFrame{Type: FrameSendMessage, Sender: "Alice", Text: "to everyone"}))

	var fromAlice, fromBob ReceiveFrame
	req.NoError(alice.ReadJSON(&fromAlice))
	req.NoError(bob.ReadJSON(&fromBob))
	req.Equal("to everyone", fromAlice.Message.Text)
	req.Equal("to everyone", fromBob.Message.Text)
}

func TestGateway_Drops_Invalid_Frames(t *testing.T) {
	req := require.New(t)
	ts, dispatcher := newTestGateway(t, nil)
	conn := dial(t, ts)

	var history HistoryFrame
	req.NoError(conn.ReadJSON(&history))

	// Given a malformed payload and a frame with a missing sender
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json at all")))
	req.NoError(conn.WriteJSON(InboundFrame{Type: FrameSendMessage, Text: "no sender"}))

	// When a valid frame follows
	req.NoError(conn.WriteJSON(InboundFrame{Type: FrameSendMessage, Sender: "Alice", Text: "still alive"}))

	// Then only the valid one was dispatched and the session survived
	var frame ReceiveFrame
	req.NoError(conn.ReadJSON(&frame))
	req.Equal("still alive", frame.Message.Text)
	req.Equal([]string{"still alive"}, dispatcher.Dispatched())
}
