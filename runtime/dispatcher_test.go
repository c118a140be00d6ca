package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"ops-chat/commands"
	"ops-chat/domain"
	"ops-chat/domain/event"
	"ops-chat/errors"
	"ops-chat/observability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memoryRepository keeps the log in a slice; failNext simulates a
// persistence outage for one append.
type memoryRepository struct {
	mu       sync.Mutex
	messages []domain.Message
	failNext bool
}

func (r *memoryRepository) Append(message domain.Message) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return domain.Message{}, fmt.Errorf("disk on fire")
	}
	message.CreatedAt = time.Now().UTC()
	r.messages = append(r.messages, message)
	return message, nil
}

func (r *memoryRepository) Recent(limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := 0
	if limit > 0 && len(r.messages) > limit {
		start = len(r.messages) - limit
	}
	return append([]domain.Message(nil), r.messages[start:]...), nil
}

func (r *memoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type stubCluster struct{}

func (stubCluster) PodStats(context.Context, string) (int, int, error) { return 0, 0, nil }
func (stubCluster) TailLogs(context.Context, string, string, int64) (string, error) {
	return "", nil
}

// blockingHandler holds its invocation open until released, to prove
// command execution never stalls the chat path.
type blockingHandler struct {
	started chan struct{}
	release chan struct{}
}

func (h *blockingHandler) Name() string        { return "/slow" }
func (h *blockingHandler) Description() string { return "Blocks until released." }
func (h *blockingHandler) Execute(ctx context.Context, _ domain.Invocation, cctx commands.Context) error {
	close(h.started)
	select {
	case <-h.release:
	case <-ctx.Done():
	}
	cctx.Reply(ctx, "done")
	return nil
}

type panickyHandler struct{}

func (panickyHandler) Name() string        { return "/boom" }
func (panickyHandler) Description() string { return "Panics on purpose." }
func (panickyHandler) Execute(context.Context, domain.Invocation, commands.Context) error {
	panic("unexpected nil")
}

func newTestDispatcher(t *testing.T, repository *memoryRepository, extra ...commands.Handler) (*Dispatcher, *Registry) {
	t.Helper()
	log := slog.Default()
	sessions := NewRegistry(log)
	registry, err := commands.NewRegistry(append(commands.Builtin(), extra...)...)
	require.NoError(t, err)
	dispatcher := NewDispatcher(log, repository, sessions, registry, stubCluster{},
		"default", 5*time.Second, observability.NewMonitor(log))
	return dispatcher, sessions
}

func join(sessions *Registry) (domain.SessionID, *recordingSink) {
	id := domain.SessionID(uuid.NewString())
	sink := &recordingSink{}
	sessions.Subscribe(id, sink)
	return id, sink
}

func TestDispatch_Chat_Is_Appended_Then_Broadcast(t *testing.T) {
	req := require.New(t)
	repository := &memoryRepository{}
	dispatcher, sessions := newTestDispatcher(t, repository)
	alice, aliceSink := join(sessions)
	_, bobSink := join(sessions)

	// When Alice sends a chat message
	err := dispatcher.Dispatch(context.Background(), alice, "Alice", "ship it")
	req.NoError(err)

	// Then it is persisted once and every session received the stored form
	req.Equal(1, repository.Len())
	req.Len(aliceSink.Events(), 1)
	req.Len(bobSink.Events(), 1)
	broadcast, ok := aliceSink.Events()[0].(event.ChatBroadcast)
	req.True(ok)
	req.Equal("Alice", broadcast.Sender)
	req.Equal("ship it", broadcast.Content)
	req.False(broadcast.At.IsZero())
}

func TestDispatch_Empty_Message_Is_Rejected(t *testing.T) {
	req := require.New(t)
	repository := &memoryRepository{}
	dispatcher, sessions := newTestDispatcher(t, repository)
	alice, aliceSink := join(sessions)

	err := dispatcher.Dispatch(context.Background(), alice, "Alice", "   \t ")

	req.ErrorIs(err, errors.ErrEmptyMessage)
	req.Zero(repository.Len())
	req.Empty(aliceSink.Events())
}

func TestDispatch_Append_Failure_Drops_Broadcast(t *testing.T) {
	req := require.New(t)
	repository := &memoryRepository{failNext: true}
	dispatcher, sessions := newTestDispatcher(t, repository)
	alice, aliceSink := join(sessions)
	_, bobSink := join(sessions)

	// When persistence fails
	err := dispatcher.Dispatch(context.Background(), alice, "Alice", "lost forever")

	// Then nobody sees the message: broadcast implies stored
	req.Error(err)
	req.Empty(aliceSink.Events())
	req.Empty(bobSink.Events())
}

func TestDispatch_Command_Never_Touches_History(t *testing.T) {
	req := require.New(t)
	repository := &memoryRepository{}
	dispatcher, sessions := newTestDispatcher(t, repository)
	alice, _ := join(sessions)

	req.NoError(dispatcher.Dispatch(context.Background(), alice, "Alice", "/help"))
	req.NoError(dispatcher.Dispatch(context.Background(), alice, "Alice", "/frobnicate"))
	dispatcher.Drain()

	req.Zero(repository.Len())
	recent, err := repository.Recent(50)
	req.NoError(err)
	req.Empty(recent)
}

func TestDispatch_Unknown_Command_Single_Reply_No_Broadcast(t *testing.T) {
	req := require.New(t)
	dispatcher, sessions := newTestDispatcher(t, &memoryRepository{})
	alice, aliceSink := join(sessions)
	_, bobSink := join(sessions)

	err := dispatcher.Dispatch(context.Background(), alice, "Alice", "/frobnicate")
	req.NoError(err)
	dispatcher.Drain()

	// Then exactly one system reply for the requester, nothing for others
	req.Len(aliceSink.Events(), 1)
	reply, ok := aliceSink.Events()[0].(event.SystemReply)
	req.True(ok)
	req.Equal("Unknown command: /frobnicate", reply.Content)
	req.Empty(bobSink.Events())
}

func TestDispatch_Command_Reply_Is_Single_Target(t *testing.T) {
	req := require.New(t)
	dispatcher, sessions := newTestDispatcher(t, &memoryRepository{})
	alice, aliceSink := join(sessions)
	_, bobSink := join(sessions)

	req.NoError(dispatcher.Dispatch(context.Background(), alice, "Alice", "/clear"))
	dispatcher.Drain()

	req.Len(aliceSink.Events(), 1)
	req.Empty(bobSink.Events())
}

func TestDispatch_Handler_Panic_Is_Contained(t *testing.T) {
	req := require.New(t)
	dispatcher, sessions := newTestDispatcher(t, &memoryRepository{}, panickyHandler{})
	alice, aliceSink := join(sessions)
	_, bobSink := join(sessions)

	// When a handler panics
	req.NoError(dispatcher.Dispatch(context.Background(), alice, "Alice", "/boom"))
	dispatcher.Drain()

	// Then the requester gets an error reply and other sessions are untouched
	req.Len(aliceSink.Events(), 1)
	reply, ok := aliceSink.Events()[0].(event.SystemReply)
	req.True(ok)
	req.Contains(reply.Content, "/boom")
	req.Empty(bobSink.Events())

	// And the dispatch loop is still alive
	req.NoError(dispatcher.Dispatch(context.Background(), alice, "Alice", "still here"))
	req.Len(bobSink.Events(), 1)
}

func TestDispatch_Slow_Handler_Does_Not_Block_Chat(t *testing.T) {
	req := require.New(t)
	slow := &blockingHandler{started: make(chan struct{}), release: make(chan struct{})}
	dispatcher, sessions := newTestDispatcher(t, &memoryRepository{}, slow)
	alice, _ := join(sessions)
	bob, bobSink := join(sessions)

	// Given a command stuck on a hung upstream call
	req.NoError(dispatcher.Dispatch(context.Background(), alice, "Alice", "/slow"))
	select {
	case <-slow.started:
	case <-time.After(time.Second):
		req.Fail("handler never started")
	}

	// When another session chats meanwhile
	req.NoError(dispatcher.Dispatch(context.Background(), bob, "Bob", "anyone home?"))

	// Then the chat went through before the handler finished
	req.Len(bobSink.Events(), 1)

	close(slow.release)
	dispatcher.Drain()
}

func TestReplay_Sends_History_To_One_Session(t *testing.T) {
	req := require.New(t)
	repository := &memoryRepository{}
	dispatcher, sessions := newTestDispatcher(t, repository)
	alice, _ := join(sessions)

	for i := 0; i < 3; i++ {
		req.NoError(dispatcher.Dispatch(context.Background(), alice, "Alice", fmt.Sprintf("msg %d", i)))
	}

	// When a new session joins
	late, lateSink := join(sessions)
	req.NoError(dispatcher.Replay(context.Background(), late, 50))

	// Then it receives the backlog oldest first, as chat events
	events := lateSink.Events()
	req.Len(events, 3)
	for i, e := range events {
		broadcast, ok := e.(event.ChatBroadcast)
		req.True(ok)
		req.Equal(fmt.Sprintf("msg %d", i), broadcast.Content)
	}
}
