// Package ws is the websocket gateway: one upgraded connection per
// session, a single read loop feeding the dispatcher and a write loop
// draining the session's sink.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ops-chat/contract"
	"ops-chat/domain"
	"ops-chat/domain/event"
	"ops-chat/errors"
	"ops-chat/observability"
	"ops-chat/sink"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Dispatcher is the inbound side the gateway needs: routing one message
// and replaying history into a freshly subscribed session.
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID domain.SessionID, sender, text string) error
	Replay(ctx context.Context, sessionID domain.SessionID, limit int) error
}

type Server struct {
	log          *slog.Logger
	dispatcher   Dispatcher
	sessions     contract.IRegistry
	monitor      *observability.Monitor
	validate     *validator.Validate
	upgrader     websocket.Upgrader
	historyLimit int
	sinkBuffer   int
	server       *http.Server
}

func NewServer(
	log *slog.Logger,
	dispatcher Dispatcher,
	sessions contract.IRegistry,
	monitor *observability.Monitor,
	addr string,
	historyLimit int,
	sinkBuffer int,
) *Server {
	// The sink must hold a full replay before the write loop starts.
	if sinkBuffer < historyLimit {
		sinkBuffer = historyLimit
	}
	s := &Server{
		log:        log,
		dispatcher: dispatcher,
		sessions:   sessions,
		monitor:    monitor,
		validate:   validator.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		historyLimit: historyLimit,
		sinkBuffer:   sinkBuffer,
	}
	s.server = &http.Server{Addr: addr, Handler: s.Handler()}
	return s
}

// Handler exposes the route table; it is also the test entry point.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	return mux
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info("Chat gateway listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("chat gateway: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sessionID := domain.SessionID(uuid.NewString())
	sessionSink := sink.NewSessionSink(s.sinkBuffer, s.monitor.DeliveryDropped)
	s.sessions.Subscribe(sessionID, sessionSink)
	s.monitor.SessionJoined()
	s.log.Info("Session connected", "session", sessionID, "remote", r.RemoteAddr)

	defer func() {
		s.sessions.Unsubscribe(sessionID)
		s.monitor.SessionLeft()
		_ = conn.Close()
		s.log.Info("Session disconnected", "session", sessionID)
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Replay queues into the sink before the write loop runs, so the
	// backlog can go out as one history frame. A failed replay still
	// leaves a usable live session.
	if err := s.dispatcher.Replay(ctx, sessionID, s.historyLimit); err != nil {
		s.log.Warn("History replay failed", "session", sessionID, "error", err)
	}
	if err := s.sendHistory(conn, sessionSink); err != nil {
		s.log.Warn("History delivery failed", "session", sessionID, "error", err)
		return
	}

	go s.writeLoop(ctx, cancel, conn, sessionSink, sessionID)
	s.readLoop(ctx, conn, sessionID)
}

// sendHistory drains whatever replay buffered and ships it as a single
// frame.
func (s *Server) sendHistory(conn *websocket.Conn, sessionSink *sink.SessionSink) error {
	var backlog []event.DomainEvent
	for {
		select {
		case e := <-sessionSink.Events:
			backlog = append(backlog, e)
			continue
		default:
		}
		break
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(newHistoryFrame(backlog))
}

// readLoop is the session's single inbound lane; it gives the
// per-session ordering guarantee for free.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sessionID domain.SessionID) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn("Read failed", "session", sessionID, "error", err)
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			s.log.Warn("Malformed frame dropped", "session", sessionID, "error", err)
			continue
		}
		if err := s.validate.Struct(frame); err != nil {
			s.log.Warn("Invalid frame dropped", "session", sessionID, "error", err)
			continue
		}

		if err := s.dispatcher.Dispatch(ctx, sessionID, frame.Sender, frame.Text); err != nil {
			if err == errors.ErrEmptyMessage {
				s.log.Debug("Empty message ignored", "session", sessionID)
				continue
			}
			s.log.Error("Dispatch failed", "session", sessionID, "error", err)
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sessionSink *sink.SessionSink, sessionID domain.SessionID) {
	// A dead write side must also terminate the read loop.
	defer cancel()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.log.Debug("Ping failed", "session", sessionID, "error", err)
				return
			}
		case e := <-sessionSink.Events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(newReceiveFrame(e)); err != nil {
				s.log.Debug("Write failed", "session", sessionID, "error", err)
				return
			}
		}
	}
}
