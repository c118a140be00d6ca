// Package runtime owns the dispatch path: classification of inbound
// messages, the persisted-then-broadcast ordering contract, and the
// isolation boundary around command handlers.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ops-chat/commands"
	"ops-chat/contract"
	"ops-chat/domain"
	"ops-chat/domain/event"
	"ops-chat/errors"
	"ops-chat/observability"
)

// Dispatcher is the single entry point for one inbound-message event.
//
// Chat messages are appended before they are broadcast, so replay-on-join
// and live delivery stay causally consistent. Command handlers run on their
// own goroutine: a hung orchestration-API call never delays chat traffic
// from other sessions.
type Dispatcher struct {
	log            *slog.Logger
	repository     contract.IMessageRepository
	sessions       contract.IRegistry
	commands       *commands.Registry
	cluster        contract.ICluster
	namespace      string
	commandTimeout time.Duration
	monitor        *observability.Monitor
	handlers       sync.WaitGroup
}

func NewDispatcher(
	log *slog.Logger,
	repository contract.IMessageRepository,
	sessions contract.IRegistry,
	registry *commands.Registry,
	cluster contract.ICluster,
	namespace string,
	commandTimeout time.Duration,
	monitor *observability.Monitor,
) *Dispatcher {
	return &Dispatcher{
		log:            log,
		repository:     repository,
		sessions:       sessions,
		commands:       registry,
		cluster:        cluster,
		namespace:      namespace,
		commandTimeout: commandTimeout,
		monitor:        monitor,
	}
}

// Dispatch classifies one inbound message and routes it.
// Callers invoke it from a single loop per session, which gives the
// per-session FIFO guarantee without extra queueing here.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID domain.SessionID, sender, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errors.ErrEmptyMessage
	}

	if domain.IsCommand(trimmed) {
		d.dispatchCommand(ctx, sessionID, domain.ParseInvocation(trimmed))
		return nil
	}

	stored, err := d.repository.Append(domain.NewChatMessage(sender, text))
	if err != nil {
		// Everything broadcast as chat must also be in the log,
		// so a failed append drops the event entirely.
		d.log.Error("Message lost, append failed", "sender", sender, "error", err)
		return fmt.Errorf("persisting message: %w", err)
	}
	d.monitor.MessageStored()

	d.sessions.Broadcast(ctx, event.FromMessage(stored))
	d.monitor.Broadcasted()
	return nil
}

// Replay sends the recent history window to one newly joined session.
func (d *Dispatcher) Replay(ctx context.Context, sessionID domain.SessionID, limit int) error {
	messages, err := d.repository.Recent(limit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	for _, message := range messages {
		d.sessions.SendTo(ctx, sessionID, event.FromMessage(message))
	}
	return nil
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, sessionID domain.SessionID, inv domain.Invocation) {
	d.monitor.CommandInvoked()

	handler, ok := d.commands.Resolve(inv.Name)
	if !ok {
		d.monitor.UnknownCommand()
		d.reply(ctx, sessionID, fmt.Sprintf("Unknown command: %s", inv.Name))
		return
	}

	d.handlers.Add(1)
	go d.invoke(ctx, sessionID, handler, inv)
}

// invoke runs one handler under the dispatcher's isolation contract:
// bounded execution time, panic containment, failures reported to the
// requester only.
func (d *Dispatcher) invoke(ctx context.Context, sessionID domain.SessionID, handler commands.Handler, inv domain.Invocation) {
	defer d.handlers.Done()
	defer func() {
		if r := recover(); r != nil {
			d.monitor.HandlerFailed()
			d.log.Error("Command handler panicked", "command", inv.Name, "panic", r)
			d.reply(ctx, sessionID, fmt.Sprintf("Internal error while running %s.", inv.Name))
		}
	}()

	execCtx, cancel := context.WithTimeout(ctx, d.commandTimeout)
	defer cancel()

	err := handler.Execute(execCtx, inv, commands.Context{
		Log:       d.log,
		Cluster:   d.cluster,
		Namespace: d.namespace,
		Reply: func(ctx context.Context, text string) {
			d.reply(ctx, sessionID, text)
		},
		Broadcast: func(ctx context.Context, text string) {
			d.sessions.Broadcast(ctx, event.FromMessage(domain.NewSystemReply(text)))
		},
		Descriptors: d.commands.Descriptors,
	})
	if err != nil {
		// The handler already answered the requester; this is for diagnosis.
		d.monitor.HandlerFailed()
		d.log.Error("Command failed", "command", inv.Name, "args", inv.Args, "error", err)
	}
}

func (d *Dispatcher) reply(ctx context.Context, sessionID domain.SessionID, text string) {
	d.sessions.SendTo(ctx, sessionID, event.FromMessage(domain.NewSystemReply(text)))
}

// Drain waits for in-flight handler invocations; called on shutdown.
func (d *Dispatcher) Drain() {
	d.handlers.Wait()
}
