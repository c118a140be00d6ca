//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"ops-chat/domain"
	"ops-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one session's receive stream.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks connected sessions and owns the two send primitives.
type IRegistry interface {
	Subscribe(sessionID domain.SessionID, sink EventSink)
	Unsubscribe(sessionID domain.SessionID)
	SendTo(ctx context.Context, sessionID domain.SessionID, e event.DomainEvent)
	Broadcast(ctx context.Context, e event.DomainEvent)
}

// IMessageRepository is the append-only chat log with bounded replay.
type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	Recent(limit int) ([]domain.Message, error)
}

// ICluster is the read-only orchestration-API surface consumed by handlers.
type ICluster interface {
	PodStats(ctx context.Context, namespace string) (total, running int, err error)
	TailLogs(ctx context.Context, namespace, pod string, lines int64) (string, error)
}

// IDispatcher is the single entry point for one inbound-message event.
type IDispatcher interface {
	Dispatch(ctx context.Context, sessionID domain.SessionID, sender, text string) error
}
