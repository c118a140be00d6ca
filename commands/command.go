//go:generate go run go.uber.org/mock/mockgen -source=command.go -destination=../mocks/mock_command.go -package=mocks
// Package commands holds the ChatOps layer: the handler contract, the
// registry resolving command names, and the built-in handlers.
package commands

import (
	"context"
	"log/slog"

	"ops-chat/contract"
	"ops-chat/domain"
)

// Descriptor is the read-only view of one registered handler,
// surfaced by /help.
type Descriptor struct {
	Name        string
	Description string
}

// Handler is the unit of logic bound to one command name.
//
// A handler owns its own replies, including its error messages: Execute
// returns an error for diagnosis only, after the requester has already been
// answered. Handlers are stateless between invocations.
type Handler interface {
	Name() string
	Description() string
	Execute(ctx context.Context, inv domain.Invocation, cctx Context) error
}

// Context carries the capabilities a handler may use for one invocation.
type Context struct {
	Log       *slog.Logger
	Cluster   contract.ICluster
	Namespace string

	// Reply sends a system message to the requesting session only.
	Reply func(ctx context.Context, text string)
	// Broadcast sends a system message to every connected session.
	// Rarely needed; most handlers answer the requester alone.
	Broadcast func(ctx context.Context, text string)
	// Descriptors lists every registered handler in registration order.
	Descriptors func() []Descriptor
}
