package commands

import (
	"context"

	"ops-chat/domain"
)

// ClearCommand is a placeholder: clearing the shared history is a destructive
// operation that still needs a retention decision.
type ClearCommand struct{}

func (ClearCommand) Name() string { return "/clear" }

func (ClearCommand) Description() string {
	return "Clears the channel history (not implemented)."
}

func (ClearCommand) Execute(ctx context.Context, _ domain.Invocation, cctx Context) error {
	cctx.Reply(ctx, "Clear command not implemented yet.")
	return nil
}
