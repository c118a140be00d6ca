package commands

import (
	"context"
	"fmt"
	"strings"

	"ops-chat/domain"
)

type HelpCommand struct{}

func (HelpCommand) Name() string { return "/help" }

func (HelpCommand) Description() string {
	return "Lists all available OpsBot commands."
}

// Execute enumerates every registered handler in registration order.
func (HelpCommand) Execute(ctx context.Context, _ domain.Invocation, cctx Context) error {
	var b strings.Builder
	b.WriteString("Available OpsBot commands:\n")
	for _, descriptor := range cctx.Descriptors() {
		b.WriteString(fmt.Sprintf("• %s : %s\n", descriptor.Name, descriptor.Description))
	}
	cctx.Reply(ctx, b.String())
	return nil
}
