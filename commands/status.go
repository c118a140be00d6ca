package commands

import (
	"context"
	"fmt"

	"ops-chat/domain"
)

type StatusCommand struct{}

func (StatusCommand) Name() string { return "/status" }

func (StatusCommand) Description() string {
	return "Fetches the live cluster pod metrics."
}

// Execute answers with the pod counts of the configured namespace.
// The underlying API error is never surfaced verbatim to the requester.
func (StatusCommand) Execute(ctx context.Context, _ domain.Invocation, cctx Context) error {
	total, running, err := cctx.Cluster.PodStats(ctx, cctx.Namespace)
	if err != nil {
		cctx.Reply(ctx, "API error: could not fetch cluster status.")
		return fmt.Errorf("listing pods in %s: %w", cctx.Namespace, err)
	}
	cctx.Reply(ctx, fmt.Sprintf("Cluster status: %d pods deployed (%d running).", total, running))
	return nil
}
