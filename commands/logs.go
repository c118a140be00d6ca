package commands

import (
	"context"
	"fmt"

	"ops-chat/domain"
)

// tailLines bounds how much output one /logs reply may carry,
// so a chatty pod cannot flood the requester's stream.
const tailLines = 20

type LogsCommand struct{}

func (LogsCommand) Name() string { return "/logs" }

func (LogsCommand) Description() string {
	return "Fetches the last 20 lines of logs for a specific pod. Usage: /logs <pod-name>"
}

// Execute answers with the log tail of the named pod.
// A missing pod name is answered with usage text and never reaches the API.
func (LogsCommand) Execute(ctx context.Context, inv domain.Invocation, cctx Context) error {
	if len(inv.Args) == 0 {
		cctx.Reply(ctx, "Please provide a pod name. Usage: /logs <pod-name>")
		cctx.Log.Debug("Logs command invoked without a pod name")
		return nil
	}

	pod := inv.Args[0]
	logs, err := cctx.Cluster.TailLogs(ctx, cctx.Namespace, pod, tailLines)
	if err != nil {
		cctx.Reply(ctx, fmt.Sprintf("API error: could not fetch logs for %s. Are you sure that pod exists?", pod))
		return fmt.Errorf("reading logs of pod %s: %w", pod, err)
	}
	if logs == "" {
		logs = "No logs found for this pod."
	}
	cctx.Reply(ctx, fmt.Sprintf("Logs for %s:\n%s", pod, logs))
	return nil
}
