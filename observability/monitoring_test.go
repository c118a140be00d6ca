package observability

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitor_Counters_Are_Live(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor(slog.Default())

	// Given pipeline activity
	monitor.SessionJoined()
	monitor.SessionJoined()
	monitor.SessionLeft()
	monitor.MessageStored()
	monitor.Broadcasted()
	monitor.CommandInvoked()
	monitor.UnknownCommand()
	monitor.HandlerFailed()
	monitor.DeliveryDropped()

	// Then the snapshot reflects it without a refresh tick
	stats := monitor.GetLatest()
	req.Equal(int64(1), stats.ConnectedSessions)
	req.Equal(uint64(1), stats.MessagesStored)
	req.Equal(uint64(1), stats.Broadcasts)
	req.Equal(uint64(1), stats.CommandsInvoked)
	req.Equal(uint64(1), stats.UnknownCommands)
	req.Equal(uint64(1), stats.HandlerFailures)
	req.Equal(uint64(1), stats.DroppedDeliveries)
}

func TestMonitor_Listen_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor(slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Listen(ctx, 10*time.Millisecond) }()

	// Let at least one refresh happen, then stop
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("Listen should have returned after cancel")
	}

	// And the refreshed snapshot is exposed to the inspector page
	provided := monitor.StatsProvider()
	req.NotEmpty(provided)
	req.Contains(provided, "connected_sessions")
}
