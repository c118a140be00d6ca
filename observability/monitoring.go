// Package observability aggregates in-process counters for the dispatch
// pipeline. It is not a metrics backend; the numbers feed the debug
// inspector page and shutdown logs.
package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is one snapshot of the pipeline counters and process health.
type Stats struct {
	ConnectedSessions int64   `json:"connected_sessions"`
	MessagesStored    uint64  `json:"messages_stored"`
	Broadcasts        uint64  `json:"broadcasts"`
	CommandsInvoked   uint64  `json:"commands_invoked"`
	UnknownCommands   uint64  `json:"unknown_commands"`
	HandlerFailures   uint64  `json:"handler_failures"`
	DroppedDeliveries uint64  `json:"dropped_deliveries"`
	CPUPercent        float64 `json:"cpu_percent"`
	RAMPercent        float32 `json:"ram_percent"`
	AllocMemMb        uint64  `json:"alloc_mem_mb"`
	NumGC             uint32  `json:"num_gc"`
}

// Monitor is safe for concurrent use; counters are atomic and the snapshot
// is guarded separately.
type Monitor struct {
	log *slog.Logger

	sessions          int64
	messagesStored    uint64
	broadcasts        uint64
	commandsInvoked   uint64
	unknownCommands   uint64
	handlerFailures   uint64
	droppedDeliveries uint64

	mu     sync.RWMutex
	latest Stats
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{log: log}
}

func (m *Monitor) SessionJoined()  { atomic.AddInt64(&m.sessions, 1) }
func (m *Monitor) SessionLeft()    { atomic.AddInt64(&m.sessions, -1) }
func (m *Monitor) MessageStored()  { atomic.AddUint64(&m.messagesStored, 1) }
func (m *Monitor) Broadcasted()    { atomic.AddUint64(&m.broadcasts, 1) }
func (m *Monitor) CommandInvoked() { atomic.AddUint64(&m.commandsInvoked, 1) }
func (m *Monitor) UnknownCommand() { atomic.AddUint64(&m.unknownCommands, 1) }
func (m *Monitor) HandlerFailed()  { atomic.AddUint64(&m.handlerFailures, 1) }
func (m *Monitor) DeliveryDropped() {
	atomic.AddUint64(&m.droppedDeliveries, 1)
}

// Listen refreshes the snapshot on a fixed cadence until the context ends.
// Run it under the supervisor.
func (m *Monitor) Listen(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.log.Warn("Process self-inspection unavailable", "error", err)
		proc = nil
	}

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Stopping monitoring refresh")
			return nil
		case <-ticker.C:
			m.refresh(proc)
		}
	}
}

func (m *Monitor) refresh(proc *process.Process) {
	stats := m.counters()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats.AllocMemMb = mem.Alloc / 1024 / 1024
	stats.NumGC = mem.NumGC

	if proc != nil {
		if cpu, err := proc.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
		if ram, err := proc.MemoryPercent(); err == nil {
			stats.RAMPercent = ram
		}
	}

	m.mu.Lock()
	m.latest = stats
	m.mu.Unlock()
}

func (m *Monitor) counters() Stats {
	return Stats{
		ConnectedSessions: atomic.LoadInt64(&m.sessions),
		MessagesStored:    atomic.LoadUint64(&m.messagesStored),
		Broadcasts:        atomic.LoadUint64(&m.broadcasts),
		CommandsInvoked:   atomic.LoadUint64(&m.commandsInvoked),
		UnknownCommands:   atomic.LoadUint64(&m.unknownCommands),
		HandlerFailures:   atomic.LoadUint64(&m.handlerFailures),
		DroppedDeliveries: atomic.LoadUint64(&m.droppedDeliveries),
	}
}

// GetLatest returns the last refreshed snapshot. Counters are always live;
// the process health fields lag by at most one refresh interval.
func (m *Monitor) GetLatest() Stats {
	m.mu.RLock()
	snapshot := m.latest
	m.mu.RUnlock()

	live := m.counters()
	live.CPUPercent = snapshot.CPUPercent
	live.RAMPercent = snapshot.RAMPercent
	live.AllocMemMb = snapshot.AllocMemMb
	live.NumGC = snapshot.NumGC
	return live
}

// StatsProvider adapts GetLatest for the debug inspector page.
func (m *Monitor) StatsProvider() map[string]any {
	stats := m.GetLatest()
	return map[string]any{
		"connected_sessions": stats.ConnectedSessions,
		"messages_stored":    stats.MessagesStored,
		"broadcasts":         stats.Broadcasts,
		"commands_invoked":   stats.CommandsInvoked,
		"unknown_commands":   stats.UnknownCommands,
		"handler_failures":   stats.HandlerFailures,
		"dropped_deliveries": stats.DroppedDeliveries,
		"cpu_percent":        stats.CPUPercent,
		"ram_percent":        stats.RAMPercent,
		"alloc_mem_mb":       stats.AllocMemMb,
		"num_gc":             stats.NumGC,
	}
}
