package workers

import (
	"context"
	"time"

	"ops-chat/observability"
)

// MonitoringWorker adapts the stats refresh loop to the supervised
// worker shape so a panic in the sampler restarts cleanly.
type MonitoringWorker struct {
	monitor  *observability.Monitor
	interval time.Duration
}

func NewMonitoringWorker(monitor *observability.Monitor, interval time.Duration) *MonitoringWorker {
	return &MonitoringWorker{monitor: monitor, interval: interval}
}

func (w *MonitoringWorker) Run(ctx context.Context) error {
	return w.monitor.Listen(ctx, w.interval)
}
