package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Value-log rewrites below this ratio are not worth the IO.
const gcDiscardRatio = 0.5

// GarbageCollectionWorker reclaims badger value-log space on a fixed
// cadence. Badger never runs this on its own; without it the chat log's
// value files only ever grow.
type GarbageCollectionWorker struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewGarbageCollectionWorker(log *slog.Logger, db *badger.DB, interval time.Duration) *GarbageCollectionWorker {
	return &GarbageCollectionWorker{log: log, db: db, interval: interval}
}

func (w *GarbageCollectionWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping value-log garbage collection")
			return nil
		case <-ticker.C:
			// One successful call may free more space; loop until badger
			// reports nothing left to rewrite.
			for {
				err := w.db.RunValueLogGC(gcDiscardRatio)
				if err == badger.ErrNoRewrite {
					break
				}
				if err != nil {
					w.log.Debug("Value-log garbage collection skipped", "error", err)
					break
				}
				w.log.Debug("Value-log file reclaimed")
			}
		}
	}
}
