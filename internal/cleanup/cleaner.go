package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Purger deletes diagnostic results dated before a cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Cleaner periodically purges diagnostic results older than the retention.
type Cleaner struct {
	purger    Purger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewCleaner creates a new cleanup worker. A zero retention disables purging.
func NewCleaner(purger Purger, interval, retention time.Duration) *Cleaner {
	if interval <= 0 {
		interval = time.Hour
	}

	return &Cleaner{
		purger:    purger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Cleaner) run(ctx context.Context) {
	if c.retention <= 0 {
		slog.Info("diagnostic retention disabled, cleanup worker not started")
		return
	}
	slog.Info("cleanup worker started", "interval", c.interval, "retention", c.retention)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup runs one purge cycle and returns how many results were removed.
func (c *Cleaner) cleanup(ctx context.Context) int {
	cutoff := c.now().UTC().Add(-c.retention)
	slog.Debug("running cleanup cycle", "cutoff", cutoff)

	removed, err := c.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		slog.Error("failed to purge old diagnostics", "error", err)
		return 0
	}
	if removed > 0 {
		slog.Info("old diagnostics purged", "count", removed, "cutoff", cutoff)
	}
	return removed
}
