// Package bin runs the recycle bin's scheduled auto-clean.
package bin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmfalke/stash/internal/store"
)

const checkInterval = 1 * time.Hour

// Cleaner periodically removes binned items older than the configured
// retention. Each run delegates to RecycleBinStore.AutoClean, which is
// idempotent, so overlapping manual and scheduled runs are harmless.
type Cleaner struct {
	mu       sync.RWMutex
	bin      *store.RecycleBinStore
	settings *store.SettingsStore
	logger   *slog.Logger

	lastRun     time.Time
	lastRemoved int

	cancel context.CancelFunc
	done   chan struct{}
}

func NewCleaner(bin *store.RecycleBinStore, settings *store.SettingsStore, logger *slog.Logger) *Cleaner {
	return &Cleaner{bin: bin, settings: settings, logger: logger}
}

// Start begins the scheduled cleanup loop. A run fires immediately, then
// once per interval until Stop or context cancellation.
func (c *Cleaner) Start(ctx context.Context) {
	c.mu.Lock()
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	go func() {
		defer close(c.done)

		c.RunOnce(ctx)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.RunOnce(ctx)
			}
		}
	}()
}

// Stop gracefully stops the cleanup loop.
func (c *Cleaner) Stop() {
	c.mu.RLock()
	cancel := c.cancel
	done := c.done
	c.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunOnce performs a single cleanup pass with the configured retention and
// returns how many items were removed.
func (c *Cleaner) RunOnce(ctx context.Context) int {
	retention, err := c.settings.BinRetention(ctx)
	if err != nil {
		c.logger.Error("bin cleaner: read retention", "error", err)
		retention = store.DefaultRetention
	}

	removed, err := c.bin.AutoClean(ctx, retention)
	if err != nil {
		c.logger.Error("bin cleaner: auto clean", "error", err, "removed", removed)
	} else if removed > 0 {
		c.logger.Info("bin cleaner: removed expired items", "removed", removed, "retention", retention)
	}

	c.mu.Lock()
	c.lastRun = time.Now().UTC()
	c.lastRemoved = removed
	c.mu.Unlock()
	return removed
}

// LastRun reports the time of the most recent pass and how many items it
// removed.
func (c *Cleaner) LastRun() (time.Time, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRun, c.lastRemoved
}
