package cache

import (
	"context"
	"errors"
	"time"

	"github.com/star/solarweather/internal/repository"
)

// Start runs the background maintenance loop: every interval it checks the
// backing store for a replaced simulation, then evicts expired entries.
//
// Blocks until ctx is cancelled.
func (c *DayCache) Start(ctx context.Context) {
	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache maintenance stopped")
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick runs one iteration of the maintenance loop.
func (c *DayCache) tick(ctx context.Context) {
	if c.generationChanged(ctx) {
		c.invalidate()
		return
	}
	c.evictExpired()
}

// generationChanged reports whether the backing store now holds a different
// simulation than the cached one. Shared backends can be reset and
// regenerated by another process.
func (c *DayCache) generationChanged(ctx context.Context) bool {
	current := c.generation.Load()

	s, err := c.next.FetchSummary(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return current != nil
	case err != nil:
		c.logger.Warn("cache generation check failed", "error", err)
		return false
	case current == nil:
		// Nothing cached yet for any generation; adopt the stored one.
		id := s.ID
		c.generation.Store(&id)
		return false
	default:
		return s.ID != *current
	}
}

// invalidate drops every entry and forgets the generation.
func (c *DayCache) invalidate() {
	old := c.generation.Swap(nil)
	c.replaceAll(nil)

	var oldID string
	if old != nil {
		oldID = old.String()
	}
	c.logger.Info("stored simulation changed, cache invalidated", "old_generation", oldID)
}
