// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/portal-go/internal/store"
)

const viewTimeout = 5 * time.Second

// ViewCounter increments content view counts. Counting is best effort: a
// failed increment is logged and never surfaces to the reader.
type ViewCounter struct {
	queries  *store.Queries
	logger   *slog.Logger
	skipBots bool
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewViewCounter creates a ViewCounter. With skipBots set, Track ignores
// requests whose user agent identifies a crawler.
func NewViewCounter(queries *store.Queries, logger *slog.Logger, skipBots bool) *ViewCounter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewCounter{queries: queries, logger: logger, skipBots: skipBots, now: time.Now}
}

// Increment adds one view to the item. The increment is a single atomic
// statement so concurrent calls never lose updates.
func (c *ViewCounter) Increment(ctx context.Context, id int64) {
	if err := c.queries.IncrementViewCount(ctx, id); err != nil {
		if store.IsNotFound(err) {
			c.logger.Debug("view for missing content ignored", "id", id)
			return
		}
		c.logger.Warn("failed to increment view count", "id", id, "error", err)
	}
}

// Track counts a public view in the background so the caller never waits
// on it. Only items that pass the publication gate are counted.
func (c *ViewCounter) Track(id int64, userAgent string) {
	if c.skipBots && userAgent != "" && useragent.Parse(userAgent).Bot {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), viewTimeout)
		defer cancel()
		if err := c.queries.IncrementVisibleViewCount(ctx, id, c.now()); err != nil {
			if store.IsNotFound(err) {
				c.logger.Debug("view for hidden or missing content ignored", "id", id)
				return
			}
			c.logger.Warn("failed to increment view count", "id", id, "error", err)
		}
	}()
}

// Wait blocks until every tracked view has been written.
func (c *ViewCounter) Wait() {
	c.wg.Wait()
}
