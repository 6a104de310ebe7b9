package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// EmitFunc receives hydrated records one at a time as the driver produces
// them. The driver never buffers a category's result set, so a caller can
// persist incrementally and keep partial progress on interruption. A non-nil
// error stops the session; the driver never retries emission.
type EmitFunc func(item Item) error

// errLimitReached unwinds the category loop once the test-mode cap is hit.
var errLimitReached = errors.New("test limit reached")

// Driver orchestrates the per-category pagination: fetch, extract, resolve,
// dedup, emit, terminate. One Driver instance owns one session's dedup state
// and counters; execution is strictly sequential.
type Driver struct {
	cfg     Config
	fetcher Fetcher
	logger  *zap.Logger
	metrics *Metrics

	stats   ScrapeStats
	emitted int

	pause     pauseFunc
	randFloat func() float64
}

// NewDriver builds a Driver for one scrape session. metrics may be nil.
func NewDriver(cfg Config, fetcher Fetcher, logger *zap.Logger, metrics *Metrics) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		cfg:       cfg.withDefaults(),
		fetcher:   fetcher,
		logger:    logger,
		metrics:   metrics,
		pause:     sleepWithContext,
		randFloat: rand.Float64,
	}
}

// Stats returns a copy of the session counters.
func (d *Driver) Stats() ScrapeStats {
	return d.stats
}

// ScrapeAll processes the configured categories strictly in order. With no
// categories configured a single all-lots pass runs. Failures inside one
// category end that category's pagination and the session moves on; only
// cancellation and emission errors abort the session.
func (d *Driver) ScrapeAll(ctx context.Context, emit EmitFunc) error {
	categories := d.cfg.Categories
	if len(categories) == 0 {
		categories = []string{""}
	}

	for i, category := range categories {
		if err := ctx.Err(); err != nil {
			return err
		}

		d.logger.Info("starting category",
			zap.String("category", categoryLabel(category)),
			zap.String("zip", d.cfg.ZipCode),
			zap.Int("radius_miles", d.cfg.RadiusMiles),
		)

		if err := d.scrapeCategory(ctx, category, emit); err != nil {
			if errors.Is(err, errLimitReached) {
				d.logger.Info("test mode limit reached", zap.Int("limit", d.cfg.TestLimit))
				return nil
			}
			return err
		}

		if i < len(categories)-1 {
			d.delay(ctx)
		}
	}
	return nil
}

// scrapeCategory walks one category's pages until a termination condition
// holds: fetch failure, no recognizable state, zero new lots, a trailing
// partial page, or the session item cap.
func (d *Driver) scrapeCategory(ctx context.Context, category string, emit EmitFunc) error {
	seen := make(map[string]struct{})

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		pageURL := SearchURL(d.cfg, category, page)
		html, err := d.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.stats.Errors++
			d.metrics.IncError("fetch")
			d.logger.Warn("failed to fetch page", zap.Int("page", page), zap.Error(err))
			return nil
		}

		cache, err := ExtractState(html)
		if err != nil {
			if errors.Is(err, ErrStateMalformed) {
				d.stats.Errors++
				d.metrics.IncError("extract")
			}
			d.logger.Warn("no usable state on page", zap.Int("page", page), zap.Error(err))
			return nil
		}

		lots, skipped := ResolveLots(cache)
		if skipped > 0 {
			d.stats.Errors += skipped
			d.metrics.IncError("identifier")
			d.logger.Warn("lots without identifier skipped", zap.Int("count", skipped))
		}
		d.stats.PagesScraped++
		d.metrics.IncPages()

		var fresh []Lot
		for _, lot := range lots {
			if _, dup := seen[lot.ItemID]; dup {
				continue
			}
			seen[lot.ItemID] = struct{}{}
			fresh = append(fresh, lot)
		}

		if len(fresh) == 0 {
			d.logger.Info("no new items on page", zap.Int("page", page))
			return nil
		}
		d.logger.Info("page processed",
			zap.Int("page", page),
			zap.Int("new_items", len(fresh)),
			zap.Int("raw_lots", len(lots)),
		)

		for _, lot := range fresh {
			if d.cfg.TestMode && d.emitted >= d.cfg.TestLimit {
				return errLimitReached
			}
			item := Item{ID: lot.ItemID, Category: category, Payload: lot.Fields}
			if err := emit(item); err != nil {
				return fmt.Errorf("emit item %s: %w", lot.ItemID, err)
			}
			d.emitted++
			d.stats.ItemsFound++
			d.metrics.IncItems()
		}

		if len(lots) < d.cfg.PartialPageThreshold {
			d.logger.Info("partial page received, likely end of results", zap.Int("page", page))
			return nil
		}

		d.delay(ctx)
	}
}

// delay sleeps for a uniformly random duration in [DelayMin, DelayMax],
// honoring cancellation.
func (d *Driver) delay(ctx context.Context) {
	span := d.cfg.DelayMax - d.cfg.DelayMin
	if span < 0 {
		span = 0
	}
	wait := d.cfg.DelayMin + time.Duration(d.randFloat()*float64(span))
	if wait <= 0 {
		return
	}
	d.logger.Debug("rate limit delay", zap.Duration("wait", wait))
	d.pause(ctx, wait)
}

func categoryLabel(category string) string {
	if category == "" {
		return "all"
	}
	return category
}
