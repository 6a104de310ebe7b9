package scraper

import (
	"context"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Fetcher retrieves one page of HTML. Implementations absorb transient
// failures internally and only surface a final success or failure.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// CollyFetcher implements Fetcher with a Colly collector, retrying transient
// failures with a linearly increasing backoff. Fetching is synchronous: the
// engine issues one request at a time on purpose, since the target actively
// distinguishes automated traffic.
type CollyFetcher struct {
	base        *colly.Collector
	retries     int
	backoffStep time.Duration
	pause       pauseFunc
	metrics     *Metrics
	logger      *zap.Logger
}

// NewCollyFetcher constructs a configured fetcher. metrics may be nil.
func NewCollyFetcher(cfg Config, logger *zap.Logger, metrics *Metrics) *CollyFetcher {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	// Pagination retries refetch identical URLs; dedup happens on item IDs,
	// not URLs.
	base.AllowURLRevisit = true
	base.SetRequestTimeout(cfg.FetchTimeout)

	return &CollyFetcher{
		base:        base,
		retries:     cfg.FetchRetries,
		backoffStep: cfg.BackoffStep,
		pause:       sleepWithContext,
		metrics:     metrics,
		logger:      logger,
	}
}

// Fetch performs up to the configured number of attempts, sleeping
// attempt*backoffStep between them. A canceled context is returned
// immediately and never retried.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		body, err := f.fetchOnce(rawURL)
		f.metrics.ObserveFetchDuration(time.Since(start))
		if err == nil {
			return body, nil
		}
		lastErr = err
		f.logger.Warn("request failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.retries),
			zap.Error(err),
		)

		if err := ctx.Err(); err != nil {
			return "", err
		}
		if attempt < f.retries {
			wait := time.Duration(attempt) * f.backoffStep
			f.logger.Info("retrying", zap.String("url", rawURL), zap.Duration("wait", wait))
			f.metrics.IncRetries()
			f.pause(ctx, wait)
		}
	}
	return "", &FetchError{URL: rawURL, Attempts: f.retries, Err: lastErr}
}

func (f *CollyFetcher) fetchOnce(rawURL string) (string, error) {
	collector := f.base.Clone()

	var body []byte
	var fetchErr error

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = &HTTPStatusError{StatusCode: r.StatusCode}
			return
		}
		fetchErr = err
	})

	visitErr := collector.Visit(rawURL)
	collector.Wait()

	// OnError classifies HTTP-status failures; prefer it over the raw visit
	// error.
	if fetchErr != nil {
		return "", fetchErr
	}
	if visitErr != nil {
		return "", visitErr
	}
	return string(body), nil
}
