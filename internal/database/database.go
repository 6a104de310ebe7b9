// Package database persists raw auction payloads and scrape-run audit rows.
// The Store interface decouples the engine from a specific backend; SQLite is
// the default and PostgreSQL is available for shared deployments.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of a scrape run.
type RunStatus string

// Run status values persisted in scrape_runs.
const (
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusInterrupted RunStatus = "interrupted"
	RunStatusFailed      RunStatus = "failed"
)

// UpsertParams carries one hydrated record into storage.
type UpsertParams struct {
	ItemID      string
	Payload     map[string]any
	ZipCode     string
	RadiusMiles int
	Category    string
}

// Run is a scrape-run audit record.
type Run struct {
	ID           string
	StartedAt    time.Time
	CompletedAt  *time.Time
	ZipCode      string
	RadiusMiles  int
	TestMode     bool
	ItemsFound   int
	ItemsAdded   int
	ItemsUpdated int
	Errors       int
	Status       RunStatus
}

// ItemRecord is a stored item's listing view, without the raw payload.
type ItemRecord struct {
	ItemID    string
	Category  string
	ZipCode   string
	ScrapedAt time.Time
}

// RunSummary closes out a run.
type RunSummary struct {
	ItemsFound   int
	ItemsAdded   int
	ItemsUpdated int
	Errors       int
	Status       RunStatus
}

// Store is the persistence contract used by the scrape command. Upserts are
// idempotent on item ID; the crawl engine never retries storage failures.
type Store interface {
	// UpsertItem inserts or updates one record. It reports whether the item
	// was new and whether an existing row's payload changed.
	UpsertItem(ctx context.Context, params UpsertParams) (isNew, isUpdated bool, err error)

	// StartRun records the start of a scrape run and returns its ID.
	StartRun(ctx context.Context, zipCode string, radiusMiles int, testMode bool) (string, error)

	// CompleteRun finalizes a run with its counters and terminal status.
	CompleteRun(ctx context.Context, runID string, summary RunSummary) error

	// GetRun fetches one run, or nil when it does not exist.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// RecentItems returns the most recently scraped items, newest first.
	RecentItems(ctx context.Context, limit int) ([]ItemRecord, error)

	// CountItems returns the number of stored auction items.
	CountItems(ctx context.Context) (int, error)

	Close() error
}

// Open picks a backend by DSN scheme: "sqlite://" paths open the embedded
// store, "postgres://"/"postgresql://" connect via pgx.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return OpenSQLite(sqlitePath(dsn))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database dsn %q", dsn)
	}
}

// sqlitePath extracts the file path from a sqlite:///path/to/db URL.
func sqlitePath(dsn string) string {
	return strings.TrimPrefix(dsn, "sqlite:///")
}
