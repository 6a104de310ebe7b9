package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore is the default embedded backend. The schema stays
// PostgreSQL-compatible so deployments can graduate to the pgx store without
// a data-model change.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS auction_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT NOT NULL UNIQUE,
	raw_json TEXT NOT NULL,
	scraped_at TEXT NOT NULL,
	zip_code TEXT NOT NULL,
	radius_miles INTEGER NOT NULL,
	category TEXT,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_item_id ON auction_items(item_id);
CREATE INDEX IF NOT EXISTS idx_scraped_at ON auction_items(scraped_at);
CREATE INDEX IF NOT EXISTS idx_zip_code ON auction_items(zip_code);
CREATE INDEX IF NOT EXISTS idx_category ON auction_items(category);

CREATE TABLE IF NOT EXISTS scrape_runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	completed_at TEXT,
	zip_code TEXT NOT NULL,
	radius_miles INTEGER NOT NULL,
	test_mode INTEGER NOT NULL,
	items_found INTEGER DEFAULT 0,
	items_added INTEGER DEFAULT 0,
	items_updated INTEGER DEFAULT 0,
	errors INTEGER DEFAULT 0,
	status TEXT DEFAULT 'running'
);
`

// OpenSQLite opens or creates the database file at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite supports a single writer; one connection avoids lock churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal mode: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertItem inserts a new row or updates an existing one when the payload
// changed. An identical payload is a no-op.
func (s *SQLiteStore) UpsertItem(ctx context.Context, params UpsertParams) (bool, bool, error) {
	payload, err := json.Marshal(params.Payload)
	if err != nil {
		return false, false, fmt.Errorf("marshal payload: %w", err)
	}
	scrapedAt := time.Now().UTC().Format(time.RFC3339)

	var existing string
	err = s.db.QueryRowContext(ctx,
		"SELECT raw_json FROM auction_items WHERE item_id = ?", params.ItemID,
	).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO auction_items (item_id, raw_json, scraped_at, zip_code, radius_miles, category)
			VALUES (?, ?, ?, ?, ?, ?)`,
			params.ItemID, string(payload), scrapedAt, params.ZipCode, params.RadiusMiles, params.Category,
		)
		if err != nil {
			return false, false, fmt.Errorf("insert item: %w", err)
		}
		return true, false, nil
	case err != nil:
		return false, false, fmt.Errorf("lookup item: %w", err)
	}

	if existing == string(payload) {
		return false, false, nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE auction_items
		SET raw_json = ?, scraped_at = ?, zip_code = ?, radius_miles = ?, category = ?
		WHERE item_id = ?`,
		string(payload), scrapedAt, params.ZipCode, params.RadiusMiles, params.Category, params.ItemID,
	)
	if err != nil {
		return false, false, fmt.Errorf("update item: %w", err)
	}
	return false, true, nil
}

// StartRun inserts a running scrape_runs row and returns its ID.
func (s *SQLiteStore) StartRun(ctx context.Context, zipCode string, radiusMiles int, testMode bool) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_runs (id, started_at, zip_code, radius_miles, test_mode, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), zipCode, radiusMiles, boolToInt(testMode), string(RunStatusRunning),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return runID, nil
}

// CompleteRun records the terminal counters and status of a run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scrape_runs
		SET completed_at = ?, items_found = ?, items_added = ?, items_updated = ?, errors = ?, status = ?
		WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339),
		summary.ItemsFound, summary.ItemsAdded, summary.ItemsUpdated, summary.Errors,
		string(summary.Status), runID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// GetRun fetches one run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, zip_code, radius_miles, test_mode,
		       items_found, items_added, items_updated, errors, status
		FROM scrape_runs WHERE id = ?`, runID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the newest runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, zip_code, radius_miles, test_mode,
		       items_found, items_added, items_updated, errors, status
		FROM scrape_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// RecentItems returns the newest items first.
func (s *SQLiteStore) RecentItems(ctx context.Context, limit int) ([]ItemRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, COALESCE(category, ''), zip_code, scraped_at
		FROM auction_items ORDER BY scraped_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent items: %w", err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var item ItemRecord
		var scrapedAt string
		if err := rows.Scan(&item.ItemID, &item.Category, &item.ZipCode, &scrapedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.ScrapedAt = parseTimestamp(scrapedAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent items: %w", err)
	}
	return items, nil
}

// CountItems returns the number of stored auction items.
func (s *SQLiteStore) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM auction_items").Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt string
	var completedAt sql.NullString
	var testMode int
	var status string

	err := row.Scan(
		&run.ID, &startedAt, &completedAt, &run.ZipCode, &run.RadiusMiles, &testMode,
		&run.ItemsFound, &run.ItemsAdded, &run.ItemsUpdated, &run.Errors, &status,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt = parseTimestamp(startedAt)
	if completedAt.Valid {
		t := parseTimestamp(completedAt.String)
		run.CompletedAt = &t
	}
	run.TestMode = testMode != 0
	run.Status = RunStatus(status)
	return &run, nil
}

// parseTimestamp tolerates the formats SQLite hands back.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
