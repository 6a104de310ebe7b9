package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxConn is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on PostgreSQL via pgx.
type PostgresStore struct {
	db PgxConn
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS auction_items (
	id BIGSERIAL PRIMARY KEY,
	item_id TEXT NOT NULL UNIQUE,
	raw_json JSONB NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL,
	zip_code TEXT NOT NULL,
	radius_miles INTEGER NOT NULL,
	category TEXT,
	created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_item_id ON auction_items(item_id);
CREATE INDEX IF NOT EXISTS idx_scraped_at ON auction_items(scraped_at);
CREATE INDEX IF NOT EXISTS idx_zip_code ON auction_items(zip_code);
CREATE INDEX IF NOT EXISTS idx_category ON auction_items(category);

CREATE TABLE IF NOT EXISTS scrape_runs (
	id UUID PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	zip_code TEXT NOT NULL,
	radius_miles INTEGER NOT NULL,
	test_mode BOOLEAN NOT NULL,
	items_found INTEGER DEFAULT 0,
	items_added INTEGER DEFAULT 0,
	items_updated INTEGER DEFAULT 0,
	errors INTEGER DEFAULT 0,
	status TEXT DEFAULT 'running'
);
`

// NewPostgresStore connects to dsn, pings the server and ensures the schema
// exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

// newPostgresStoreWithConn wires an existing connection, used by tests.
func newPostgresStoreWithConn(db PgxConn) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// UpsertItem inserts a new row or updates an existing one when the payload
// changed. An identical payload is a no-op.
func (s *PostgresStore) UpsertItem(ctx context.Context, params UpsertParams) (bool, bool, error) {
	payload, err := json.Marshal(params.Payload)
	if err != nil {
		return false, false, fmt.Errorf("marshal payload: %w", err)
	}
	scrapedAt := time.Now().UTC()

	var existing []byte
	err = s.db.QueryRow(ctx,
		"SELECT raw_json FROM auction_items WHERE item_id = $1", params.ItemID,
	).Scan(&existing)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = s.db.Exec(ctx, `
			INSERT INTO auction_items (item_id, raw_json, scraped_at, zip_code, radius_miles, category)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			params.ItemID, payload, scrapedAt, params.ZipCode, params.RadiusMiles, params.Category,
		)
		if err != nil {
			return false, false, fmt.Errorf("insert item: %w", err)
		}
		return true, false, nil
	case err != nil:
		return false, false, fmt.Errorf("lookup item: %w", err)
	}

	if jsonEqual(existing, payload) {
		return false, false, nil
	}

	_, err = s.db.Exec(ctx, `
		UPDATE auction_items
		SET raw_json = $1, scraped_at = $2, zip_code = $3, radius_miles = $4, category = $5
		WHERE item_id = $6`,
		payload, scrapedAt, params.ZipCode, params.RadiusMiles, params.Category, params.ItemID,
	)
	if err != nil {
		return false, false, fmt.Errorf("update item: %w", err)
	}
	return false, true, nil
}

// StartRun inserts a running scrape_runs row and returns its ID.
func (s *PostgresStore) StartRun(ctx context.Context, zipCode string, radiusMiles int, testMode bool) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO scrape_runs (id, started_at, zip_code, radius_miles, test_mode, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		runID, time.Now().UTC(), zipCode, radiusMiles, testMode, string(RunStatusRunning),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return runID, nil
}

// CompleteRun records the terminal counters and status of a run.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	_, err := s.db.Exec(ctx, `
		UPDATE scrape_runs
		SET completed_at = $1, items_found = $2, items_added = $3, items_updated = $4, errors = $5, status = $6
		WHERE id = $7`,
		time.Now().UTC(), summary.ItemsFound, summary.ItemsAdded, summary.ItemsUpdated,
		summary.Errors, string(summary.Status), runID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// GetRun fetches one run by ID.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, started_at, completed_at, zip_code, radius_miles, test_mode,
		       items_found, items_added, items_updated, errors, status
		FROM scrape_runs WHERE id = $1`, runID)

	run, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the newest runs first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, started_at, completed_at, zip_code, radius_miles, test_mode,
		       items_found, items_added, items_updated, errors, status
		FROM scrape_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanPgRun(rows)
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
func (s *PostgresStore) RecentItems(ctx context.Context, limit int) ([]ItemRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT item_id, COALESCE(category, ''), zip_code, scraped_at
		FROM auction_items ORDER BY scraped_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent items: %w", err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var item ItemRecord
		if err := rows.Scan(&item.ItemID, &item.Category, &item.ZipCode, &item.ScrapedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent items: %w", err)
	}
	return items, nil
}

// CountItems returns the number of stored auction items.
func (s *PostgresStore) CountItems(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM auction_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

func scanPgRun(row pgx.Row) (*Run, error) {
	var run Run
	var completedAt *time.Time
	var status string

	err := row.Scan(
		&run.ID, &run.StartedAt, &completedAt, &run.ZipCode, &run.RadiusMiles, &run.TestMode,
		&run.ItemsFound, &run.ItemsAdded, &run.ItemsUpdated, &run.Errors, &status,
	)
	if err != nil {
		return nil, err
	}
	run.CompletedAt = completedAt
	run.Status = RunStatus(status)
	return &run, nil
}

// jsonEqual compares two JSON documents structurally; JSONB storage does not
// preserve key order or whitespace.
func jsonEqual(a, b []byte) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	ar, err := json.Marshal(av)
	if err != nil {
		return false
	}
	br, err := json.Marshal(bv)
	if err != nil {
		return false
	}
	return string(ar) == string(br)
}
