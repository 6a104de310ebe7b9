package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteUpsertLifecycle(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	params := UpsertParams{
		ItemID:      "lot-12345",
		Payload:     map[string]any{"lead": "Antique clock", "bidCount": 3},
		ZipCode:     "78414",
		RadiusMiles: 50,
		Category:    "antiques",
	}

	isNew, isUpdated, err := store.UpsertItem(ctx, params)
	require.NoError(t, err)
	require.True(t, isNew)
	require.False(t, isUpdated)

	// Same payload again is a no-op.
	isNew, isUpdated, err = store.UpsertItem(ctx, params)
	require.NoError(t, err)
	require.False(t, isNew)
	require.False(t, isUpdated)

	// A changed payload updates in place.
	params.Payload["bidCount"] = 4
	isNew, isUpdated, err = store.UpsertItem(ctx, params)
	require.NoError(t, err)
	require.False(t, isNew)
	require.True(t, isUpdated)

	count, err := store.CountItems(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestSQLiteRecentItems(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"lot-1", "lot-2", "lot-3"} {
		_, _, err := store.UpsertItem(ctx, UpsertParams{
			ItemID:   id,
			Payload:  map[string]any{"id": id},
			ZipCode:  "78414",
			Category: "coins",
		})
		require.NoError(t, err)
	}

	items, err := store.RecentItems(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "lot-3", items[0].ItemID)
	require.Equal(t, "coins", items[0].Category)
	require.Equal(t, "78414", items[0].ZipCode)
	require.False(t, items[0].ScrapedAt.IsZero())

	items, err = store.RecentItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
}

func TestSQLiteRunLifecycle(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	runID, err := store.StartRun(ctx, "78414", 100, true)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := store.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, RunStatusRunning, run.Status)
	require.True(t, run.TestMode)
	require.Equal(t, "78414", run.ZipCode)
	require.Equal(t, 100, run.RadiusMiles)
	require.Nil(t, run.CompletedAt)
	require.False(t, run.StartedAt.IsZero())

	err = store.CompleteRun(ctx, runID, RunSummary{
		ItemsFound:   42,
		ItemsAdded:   30,
		ItemsUpdated: 12,
		Errors:       1,
		Status:       RunStatusCompleted,
	})
	require.NoError(t, err)

	run, err = store.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, RunStatusCompleted, run.Status)
	require.Equal(t, 42, run.ItemsFound)
	require.Equal(t, 30, run.ItemsAdded)
	require.Equal(t, 12, run.ItemsUpdated)
	require.Equal(t, 1, run.Errors)
	require.NotNil(t, run.CompletedAt)
}

func TestSQLiteGetRunMissing(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	run, err := store.GetRun(context.Background(), "no-such-run")
	require.NoError(t, err)
	require.Nil(t, run)
}

func TestSQLiteListRuns(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.StartRun(ctx, "78414", 50, false)
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	runs, err = store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestOpenDispatchesOnScheme(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "open.db")
	store, err := Open(context.Background(), "sqlite:///"+path)
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(context.Background(), "mysql://nope")
	require.Error(t, err)
}
