package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auctionops/hibid-crawler/internal/config"
)

func TestApplyScrapeFlags(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)

	applyScrapeFlags(&cfg, scrapeFlags{
		zip:        "78414",
		radius:     100,
		test:       true,
		limit:      5,
		categories: "coins---currency, art,,  ",
		db:         "sqlite:///override.db",
	})

	require.Equal(t, "78414", cfg.Search.ZipCode)
	require.Equal(t, 100, cfg.Search.RadiusMiles)
	require.True(t, cfg.Search.TestMode)
	require.Equal(t, 5, cfg.Search.TestLimit)
	require.Equal(t, []string{"coins---currency", "art"}, cfg.Search.Categories)
	require.Equal(t, "sqlite:///override.db", cfg.DB.DSN)
}

func TestApplyScrapeFlagsZeroValuesKeepConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Search.ZipCode = "10001"
	cfg.Search.TestLimit = 20

	applyScrapeFlags(&cfg, scrapeFlags{})

	require.Equal(t, "10001", cfg.Search.ZipCode)
	require.Equal(t, 50, cfg.Search.RadiusMiles)
	require.False(t, cfg.Search.TestMode)
	require.Equal(t, 20, cfg.Search.TestLimit)
}
