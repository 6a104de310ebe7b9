package scraper

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.IncPages()
	m.IncPages()
	m.IncItems()
	m.IncRetries()
	m.IncError("fetch")
	m.IncError("fetch")
	m.IncError("extract")
	m.ObserveFetchDuration(120 * time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.PagesTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ItemsTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RetriesTotal))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("fetch")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("extract")))
	require.Equal(t, 1, testutil.CollectAndCount(m.FetchDuration))
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.IncPages()
	m.IncItems()
	m.IncRetries()
	m.IncError("fetch")
	m.ObserveFetchDuration(time.Second)
}
