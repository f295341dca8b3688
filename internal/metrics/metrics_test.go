package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveTier(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTier("normalized", "ok", 3, time.Millisecond)
	m.ObserveTier("normalized", "ok", 0, time.Millisecond)
	m.ObserveTier("fuzzy", "error", 0, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.TierQueries.WithLabelValues("normalized", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.TierQueries.WithLabelValues("fuzzy", "error")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.TierMatches.WithLabelValues("normalized")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveTier("raw", "ok", 1, time.Millisecond)
		m.IncrementBulk("ok", time.Second)
		m.IncrementName("matched")
		m.AddIngest(1, 2, 3)
	})
}

func TestAddIngest(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.AddIngest(5, 2, 1)
	m.AddIngest(1, 0, 0)
	require.Equal(t, 6.0, testutil.ToFloat64(m.IngestRows.WithLabelValues("inserted")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.IngestRows.WithLabelValues("skipped")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.IngestRows.WithLabelValues("failed")))
}
