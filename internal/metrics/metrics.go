package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for search and ingest.
// All methods are safe on a nil receiver.
type Metrics struct {
	// Store queries per tier by outcome (ok, error)
	TierQueries *prometheus.CounterVec

	// Distinct records contributed per tier
	TierMatches *prometheus.CounterVec

	TierLatency *prometheus.HistogramVec

	// Bulk requests by outcome (ok, invalid, unavailable, canceled)
	BulkRequests *prometheus.CounterVec

	// Names processed by outcome (matched, empty, error)
	BulkNames *prometheus.CounterVec

	BulkLatency prometheus.Histogram

	// Ingested rows by result (inserted, skipped, failed)
	IngestRows *prometheus.CounterVec
}

// New registers all metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TierQueries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contribsearch_tier_queries_total",
			Help: "Store queries issued by match tier and outcome",
		}, []string{"tier", "outcome"}),

		TierMatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contribsearch_tier_matches_total",
			Help: "Distinct records contributed by each match tier",
		}, []string{"tier"}),

		TierLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contribsearch_tier_duration_seconds",
			Help:    "Duration of a single tier including its store query",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"tier"}),

		BulkRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contribsearch_bulk_requests_total",
			Help: "Bulk search requests by outcome",
		}, []string{"outcome"}),

		BulkNames: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contribsearch_bulk_names_total",
			Help: "Names resolved within bulk searches by outcome",
		}, []string{"outcome"}),

		BulkLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "contribsearch_bulk_duration_seconds",
			Help:    "Duration of a bulk search including session acquisition",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		IngestRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contribsearch_ingest_rows_total",
			Help: "Contribution rows read during ingest by result",
		}, []string{"result"}),
	}
}

// ObserveTier records one tier execution.
func (m *Metrics) ObserveTier(tier, outcome string, added int, d time.Duration) {
	if m == nil {
		return
	}
	m.TierQueries.WithLabelValues(tier, outcome).Inc()
	m.TierLatency.WithLabelValues(tier).Observe(d.Seconds())
	if added > 0 {
		m.TierMatches.WithLabelValues(tier).Add(float64(added))
	}
}

// IncrementBulk records a finished bulk request.
func (m *Metrics) IncrementBulk(outcome string, d time.Duration) {
	if m != nil {
		m.BulkRequests.WithLabelValues(outcome).Inc()
		m.BulkLatency.Observe(d.Seconds())
	}
}

// IncrementName records one resolved name.
func (m *Metrics) IncrementName(outcome string) {
	if m != nil {
		m.BulkNames.WithLabelValues(outcome).Inc()
	}
}

// AddIngest records ingest row counts.
func (m *Metrics) AddIngest(inserted, skipped, failed int) {
	if m == nil {
		return
	}
	m.IngestRows.WithLabelValues("inserted").Add(float64(inserted))
	m.IngestRows.WithLabelValues("skipped").Add(float64(skipped))
	m.IngestRows.WithLabelValues("failed").Add(float64(failed))
}
