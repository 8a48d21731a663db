package observability

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/derickschaefer/bc19/internal/timeline"
	"github.com/derickschaefer/bc19/internal/util"
)

const namespace = "bc19"

// Metrics holds the Prometheus counters, histograms, and gauges for one
// run. Each Metrics owns a private registry, so a run never collides with
// another instance in the same process.
type Metrics struct {
	registry *prometheus.Registry

	RowsProcessed     prometheus.Counter
	SeriesProduced    prometheus.Gauge
	ReductionDuration prometheus.Histogram
	LastReduction     prometheus.Gauge

	FetchRequests     *prometheus.CounterVec // labels: feed={timeline,schools}, outcome={ok,retry,failed,invalid}
	MissingCategories *prometheus.CounterVec // labels: category
}

// NewMetrics creates and registers all run metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Daily records consumed by the reducer.",
		}),
		SeriesProduced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series_produced",
			Help:      "Named series in the last reduced timeline.",
		}),
		ReductionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reduction_duration_seconds",
			Help:      "Duration of a complete timeline reduction.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		LastReduction: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reduction_timestamp_seconds",
			Help:      "Unix time of the last successful reduction.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Feed HTTP attempts by feed and outcome.",
		}, []string{"feed", "outcome"}),
		MissingCategories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_category_total",
			Help:      "Reductions rejected because a required category had no data.",
		}, []string{"category"}),
	}

	m.registry.MustRegister(
		m.RowsProcessed,
		m.SeriesProduced,
		m.ReductionDuration,
		m.LastReduction,
		m.FetchRequests,
		m.MissingCategories,
	)
	return m
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFetch records one feed HTTP attempt. Its signature matches
// feed.Client.OnResult.
func (m *Metrics) ObserveFetch(kind, outcome string) {
	m.FetchRequests.WithLabelValues(kind, outcome).Inc()
}

// ObserveReduction records a successful reduction.
func (m *Metrics) ObserveReduction(tl *timeline.Timeline, d time.Duration) {
	m.RowsProcessed.Add(float64(tl.Rows()))
	m.SeriesProduced.Set(float64(len(tl.SeriesNames())))
	m.ReductionDuration.Observe(d.Seconds())
	m.LastReduction.Set(float64(util.Now().Unix()))
}

// ObserveError records the missing categories carried by err, if any.
// Other errors are ignored.
func (m *Metrics) ObserveError(err error) {
	for _, e := range flatten(err) {
		var dae *timeline.DataAvailabilityError
		if errors.As(e, &dae) {
			m.MissingCategories.WithLabelValues(string(dae.Category)).Inc()
		}
	}
}

// flatten expands a MultiError into its parts.
func flatten(err error) []error {
	var multi *util.MultiError
	if errors.As(err, &multi) {
		return multi.Errors
	}
	if err == nil {
		return nil
	}
	return []error{err}
}

// WriteTextfile writes the text exposition of every metric to path, in the
// format read by node-exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
