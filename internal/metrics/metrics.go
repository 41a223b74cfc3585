// Package metrics exposes loadsim's self-monitoring collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SamplesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loadsim_samples_recorded_total",
		Help: "Samples accepted by the aggregator, by workload",
	}, []string{"workload"})

	SamplesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadsim_samples_dropped_total",
		Help: "Samples submitted after the aggregator was closed",
	})

	AggregatorBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loadsim_aggregator_backlog",
		Help: "Operations queued for the aggregation goroutine",
	})

	ReportsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadsim_reports_computed_total",
		Help: "Reports appended to the history",
	})

	ReportComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loadsim_report_compute_seconds",
		Help:    "Time spent computing one report",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
	})

	Iterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loadsim_iterations_total",
		Help: "Worker iterations by workload and result",
	}, []string{"workload", "result"})

	ActiveWorkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "loadsim_active_workers",
		Help: "Running workers by workload",
	}, []string{"workload"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
