package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	Reports         *prometheus.CounterVec
	ItemsClassified *prometheus.CounterVec
	RowsDropped     prometheus.Counter
	ToxicItems      prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry so tests and
// servers never share counters.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Reports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profit_reports_generated_total",
			Help: "Portfolio reports computed, by data source.",
		}, []string{"source"}),
		ItemsClassified: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profit_items_classified_total",
			Help: "Items labelled, by quadrant.",
		}, []string{"quadrant"}),
		RowsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "profit_rows_dropped_total",
			Help: "Input rows rejected by the loader.",
		}),
		ToxicItems: f.NewGauge(prometheus.GaugeOpts{
			Name: "profit_default_toxic_items",
			Help: "Toxic item count of the current default report.",
		}),
	}
}
