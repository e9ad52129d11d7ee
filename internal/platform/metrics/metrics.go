package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the API client. Register once in
// main; stores receive it via options and tolerate nil.
type Metrics struct {
	RequestsTotal   prometheus.Counter
	RequestFailures prometheus.Counter
	RequestDuration prometheus.Histogram
}

// New creates and registers all API client metrics.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetdesk_api_requests_total",
			Help: "Total number of remote API calls issued",
		}),
		RequestFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetdesk_api_request_failures_total",
			Help: "Total number of remote API calls that returned an error",
		}),
		RequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "assetdesk_api_request_duration_seconds",
			Help:    "Duration of remote API calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// ObserveRequest records one completed remote call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRequest(start time.Time, failed bool) {
	m.RequestsTotal.Inc()
	if failed {
		m.RequestFailures.Inc()
	}
	m.RequestDuration.Observe(time.Since(start).Seconds())
}
