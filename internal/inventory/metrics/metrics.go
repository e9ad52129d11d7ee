package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scoped inventory cache. The stale
// counter is the interesting one: it counts responses discarded because
// their scope was superseded mid-flight.
type Metrics struct {
	ScopeChanges      prometheus.Counter
	StaleDiscarded    prometheus.Counter
	ScopeLoadDuration prometheus.Histogram
}

// New creates a new Metrics instance with all inventory metrics registered.
func New() *Metrics {
	return &Metrics{
		ScopeChanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetdesk_inventory_scope_changes_total",
			Help: "Total number of scope changes requested on the inventory cache",
		}),
		StaleDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetdesk_inventory_stale_responses_discarded_total",
			Help: "Total number of scope fetch results discarded as stale",
		}),
		ScopeLoadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "assetdesk_inventory_scope_load_duration_seconds",
			Help:    "Duration of scoped accessory fetches",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementScopeChanges records a requested scope change.
func (m *Metrics) IncrementScopeChanges() {
	m.ScopeChanges.Inc()
}

// IncrementStaleDiscarded records a fetch result thrown away because its
// scope was no longer active.
func (m *Metrics) IncrementStaleDiscarded() {
	m.StaleDiscarded.Inc()
}

// ObserveScopeLoad records the duration of a scoped fetch.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveScopeLoad(start time.Time) {
	m.ScopeLoadDuration.Observe(time.Since(start).Seconds())
}
