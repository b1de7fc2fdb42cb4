package dlob

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects the counters a dlobd process exposes via promhttp.
// Kept separate from DLOB itself so tests can
// construct a DLOB without registering against the default registry.
type Metrics struct {
	OrdersApplied      *prometheus.CounterVec
	EventsDropped      prometheus.Counter
	CrossesFound       prometheus.Counter
	SnapshotsPublished *prometheus.CounterVec
}

// NewMetrics constructs and registers the dlob metric set against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dlob",
			Name:      "orders_applied_total",
			Help:      "Order deltas applied to the book, by kind.",
		}, []string{"kind"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dlob",
			Name:      "events_dropped_total",
			Help:      "Events dropped because the notifier channel was full.",
		}),
		CrossesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dlob",
			Name:      "crosses_found_total",
			Help:      "Maker fills produced by the cross engine.",
		}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dlob",
			Name:      "snapshots_published_total",
			Help:      "L2/L3 snapshots published, by level.",
		}, []string{"level"}),
	}
	reg.MustRegister(m.OrdersApplied, m.EventsDropped, m.CrossesFound, m.SnapshotsPublished)
	return m
}
