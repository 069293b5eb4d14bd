package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "powergrid_events_enqueued_total",
		Help: "Total number of events placed on the update queue.",
	})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "powergrid_events_processed_total",
		Help: "Total number of events applied by the update loop, labelled by type and status.",
	}, []string{"type", "status"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "powergrid_events_dropped_total",
		Help: "Total number of events rejected due to a full queue.",
	})

	EventProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "powergrid_event_processing_duration_ms",
		Help:    "End-to-end event processing latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "powergrid_queue_utilization_ratio",
		Help: "Current update queue utilization (0–1).",
	})

	NetworksActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "powergrid_networks_active",
		Help: "Number of live power networks.",
	})

	RelaysTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "powergrid_relays_tracked",
		Help: "Number of relays currently assigned to a network.",
	})

	NetworkMerges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "powergrid_network_merges_total",
		Help: "Total number of network merges on connect.",
	})

	NetworkSplits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "powergrid_network_splits_total",
		Help: "Total number of network rebuilds on disconnect.",
	})

	RelaysDestroyed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "powergrid_relays_destroyed_total",
		Help: "Total number of relays destroyed.",
	})

	DrawRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "powergrid_draw_requests_total",
		Help: "Total number of power draw requests, labelled by result.",
	}, []string{"result"})

	InvariantViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "powergrid_invariant_violations_total",
		Help: "Total number of bookkeeping invariant violations, labelled by operation.",
	}, []string{"op"})
)
