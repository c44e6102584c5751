package backend

import "github.com/prometheus/client_golang/prometheus"

// metrics are the backend's self-observability counters, registered the
// same way cuemby-warren's pkg/metrics builds its gauge/counter vars
// (prometheus.New*(Opts) + explicit MustRegister, no promauto magic).
type metrics struct {
	dropped    prometheus.Counter
	occupancy  *prometheus.GaugeVec
	processed  prometheus.Counter
	skipped    prometheus.Counter
}

// newMetrics builds and registers the backend's metric set against reg.
// A nil reg disables metrics entirely (every method becomes a no-op via
// the nil checks in worker.go) for callers that do not want a global
// registration side effect, e.g. unit tests.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flarelog_backend_dropped_records_total",
			Help: "Records a producer dropped because its ring was full under the drop policy.",
		}),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flarelog_backend_ring_occupancy_bytes",
			Help: "Bytes currently occupied in a producer's ring buffer.",
		}, []string{"thread_id"}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flarelog_backend_records_processed_total",
			Help: "Records consumed from producer rings and handed to dispatch by the backend.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flarelog_backend_records_skipped_total",
			Help: "Records skipped after failing header validation (length or checksum).",
		}),
	}
	reg.MustRegister(m.dropped, m.occupancy, m.processed, m.skipped)
	return m
}
