package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the capture agent.
type Metrics struct {
	CapturesTotal  prometheus.Counter
	SyncTotal      *prometheus.CounterVec
	CollectionSize prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		CapturesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "capture_products_total",
			Help: "The total number of product captures processed",
		}),
		SyncTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_sync_total",
			Help: "The total number of backend sync attempts by outcome",
		}, []string{"outcome"}), // 'synced', 'skipped', 'unauthorized', 'failed'
		CollectionSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "capture_collection_size",
			Help: "The current number of products in the local collection",
		}),
	}
}

func (m *Metrics) IncCaptures() {
	m.CapturesTotal.Inc()
}

func (m *Metrics) IncSync(outcome string) {
	m.SyncTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetCollectionSize(n int) {
	m.CollectionSize.Set(float64(n))
}
