package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	SessionEvents   *prometheus.CounterVec
	Turns           *prometheus.CounterVec
	TurnLatency     prometheus.Histogram
	IndexedPassages prometheus.Counter
	ProviderErrors  *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active conversation sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by outcome.",
		}, []string{"outcome"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of a conversation turn.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
		IndexedPassages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_passages_total",
			Help:      "Passages indexed into the vector store.",
		}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Upstream provider errors by provider and code.",
		}, []string{"provider", "code"}),
	}
}

// ObserveTurn records a completed turn. Failed turns are counted through the
// Turns vector directly and never feed the latency histogram.
func (m *Metrics) ObserveTurn(outcome string, d time.Duration) {
	m.Turns.WithLabelValues(outcome).Inc()
	m.TurnLatency.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
