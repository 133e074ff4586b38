package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the service's private Prometheus registry. It doubles as the
// gift service's step observer.
type Metrics struct {
	registry     *prometheus.Registry
	giftsTotal   *prometheus.CounterVec
	redeemsTotal *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	dlqDepth     prometheus.Gauge
}

func NewMetrics() *Metrics {
	gifts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftrails_gifts_total",
		Help: "Total number of gift transfer requests",
	}, []string{"status"})

	redeems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "giftrails_redemptions_total",
		Help: "Total number of gift redemption requests",
	}, []string{"status"})

	steps := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "giftrails_step_duration_seconds",
		Help:    "Latency of each external call in the gift flow",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"step", "result"})

	dlq := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "giftrails_dlq_depth",
		Help: "Number of failed gift requests awaiting review",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(gifts, redeems, steps, dlq)

	return &Metrics{
		registry:     r,
		giftsTotal:   gifts,
		redeemsTotal: redeems,
		stepDuration: steps,
		dlqDepth:     dlq,
	}
}

func (m *Metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStep records a gift step latency.
func (m *Metrics) ObserveStep(step string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.stepDuration.WithLabelValues(step, result).Observe(took.Seconds())
}

func (m *Metrics) incGift(status string) {
	m.giftsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) incRedeem(status string) {
	m.redeemsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) setDLQDepth(depth int) {
	m.dlqDepth.Set(float64(depth))
}
