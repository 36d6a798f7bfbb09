package probe

import (
	"github.com/prometheus/client_golang/prometheus"

	"greetprobe/internal/models"
)

// Metrics exposes the prober's counters to Prometheus.
type Metrics struct {
	outcomes     *prometheus.CounterVec
	inFlight     prometheus.Gauge
	skippedTicks prometheus.Counter
}

// NewMetrics creates the probe metrics and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probe_outcomes_total",
				Help: "Total number of completed probes by outcome",
			},
			[]string{"outcome"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "probe_in_flight",
				Help: "Number of probes dispatched and not yet completed",
			},
		),
		skippedTicks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "probe_skipped_ticks_total",
				Help: "Total number of ticks dropped because the dispatch pool was saturated",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.inFlight, m.skippedTicks)
	}
	return m
}

func (m *Metrics) observe(kind models.Kind) {
	m.outcomes.WithLabelValues(kind.String()).Inc()
}
