package emitter

import (
	"github.com/prometheus/client_golang/prometheus"
)

const outcomeOK = "ok"

// Metrics holds the Prometheus collectors updated by every call.
type Metrics struct {
	Calls        *prometheus.CounterVec
	PayloadBytes prometheus.Histogram
}

// NewMetrics builds the collectors and registers them with reg. A nil
// registerer leaves them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "savefile_calls_total",
				Help: "save_as_file invocations by outcome",
			},
			[]string{"outcome"},
		),
		PayloadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "savefile_payload_bytes",
				Help:    "Size of payloads written to disk",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Calls, m.PayloadBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(err error, written int) {
	if m == nil {
		return
	}
	if err != nil {
		outcome := string(KindOf(err))
		if outcome == "" {
			outcome = "unknown"
		}
		m.Calls.WithLabelValues(outcome).Inc()
		return
	}
	m.Calls.WithLabelValues(outcomeOK).Inc()
	m.PayloadBytes.Observe(float64(written))
}
