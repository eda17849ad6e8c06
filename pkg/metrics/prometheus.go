package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// Prometheus publishes controller events as Prometheus metrics.
type Prometheus struct {
	outcomes       *prometheus.CounterVec
	sessionSeconds prometheus.Histogram
	sessionsActive prometheus.Gauge

	mu           sync.Mutex
	sessionStart time.Time
}

// NewPrometheus creates a Prometheus sink and registers its collectors
// with the given registerer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "satcom",
				Subsystem: "controller",
				Name:      "request_outcomes_total",
				Help:      "Completed controller requests by kind and result",
			},
			[]string{"kind", "result"},
		),
		sessionSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "satcom",
				Subsystem: "controller",
				Name:      "session_duration_seconds",
				Help:      "Duration of satellite sessions in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "satcom",
				Subsystem: "controller",
				Name:      "session_active",
				Help:      "1 while a satellite session is active",
			},
		),
	}
	reg.MustRegister(p.outcomes, p.sessionSeconds, p.sessionsActive)
	return p
}

func (p *Prometheus) outcome(kind string, r satellite.Result) {
	p.outcomes.WithLabelValues(kind, r.String()).Inc()
}

func (p *Prometheus) EnableOutcome(r satellite.Result)        { p.outcome("enable", r) }
func (p *Prometheus) DisableOutcome(r satellite.Result)       { p.outcome("disable", r) }
func (p *Prometheus) ProvisionOutcome(r satellite.Result)     { p.outcome("provision", r) }
func (p *Prometheus) DeprovisionOutcome(r satellite.Result)   { p.outcome("deprovision", r) }
func (p *Prometheus) CarrierAttachOutcome(r satellite.Result) { p.outcome("carrier_attach", r) }
func (p *Prometheus) DatagramOutcome(r satellite.Result)      { p.outcome("datagram", r) }

func (p *Prometheus) SessionStarted() {
	p.mu.Lock()
	p.sessionStart = time.Now()
	p.mu.Unlock()
	p.sessionsActive.Set(1)
}

func (p *Prometheus) SessionEnded() {
	p.mu.Lock()
	start := p.sessionStart
	p.sessionStart = time.Time{}
	p.mu.Unlock()
	p.sessionsActive.Set(0)
	if !start.IsZero() {
		p.sessionSeconds.Observe(time.Since(start).Seconds())
	}
}

var _ Sink = (*Prometheus)(nil)
