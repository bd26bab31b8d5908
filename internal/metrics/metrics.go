// Package metrics exposes prometheus instrumentation for operation
// execution. A noop recorder stands in when metrics are disabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives execution measurements from the host.
type Recorder interface {
	ObserveOp(kind, outcome string, d time.Duration)
	AddMinted(amount uint64)
	AddPayment(amount uint64)
}

type provider struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	minted   prometheus.Counter
	payments prometheus.Counter
}

// New builds a prometheus-backed recorder, or the noop recorder when
// disabled. eventHead, when non-nil, is exported as a gauge tracking
// the newest event log sequence. Register at most once per process:
// the collectors go to the default registry.
func New(enabled bool, eventHead func() float64) Recorder {
	if !enabled {
		return noop{}
	}

	p := &provider{
		ops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trending_ops_total",
			Help: "Operations executed, by kind and outcome",
		}, []string{"kind", "outcome"}),

		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trending_op_duration_seconds",
			Help:    "Operation execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		minted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trending_minted_editions_total",
			Help: "Edition units minted across all series",
		}),

		payments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trending_payment_volume_total",
			Help: "Mint payment volume in base coin units",
		}),
	}

	if eventHead != nil {
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "trending_event_head",
			Help: "Sequence of the newest event log entry",
		}, eventHead)
	}

	return p
}

func (p *provider) ObserveOp(kind, outcome string, d time.Duration) {
	p.ops.WithLabelValues(kind, outcome).Inc()
	p.duration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *provider) AddMinted(amount uint64) {
	p.minted.Add(float64(amount))
}

func (p *provider) AddPayment(amount uint64) {
	p.payments.Add(float64(amount))
}

// Noop returns a recorder that drops every measurement.
func Noop() Recorder { return noop{} }

// noop is the disabled-metrics implementation.
type noop struct{}

func (noop) ObserveOp(_, _ string, _ time.Duration) {}
func (noop) AddMinted(_ uint64)                     {}
func (noop) AddPayment(_ uint64)                    {}
