// Package metrics holds the prometheus instruments of the attestation engine
// and the accumulator daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Results recorded on the transition counter.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
)

// Transitions tracks compressed attestation transitions.
type Transitions struct {
	Total    *prometheus.CounterVec
	Records  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewTransitions registers the transition metrics with reg. A nil reg uses
// the default registerer.
func NewTransitions(reg prometheus.Registerer) *Transitions {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Transitions{
		Total: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sas_compressed_transitions_total",
			Help: "Compressed attestation transitions by operation and result",
		}, []string{"op", "result"}),
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sas_compressed_records_total",
			Help: "Attestation records committed to or nullified in the accumulator",
		}, []string{"op"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sas_compressed_transition_duration_seconds",
			Help:    "Duration of compressed attestation transitions",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"op"}),
	}
}

// Observe records one finished transition touching records leaves.
// Call with time.Now() at the start of the operation.
func (m *Transitions) Observe(op string, start time.Time, records int, err error) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.Total.WithLabelValues(op, ResultRejected).Inc()
		return
	}
	m.Total.WithLabelValues(op, ResultOK).Inc()
	m.Records.WithLabelValues(op).Add(float64(records))
}

// RPC tracks accumulator gRPC calls served by the daemon.
type RPC struct {
	Calls *prometheus.CounterVec
}

func NewRPC(reg prometheus.Registerer) *RPC {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &RPC{
		Calls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sas_accumulator_rpcs_total",
			Help: "Accumulator RPCs by method and status code",
		}, []string{"method", "code"}),
	}
}

func (m *RPC) Observe(method, code string) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(method, code).Inc()
}
