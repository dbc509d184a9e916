// Package metrics counts store writes and AI requests. A terminal program
// has no scrape endpoint, so the registry is dumped in the text exposition
// format when the program exits.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Recorder owns a registry with the program's counters. It satisfies both
// storage.Observer and ai.Observer.
type Recorder struct {
	registry    *prometheus.Registry
	storeWrites *prometheus.CounterVec
	aiRequests  *prometheus.CounterVec
}

// New registers the counters on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		storeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadboard_store_writes_total",
				Help: "Total number of account store writes",
			},
			[]string{"op", "outcome"},
		),
		aiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadboard_ai_requests_total",
				Help: "Total number of generative API requests",
			},
			[]string{"feature", "outcome"},
		),
	}
	r.registry.MustRegister(r.storeWrites, r.aiRequests)
	return r
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}

// ObserveWrite counts one store write.
func (r *Recorder) ObserveWrite(op string, err error) {
	r.storeWrites.WithLabelValues(op, outcome(err)).Inc()
}

// ObserveAI counts one AI request.
func (r *Recorder) ObserveAI(feature string, err error) {
	r.aiRequests.WithLabelValues(feature, outcome(err)).Inc()
}

// Registry exposes the registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes every metric to path, replacing it atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
