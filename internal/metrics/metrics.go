package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clipgrab"

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

var (
	// ProbeAttempts counts individual extraction-tool runs while probing
	ProbeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "probe_attempts_total",
		Help:      "Probe attempts by platform, profile and outcome.",
	}, []string{"platform", "profile", "outcome"})

	// Probes counts finished probe requests
	Probes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "probes_total",
		Help:      "Probe requests by platform and outcome.",
	}, []string{"platform", "outcome"})

	// ProbeDuration observes the time spent on a whole probe request
	ProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "probe_duration_seconds",
		Help:      "Duration of probe requests including retries.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	}, []string{"platform"})

	// Streams counts finished download streams
	Streams = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "streams_total",
		Help:      "Download streams by kind, platform and outcome.",
	}, []string{"kind", "platform", "outcome"})

	// ActiveProcesses tracks running external tool processes
	ActiveProcesses = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_processes",
		Help:      "External tool processes currently running.",
	}, []string{"tool"})
)
