package checkin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kidscheckin",
		Name:      "request_transitions_total",
		Help:      "Check-in request state transitions by resulting status.",
	}, []string{"status"})

	requestsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kidscheckin",
		Name:      "requests_deduplicated_total",
		Help:      "Create calls answered with an already-pending request.",
	})

	sweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kidscheckin",
		Name:      "sweep_runs_total",
		Help:      "Expiry sweeper invocations.",
	})
)
