// Package metrics registers the Prometheus collectors exposed on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for remote command attempts.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeLaunch  = "launch_error"
)

// RemoteCommands counts remote command attempts by verb and outcome.
var RemoteCommands = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "deploykit",
	Name:      "remote_commands_total",
	Help:      "Remote deployment tool invocations by command verb and outcome.",
}, []string{"command", "outcome"})

// StopFallbacks counts how often stopping an app fell back to destroy.
var StopFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "deploykit",
	Name:      "stop_destroy_fallbacks_total",
	Help:      "Stop requests that escalated to the destroy fallback.",
})
