// Package metrics provides observability hooks for the generation pipeline.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics stay zero-overhead until a real implementation is
// wired in (see PrometheusRecorder).
package metrics

import "time"

// ResultLabel enumerates call result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFatal   ResultLabel = "fatal"
)

// Recorder defines observability hooks for AI calls, plan parsing, diagram
// rendering, and whole runs. All methods must be safe on the NoopRecorder.
type Recorder interface {
	ObserveCallDuration(category string, d time.Duration)
	IncCallResult(category string, result ResultLabel)
	IncCallRetry(category string)
	IncCallExhausted(category string)
	IncPlanOutcome(outcome string)    // outcome: parsed|degraded
	IncDiagramOutcome(backend string) // backend: local|remote|fallback|skipped
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome string) // outcome: success|degraded|failed
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCallDuration(string, time.Duration) {}
func (NoopRecorder) IncCallResult(string, ResultLabel)         {}
func (NoopRecorder) IncCallRetry(string)                       {}
func (NoopRecorder) IncCallExhausted(string)                   {}
func (NoopRecorder) IncPlanOutcome(string)                     {}
func (NoopRecorder) IncDiagramOutcome(string)                  {}
func (NoopRecorder) ObserveRunDuration(time.Duration)          {}
func (NoopRecorder) IncRunOutcome(string)                      {}
