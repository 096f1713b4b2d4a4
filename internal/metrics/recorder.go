package metrics

import "time"

// ResultLabel enumerates step result categories for counters.
type ResultLabel string

const (
	ResultGenerated ResultLabel = "generated"
	ResultReused    ResultLabel = "reused"
	ResultFailed    ResultLabel = "failed"
	ResultCanceled  ResultLabel = "canceled"
)

// Recorder defines observability hooks for run and step metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil receivers
// when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveStepDuration(step string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStepResult(step string, result ResultLabel)
	IncRunOutcome(outcome string) // outcome: success|failed|canceled
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)          {}
func (NoopRecorder) IncStepResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(string)                      {}
