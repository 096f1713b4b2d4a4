package hook

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/buildhook/internal/buildinfo"
	herrors "git.home.luguber.info/inful/buildhook/internal/errors"
	"git.home.luguber.info/inful/buildhook/internal/events"
	"git.home.luguber.info/inful/buildhook/internal/history"
	"git.home.luguber.info/inful/buildhook/internal/metrics"
)

// Report summarizes one hook run across all steps.
type Report struct {
	RunID     string
	BuildRoot string
	Stamp     buildinfo.Stamp
	Start     time.Time
	Duration  time.Duration
	Outcome   string // success|failed|canceled
	Results   []Result
}

// Outcomes returns a step-name to outcome map, used to annotate host build data.
func (r *Report) Outcomes() map[string]string {
	out := make(map[string]string, len(r.Results))
	for _, res := range r.Results {
		out[res.Step] = string(res.Outcome)
	}
	return out
}

// Runner executes compile steps in order, recording timing, metrics, history
// and events, and stopping on the first fatal step error.
type Runner struct {
	steps     []*Step
	recorder  metrics.Recorder
	store     *history.Store
	publisher events.Publisher
	logger    *slog.Logger
}

// NewRunner creates a runner over the given steps with no-op observability.
func NewRunner(steps []*Step) *Runner {
	return &Runner{
		steps:    steps,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
}

// WithRecorder injects a metrics recorder.
func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

// WithHistory injects a run history store.
func (r *Runner) WithHistory(store *history.Store) *Runner {
	r.store = store
	return r
}

// WithPublisher injects a step event publisher.
func (r *Runner) WithPublisher(pub events.Publisher) *Runner {
	r.publisher = pub
	return r
}

// WithLogger sets a custom logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Steps returns the configured steps.
func (r *Runner) Steps() []*Step {
	return r.steps
}

// Run executes all steps against the build root. The returned report is
// always non-nil, also on failure.
func (r *Runner) Run(ctx context.Context, buildRoot string) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		BuildRoot: buildRoot,
		Stamp:     buildinfo.Describe(buildRoot),
		Start:     time.Now(),
	}

	r.logger.Info("Starting hook run",
		"run_id", report.RunID,
		"build_root", buildRoot,
		"steps", len(r.steps),
		"commit", report.Stamp.Commit)

	for _, st := range r.steps {
		select {
		case <-ctx.Done():
			report.Outcome = "canceled"
			report.Duration = time.Since(report.Start)
			r.recorder.IncStepResult(st.Name, metrics.ResultCanceled)
			r.recorder.IncRunOutcome("canceled")
			r.recorder.ObserveRunDuration(report.Duration)
			return report, herrors.Wrap(ctx.Err(), herrors.CategoryRuntime, herrors.SeverityError, "hook run canceled")
		default:
		}

		res, err := st.Run(ctx, buildRoot)
		report.Results = append(report.Results, res)

		r.recorder.ObserveStepDuration(res.Step, res.Duration)
		r.recorder.IncStepResult(res.Step, resultLabel(res.Outcome))
		r.record(ctx, report, res)
		r.publish(report, res)

		if err != nil {
			if st.Optional {
				r.logger.Warn("Optional step failed, continuing", "step", st.Name, "error", err)
				continue
			}
			report.Outcome = "failed"
			report.Duration = time.Since(report.Start)
			r.recorder.IncRunOutcome("failed")
			r.recorder.ObserveRunDuration(report.Duration)
			return report, err
		}
	}

	report.Outcome = "success"
	report.Duration = time.Since(report.Start)
	r.recorder.IncRunOutcome("success")
	r.recorder.ObserveRunDuration(report.Duration)

	r.logger.Info("Hook run completed",
		"run_id", report.RunID,
		"duration", report.Duration,
		"steps", len(report.Results))
	return report, nil
}

// record appends the step result to the history store. History is best
// effort: a storage failure is logged, never surfaced to the build.
func (r *Runner) record(ctx context.Context, report *Report, res Result) {
	if r.store == nil {
		return
	}
	rec := history.Record{
		RunID:       report.RunID,
		Step:        res.Step,
		Tool:        res.Tool,
		Outcome:     string(res.Outcome),
		Duration:    res.Duration,
		Fingerprint: res.Fingerprint,
		Commit:      report.Stamp.Commit,
		Dirty:       report.Stamp.Dirty,
	}
	if err := r.store.Append(ctx, rec); err != nil {
		r.logger.Warn("Failed to record step history", "step", res.Step, "error", err)
	}
}

// publish sends the step result to the event publisher, best effort.
func (r *Runner) publish(report *Report, res Result) {
	if r.publisher == nil {
		return
	}
	ev := events.StepEvent{
		RunID:       report.RunID,
		Step:        res.Step,
		Tool:        res.Tool,
		Outcome:     string(res.Outcome),
		DurationMS:  res.Duration.Milliseconds(),
		Fingerprint: res.Fingerprint,
		Commit:      report.Stamp.Commit,
		Timestamp:   time.Now(),
	}
	if err := r.publisher.Publish(ev); err != nil {
		r.logger.Warn("Failed to publish step event", "step", res.Step, "error", err)
	}
}

func resultLabel(o Outcome) metrics.ResultLabel {
	switch o {
	case OutcomeGenerated:
		return metrics.ResultGenerated
	case OutcomeReused:
		return metrics.ResultReused
	default:
		return metrics.ResultFailed
	}
}
