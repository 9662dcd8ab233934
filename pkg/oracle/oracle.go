package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/zen-systems/routecheck/pkg/config"
	"github.com/zen-systems/routecheck/pkg/remote"
	"github.com/zen-systems/routecheck/pkg/schema"
)

// Report aggregates one oracle run. Telemetry and Vote stay nil unless the
// stage was requested and its call succeeded; they are never zero-valued
// placeholders. No state survives the run that produced it.
type Report struct {
	RunID       string                    `json:"run_id"`
	StartedAt   time.Time                 `json:"started_at"`
	DurationMs  int64                     `json:"duration_ms"`
	Validations []Validation              `json:"validations"`
	Accuracy    float64                   `json:"accuracy"`
	Telemetry   *schema.TelemetrySnapshot `json:"telemetry,omitempty"`
	Vote        *schema.VoteOutcome       `json:"vote,omitempty"`
}

// Oracle sequences the validation stages against one invoker.
type Oracle struct {
	inv remote.Invoker
	log log.FieldLogger
}

// Option adjusts an Oracle.
type Option func(*Oracle)

// WithLogger replaces the standard logger.
func WithLogger(logger log.FieldLogger) Option {
	return func(o *Oracle) { o.log = logger }
}

// New builds an Oracle over the given invoker.
func New(inv remote.Invoker, opts ...Option) (*Oracle, error) {
	if inv == nil {
		return nil, fmt.Errorf("invoker required")
	}
	o := &Oracle{inv: inv, log: log.StandardLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunOptions configures one oracle run.
type RunOptions struct {
	Expectations []config.Expectation
	Telemetry    bool
	Vote         bool
	Strategy     schema.VoteStrategy
}

func (opts *RunOptions) validate() error {
	for i := range opts.Expectations {
		if err := opts.Expectations[i].Validate(); err != nil {
			return fmt.Errorf("expectations[%d]: %w", i, err)
		}
	}
	if opts.Vote {
		if _, err := schema.ParseStrategy(string(opts.Strategy)); err != nil {
			return err
		}
	}
	return nil
}

// Run executes Route, then optionally Telemetry and Vote, strictly in that
// order, and assembles the report. Remote failures never abort the run: a
// failed routing call degrades to a synthetic ERROR validation for that
// expectation, a failed telemetry or vote call leaves the corresponding
// report field absent. The returned error covers configuration defects
// only; the report itself is the error-carrying artifact.
func (o *Oracle) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	started := time.Now().UTC()
	report := &Report{
		RunID:       uuid.NewString(),
		StartedAt:   started,
		Validations: make([]Validation, 0, len(opts.Expectations)),
	}

	for _, exp := range opts.Expectations {
		validation, err := ValidateRouting(ctx, o.inv, exp)
		if err != nil {
			o.log.WithError(err).WithField("category", exp.Category).Warn("routing validation failed")
			report.Validations = append(report.Validations, failedValidation(exp))
			continue
		}
		o.log.WithFields(log.Fields{
			"category":    validation.Category,
			"recommended": validation.Recommended,
			"correct":     validation.Correct,
		}).Debug("routing validated")
		report.Validations = append(report.Validations, *validation)
	}
	report.Accuracy = Accuracy(report.Validations)

	if opts.Telemetry {
		snap, err := FetchTelemetry(ctx, o.inv)
		if err != nil {
			o.log.WithError(err).Warn("telemetry stage failed, omitting from report")
		} else {
			report.Telemetry = snap
		}
	}

	if opts.Vote {
		outcome, err := ScoreConsensus(ctx, o.inv, report.Validations, opts.Strategy)
		if err != nil {
			o.log.WithError(err).Warn("vote stage failed, omitting from report")
		} else {
			report.Vote = outcome
		}
	}

	report.DurationMs = time.Since(started).Milliseconds()
	o.log.WithFields(log.Fields{
		"run_id":   report.RunID,
		"accuracy": report.Accuracy,
		"misses":   len(Misrouted(report.Validations)),
	}).Info("oracle run complete")
	return report, nil
}
