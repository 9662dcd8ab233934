package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/zen-systems/routecheck/pkg/config"
	"github.com/zen-systems/routecheck/pkg/remote"
	"github.com/zen-systems/routecheck/pkg/schema"
)

// recordingInvoker captures the operation sequence and delegates to handler.
type recordingInvoker struct {
	ops     []string
	handler func(op string, args map[string]any) (json.RawMessage, error)
}

func (r *recordingInvoker) Invoke(ctx context.Context, op string, args map[string]any) (json.RawMessage, error) {
	r.ops = append(r.ops, op)
	return r.handler(op, args)
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func threeExpectations() []config.Expectation {
	return []config.Expectation{
		{
			Category:   "complex-reasoning",
			Task:       "Prove the scheduler terminates",
			Prefer:     schema.CapabilityReasoning,
			Expected:   "claude",
			Acceptable: []string{"claude", "claude-opus"},
		},
		{
			Category:   "code-generation",
			Task:       "Implement a streaming parser",
			Prefer:     schema.CapabilityCode,
			Expected:   "codex",
			Acceptable: []string{"codex"},
		},
		{
			Category:   "quick-answers",
			Task:       "Quick lookup: default port?",
			Prefer:     schema.CapabilitySpeed,
			Expected:   "gemini-flash",
			Acceptable: []string{"gemini-flash"},
		},
	}
}

// serveAll answers every operation with a healthy canned payload.
func serveAll(t *testing.T, model string) func(op string, args map[string]any) (json.RawMessage, error) {
	t.Helper()
	return func(op string, args map[string]any) (json.RawMessage, error) {
		switch op {
		case schema.OpRoute:
			return routePayload(model), nil
		case schema.OpTelemetry:
			return json.RawMessage(telemetryPayload), nil
		case schema.OpVote:
			proposal, _ := args["proposal"].(string)
			return voteOutcomePayload(t, proposal, schema.StrategySimpleMajority), nil
		default:
			return nil, errors.New("unknown operation")
		}
	}
}

func TestNewRequiresInvoker(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Errorf("New(nil) error = nil, want invoker required")
	}
}

func TestRunSingleExpectation(t *testing.T) {
	rec := &recordingInvoker{handler: serveAll(t, "claude-opus")}
	o, err := New(rec, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := o.Run(context.Background(), RunOptions{
		Expectations: []config.Expectation{reasoningExpectation()},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(rec.ops) != 1 || rec.ops[0] != schema.OpRoute {
		t.Errorf("operations = %v, want exactly one %q", rec.ops, schema.OpRoute)
	}
	if len(report.Validations) != 1 {
		t.Fatalf("len(Validations) = %d, want 1", len(report.Validations))
	}
	if !report.Validations[0].Correct {
		t.Errorf("Validations[0].Correct = false, want true")
	}
	if report.Accuracy != 1.0 {
		t.Errorf("Accuracy = %v, want 1.0", report.Accuracy)
	}
	if report.Telemetry != nil {
		t.Errorf("Telemetry = %+v, want nil when not requested", report.Telemetry)
	}
	if report.Vote != nil {
		t.Errorf("Vote = %+v, want nil when not requested", report.Vote)
	}
	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Errorf("RunID = %q, want a UUID: %v", report.RunID, err)
	}
	if report.StartedAt.IsZero() {
		t.Errorf("StartedAt is zero")
	}
	if report.StartedAt.Location() != time.UTC {
		t.Errorf("StartedAt location = %v, want UTC", report.StartedAt.Location())
	}
	if report.DurationMs < 0 {
		t.Errorf("DurationMs = %d, want >= 0", report.DurationMs)
	}
}

func TestRunStageOrder(t *testing.T) {
	rec := &recordingInvoker{handler: serveAll(t, "claude-opus")}
	o, _ := New(rec, WithLogger(quietLogger()))

	report, err := o.Run(context.Background(), RunOptions{
		Expectations: []config.Expectation{reasoningExpectation(), reasoningExpectation()},
		Telemetry:    true,
		Vote:         true,
		Strategy:     schema.StrategySimpleMajority,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantOps := []string{schema.OpRoute, schema.OpRoute, schema.OpTelemetry, schema.OpVote}
	if !reflect.DeepEqual(rec.ops, wantOps) {
		t.Errorf("operations = %v, want %v", rec.ops, wantOps)
	}
	if report.Telemetry == nil {
		t.Errorf("Telemetry = nil, want snapshot")
	}
	if report.Vote == nil {
		t.Fatalf("Vote = nil, want outcome")
	}
	if !strings.HasPrefix(report.Vote.Proposal, "Routing validation accuracy:") {
		t.Errorf("Vote.Proposal = %q, want accuracy headline prefix", report.Vote.Proposal)
	}
}

func TestRunAccuracyRounding(t *testing.T) {
	rec := &recordingInvoker{handler: func(op string, args map[string]any) (json.RawMessage, error) {
		task, _ := args["task"].(string)
		switch {
		case strings.HasPrefix(task, "Prove"):
			return routePayload("claude-opus"), nil
		case strings.HasPrefix(task, "Implement"):
			return routePayload("codex"), nil
		default:
			return routePayload("claude-sonnet"), nil
		}
	}}
	o, _ := New(rec, WithLogger(quietLogger()))

	report, err := o.Run(context.Background(), RunOptions{Expectations: threeExpectations()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Accuracy != 0.667 {
		t.Errorf("Accuracy = %v, want 0.667", report.Accuracy)
	}
	missed := Misrouted(report.Validations)
	if len(missed) != 1 {
		t.Fatalf("len(Misrouted()) = %d, want 1", len(missed))
	}
	if missed[0].Category != "quick-answers" {
		t.Errorf("Misrouted()[0].Category = %q, want quick-answers", missed[0].Category)
	}
	if missed[0].Recommended != "claude-sonnet" {
		t.Errorf("Misrouted()[0].Recommended = %q, want claude-sonnet", missed[0].Recommended)
	}
}

func TestRunAllCallsFail(t *testing.T) {
	rec := &recordingInvoker{handler: func(op string, args map[string]any) (json.RawMessage, error) {
		return nil, errors.New("backend down")
	}}
	o, _ := New(rec, WithLogger(quietLogger()))

	report, err := o.Run(context.Background(), RunOptions{
		Expectations: []config.Expectation{reasoningExpectation()},
		Telemetry:    true,
		Vote:         true,
		Strategy:     schema.StrategySimpleMajority,
	})
	if err != nil {
		t.Fatalf("Run() error = %v, remote failures must not abort the run", err)
	}

	if len(report.Validations) != 1 {
		t.Fatalf("len(Validations) = %d, want 1", len(report.Validations))
	}
	got := report.Validations[0]
	if got.Recommended != ErrorMarker {
		t.Errorf("Recommended = %q, want %q", got.Recommended, ErrorMarker)
	}
	if got.Justification != "Tool call failed" {
		t.Errorf("Justification = %q, want %q", got.Justification, "Tool call failed")
	}
	if got.Correct {
		t.Errorf("Correct = true, want false for failed call")
	}
	if report.Accuracy != 0 {
		t.Errorf("Accuracy = %v, want 0", report.Accuracy)
	}
	if report.Telemetry != nil {
		t.Errorf("Telemetry = %+v, want nil after failed stage", report.Telemetry)
	}
	if report.Vote != nil {
		t.Errorf("Vote = %+v, want nil after failed stage", report.Vote)
	}
}

func TestRunFaultIsolation(t *testing.T) {
	rec := &recordingInvoker{handler: func(op string, args map[string]any) (json.RawMessage, error) {
		task, _ := args["task"].(string)
		switch {
		case strings.HasPrefix(task, "Implement"):
			return nil, errors.New("router crashed on this one")
		case strings.HasPrefix(task, "Prove"):
			return routePayload("claude-opus"), nil
		default:
			return routePayload("gemini-flash"), nil
		}
	}}
	o, _ := New(rec, WithLogger(quietLogger()))

	report, err := o.Run(context.Background(), RunOptions{Expectations: threeExpectations()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Validations) != 3 {
		t.Fatalf("len(Validations) = %d, want 3", len(report.Validations))
	}
	if !report.Validations[0].Correct || !report.Validations[2].Correct {
		t.Errorf("surrounding validations affected by isolated failure: %+v", report.Validations)
	}
	if report.Validations[1].Recommended != ErrorMarker {
		t.Errorf("Validations[1].Recommended = %q, want %q", report.Validations[1].Recommended, ErrorMarker)
	}
	if report.Accuracy != 0.667 {
		t.Errorf("Accuracy = %v, want 0.667", report.Accuracy)
	}
}

func TestRunTelemetryFailureKeepsVote(t *testing.T) {
	base := serveAll(t, "claude-opus")
	rec := &recordingInvoker{handler: func(op string, args map[string]any) (json.RawMessage, error) {
		if op == schema.OpTelemetry {
			return nil, errors.New("telemetry store offline")
		}
		return base(op, args)
	}}
	o, _ := New(rec, WithLogger(quietLogger()))

	report, err := o.Run(context.Background(), RunOptions{
		Expectations: []config.Expectation{reasoningExpectation()},
		Telemetry:    true,
		Vote:         true,
		Strategy:     schema.StrategyUnanimous,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Telemetry != nil {
		t.Errorf("Telemetry = %+v, want nil after failed stage", report.Telemetry)
	}
	if report.Vote == nil {
		t.Errorf("Vote = nil, want outcome despite telemetry failure")
	}
}

func TestRunVoteFailureKeepsTelemetry(t *testing.T) {
	base := serveAll(t, "claude-opus")
	rec := &recordingInvoker{handler: func(op string, args map[string]any) (json.RawMessage, error) {
		if op == schema.OpVote {
			return nil, errors.New("quorum never formed")
		}
		return base(op, args)
	}}
	o, _ := New(rec, WithLogger(quietLogger()))

	report, err := o.Run(context.Background(), RunOptions{
		Expectations: []config.Expectation{reasoningExpectation()},
		Telemetry:    true,
		Vote:         true,
		Strategy:     schema.StrategySimpleMajority,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Telemetry == nil {
		t.Errorf("Telemetry = nil, want snapshot despite vote failure")
	}
	if report.Vote != nil {
		t.Errorf("Vote = %+v, want nil after failed stage", report.Vote)
	}
}

func TestRunInvalidStrategy(t *testing.T) {
	rec := &recordingInvoker{handler: serveAll(t, "claude-opus")}
	o, _ := New(rec, WithLogger(quietLogger()))

	_, err := o.Run(context.Background(), RunOptions{
		Expectations: []config.Expectation{reasoningExpectation()},
		Vote:         true,
		Strategy:     "plurality",
	})
	if err == nil {
		t.Fatalf("Run() error = nil, want strategy rejection")
	}
	if len(rec.ops) != 0 {
		t.Errorf("operations = %v, want none before config validation", rec.ops)
	}
}

func TestRunInvalidExpectation(t *testing.T) {
	rec := &recordingInvoker{handler: serveAll(t, "claude-opus")}
	o, _ := New(rec, WithLogger(quietLogger()))

	bad := reasoningExpectation()
	bad.Category = ""
	_, err := o.Run(context.Background(), RunOptions{Expectations: []config.Expectation{bad}})
	if err == nil {
		t.Fatalf("Run() error = nil, want expectation rejection")
	}
	if !strings.Contains(err.Error(), "expectations[0]") {
		t.Errorf("Run() error = %v, want index in message", err)
	}
	if len(rec.ops) != 0 {
		t.Errorf("operations = %v, want none before config validation", rec.ops)
	}
}

func TestRunEmptyExpectations(t *testing.T) {
	rec := &recordingInvoker{handler: serveAll(t, "claude-opus")}
	o, _ := New(rec, WithLogger(quietLogger()))

	report, err := o.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Validations) != 0 {
		t.Errorf("len(Validations) = %d, want 0", len(report.Validations))
	}
	if report.Accuracy != 0 {
		t.Errorf("Accuracy = %v, want 0 for empty set", report.Accuracy)
	}
	if len(rec.ops) != 0 {
		t.Errorf("operations = %v, want none", rec.ops)
	}
}

func TestRunAgainstSim(t *testing.T) {
	o, err := New(remote.NewSimInvoker(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := o.Run(context.Background(), RunOptions{
		Expectations: config.DefaultExpectations(),
		Telemetry:    true,
		Vote:         true,
		Strategy:     schema.StrategySimpleMajority,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Accuracy != 1.0 {
		t.Errorf("Accuracy = %v, want 1.0 against the built-in tables", report.Accuracy)
	}
	for _, v := range report.Validations {
		if !v.Correct {
			t.Errorf("validation %s incorrect: recommended %q, expected %q", v.Category, v.Recommended, v.Expected)
		}
	}
	if report.Telemetry == nil {
		t.Fatalf("Telemetry = nil, want snapshot")
	}
	if !SnapshotConfirms(report.Telemetry, "complex-reasoning", "claude-opus") {
		t.Errorf("SnapshotConfirms(complex-reasoning, claude-opus) = false, want true")
	}
	if report.Vote == nil {
		t.Fatalf("Vote = nil, want outcome")
	}
	if report.Vote.Decision != schema.DecisionApproved {
		t.Errorf("Vote.Decision = %q, want %q", report.Vote.Decision, schema.DecisionApproved)
	}
	if !strings.HasPrefix(report.Vote.Proposal, "Routing validation accuracy: 100% (4/4 correct).") {
		t.Errorf("Vote.Proposal = %q, want full-marks headline", report.Vote.Proposal)
	}
	if report.Vote.SimulateVotes {
		t.Errorf("Vote.SimulateVotes = true, want false echo")
	}
}
