package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zen-systems/routecheck/pkg/schema"
)

// RouteRule maps task keywords onto a canned routing decision.
type RouteRule struct {
	Triggers []string
	Decision schema.RouteDecision
}

// SimInvoker is a deterministic in-process routing service for local runs
// and tests: canned routing rules, a fixed telemetry snapshot, and a
// scripted vote outcome. No I/O, stable output for a given input.
type SimInvoker struct {
	rules     []RouteRule
	fallback  schema.RouteDecision
	telemetry schema.TelemetrySnapshot
	vote      schema.VoteOutcome
	failures  map[string]error
}

// SimOption adjusts the simulated backend.
type SimOption func(*SimInvoker)

// WithRouteRule prepends a routing rule, so it wins over the defaults.
func WithRouteRule(decision schema.RouteDecision, triggers ...string) SimOption {
	return func(s *SimInvoker) {
		s.rules = append([]RouteRule{{Triggers: triggers, Decision: decision}}, s.rules...)
	}
}

// WithFallbackRoute replaces the decision used when no rule matches.
func WithFallbackRoute(decision schema.RouteDecision) SimOption {
	return func(s *SimInvoker) { s.fallback = decision }
}

// WithTelemetrySnapshot replaces the canned telemetry snapshot.
func WithTelemetrySnapshot(snapshot schema.TelemetrySnapshot) SimOption {
	return func(s *SimInvoker) { s.telemetry = snapshot }
}

// WithVoteOutcome replaces the scripted vote outcome. Proposal, strategy
// and the simulateVotes flag are still echoed from each request.
func WithVoteOutcome(outcome schema.VoteOutcome) SimOption {
	return func(s *SimInvoker) { s.vote = outcome }
}

// WithFailure makes every call to the named operation fail with err.
func WithFailure(op string, err error) SimOption {
	return func(s *SimInvoker) { s.failures[op] = err }
}

func NewSimInvoker(opts ...SimOption) *SimInvoker {
	s := &SimInvoker{
		rules:     defaultRouteRules(),
		fallback:  defaultFallbackDecision(),
		telemetry: defaultTelemetrySnapshot(),
		vote:      defaultVoteOutcome(),
		failures:  make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invoke resolves the operation against the canned tables.
func (s *SimInvoker) Invoke(ctx context.Context, op string, args map[string]any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := s.failures[op]; ok {
		return nil, err
	}

	switch op {
	case schema.OpRoute:
		return s.route(args)
	case schema.OpTelemetry:
		return s.snapshot()
	case schema.OpVote:
		return s.voteOn(args)
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func (s *SimInvoker) route(args map[string]any) (json.RawMessage, error) {
	task, _ := args["task"].(string)
	lowered := strings.ToLower(task)
	for _, rule := range s.rules {
		for _, trigger := range rule.Triggers {
			if strings.Contains(lowered, trigger) {
				return marshalDecision(rule.Decision)
			}
		}
	}
	return marshalDecision(s.fallback)
}

func marshalDecision(d schema.RouteDecision) (json.RawMessage, error) {
	if d.Alternatives == nil {
		d.Alternatives = []schema.Alternative{}
	}
	return marshalResult(d)
}

func (s *SimInvoker) snapshot() (json.RawMessage, error) {
	snap := s.telemetry
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = time.Now().UTC()
	}
	if snap.Models == nil {
		snap.Models = []schema.ModelStats{}
	}
	if snap.AdaptiveBonuses == nil {
		snap.AdaptiveBonuses = []schema.AdaptiveBonus{}
	}
	if snap.TierRecommendations == nil {
		snap.TierRecommendations = []schema.TierRecommendation{}
	}
	return marshalResult(snap)
}

func (s *SimInvoker) voteOn(args map[string]any) (json.RawMessage, error) {
	outcome := s.vote
	if proposal, ok := args["proposal"].(string); ok {
		outcome.Proposal = proposal
	}
	if strategy, ok := args["strategy"].(string); ok {
		outcome.Strategy = schema.VoteStrategy(strategy)
	}
	if simulate, ok := args["simulateVotes"].(bool); ok {
		outcome.SimulateVotes = simulate
	}
	if outcome.Votes == nil {
		outcome.Votes = []schema.ParticipantVote{}
	}
	return marshalResult(outcome)
}

func marshalResult(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode simulated result: %w", err)
	}
	return json.RawMessage(data), nil
}

func defaultRouteRules() []RouteRule {
	return []RouteRule{
		{
			Triggers: []string{"prove", "architecture", "system design", "deduce", "multi-step", "trade-off"},
			Decision: simDecision("claude-opus",
				"Deep multi-step reasoning favors the opus tier.",
				schema.CapabilityScores{Reasoning: 0.97, ContextWindow: 0.8, CodeGeneration: 0.85, Speed: 0.4, Cost: 0.3},
				3.2,
				schema.Alternative{Model: "gemini-pro", Score: 0.82, Tradeoff: "larger context, weaker reasoning"},
				schema.Alternative{Model: "codex", Score: 0.7, Tradeoff: "cheaper, code-centric"},
			),
		},
		{
			Triggers: []string{"summarize", "corpus", "entire repository", "across all", "large document"},
			Decision: simDecision("gemini-pro",
				"Million-token context window handles the full corpus in one pass.",
				schema.CapabilityScores{Reasoning: 0.82, ContextWindow: 0.98, CodeGeneration: 0.75, Speed: 0.6, Cost: 0.5},
				2.1,
				schema.Alternative{Model: "claude-opus", Score: 0.8, Tradeoff: "stronger reasoning, smaller window"},
			),
		},
		{
			Triggers: []string{"quick", "what is", "list", "one-liner", "lookup"},
			Decision: simDecision("gemini-flash",
				"Low-latency tier answers simple lookups fastest.",
				schema.CapabilityScores{Reasoning: 0.6, ContextWindow: 0.7, CodeGeneration: 0.55, Speed: 0.99, Cost: 0.95},
				0.2,
				schema.Alternative{Model: "claude-haiku", Score: 0.77, Tradeoff: "comparable speed, higher cost"},
			),
		},
		{
			Triggers: []string{"implement", "refactor", "write a function", "fix the bug", "unit tests"},
			Decision: simDecision("codex",
				"Code-specialized tier scores highest on generation benchmarks.",
				schema.CapabilityScores{Reasoning: 0.75, ContextWindow: 0.72, CodeGeneration: 0.96, Speed: 0.7, Cost: 0.6},
				1.4,
				schema.Alternative{Model: "claude-sonnet", Score: 0.84, Tradeoff: "better reasoning around the code"},
			),
		},
	}
}

func defaultFallbackDecision() schema.RouteDecision {
	return simDecision("claude-sonnet",
		"Balanced default when no capability dominates.",
		schema.CapabilityScores{Reasoning: 0.85, ContextWindow: 0.8, CodeGeneration: 0.85, Speed: 0.7, Cost: 0.6},
		1.0,
		schema.Alternative{Model: "gemini-pro", Score: 0.79, Tradeoff: "more context, less code skill"},
	)
}

func simDecision(model, justification string, scores schema.CapabilityScores, cost float64, alts ...schema.Alternative) schema.RouteDecision {
	return schema.RouteDecision{
		Recommended:   model,
		Justification: justification,
		Scores:        scores,
		EstimatedCost: cost,
		Alternatives:  alts,
	}
}

func defaultTelemetrySnapshot() schema.TelemetrySnapshot {
	return schema.TelemetrySnapshot{
		Overall: schema.OverallStats{TotalTasks: 48, SuccessRate: 0.94, AvgDurationMs: 1760},
		Models: []schema.ModelStats{
			{Model: "claude-opus", Tasks: 14, SuccessRate: 0.96, AvgDurationMs: 2450},
			{Model: "gemini-pro", Tasks: 11, SuccessRate: 0.93, AvgDurationMs: 1900},
			{Model: "gemini-flash", Tasks: 13, SuccessRate: 0.92, AvgDurationMs: 640},
			{Model: "codex", Tasks: 10, SuccessRate: 0.95, AvgDurationMs: 1500},
		},
		AdaptiveBonuses: []schema.AdaptiveBonus{
			{Category: "complex-reasoning", Model: "claude-opus", Bonus: 0.12, SampleSize: 14},
			{Category: "code-generation", Model: "codex", Bonus: 0.09, SampleSize: 10},
		},
		TierRecommendations: []schema.TierRecommendation{
			{Tier: "powerful", Model: "claude-opus", Reason: "highest success rate on hard tasks"},
			{Tier: "fast", Model: "gemini-flash", Reason: "lowest latency at acceptable quality"},
		},
		LearningInsights: []string{
			"claude-opus holds a growing bonus on complex-reasoning",
			"gemini-flash latency stable under load",
		},
		CategoryMappings: []schema.CategoryMapping{
			{Category: "complex-reasoning", Recommended: "claude-opus", Confidence: 0.92, SampleSize: 14},
			{Category: "large-context", Recommended: "gemini-pro", Confidence: 0.88, SampleSize: 11},
			{Category: "quick-answers", Recommended: "gemini-flash", Confidence: 0.9, SampleSize: 13},
			{Category: "code-generation", Recommended: "codex", Confidence: 0.91, SampleSize: 10},
		},
		ExplorationRate:    0.1,
		ColdStartThreshold: 5,
	}
}

func defaultVoteOutcome() schema.VoteOutcome {
	return schema.VoteOutcome{
		Strategy:     schema.StrategySimpleMajority,
		Decision:     schema.DecisionApproved,
		ApprovalRate: 100,
		Counts:       schema.VoteCounts{Approve: 3},
		Votes: []schema.ParticipantVote{
			{Role: "architect", Decision: schema.DecisionApproved, Confidence: 0.9, Justification: "accuracy holds across categories"},
			{Role: "reviewer", Decision: schema.DecisionApproved, Confidence: 0.85, Justification: "no unexplained misroutes"},
			{Role: "operator", Decision: schema.DecisionApproved, Confidence: 0.8, Justification: "latency within budget"},
		},
		DurationMs: 240,
	}
}
