package schema

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// Operation names understood by the routing service.
	OpRoute     = "route"
	OpTelemetry = "telemetry"
	OpVote      = "vote"

	// MaxProposalChars is enforced by the voting service contract; longer
	// proposals are rejected before send.
	MaxProposalChars = 4000
)

type Capability string

const (
	CapabilityReasoning Capability = "reasoning"
	CapabilityContext   Capability = "context"
	CapabilitySpeed     Capability = "speed"
	CapabilityCode      Capability = "code"
)

// ParseCapability maps a config string onto the capability enum.
func ParseCapability(value string) (Capability, error) {
	c := Capability(value)
	if !isCapabilityAllowed(c) {
		return "", fmt.Errorf("capability %q not allowed", value)
	}
	return c, nil
}

type VoteStrategy string

const (
	StrategySimpleMajority  VoteStrategy = "simple-majority"
	StrategySupermajority   VoteStrategy = "supermajority"
	StrategyUnanimous       VoteStrategy = "unanimous"
	StrategyProofOfLearning VoteStrategy = "proof-of-learning"
	StrategyHigherOrder     VoteStrategy = "higher-order"
)

// ParseStrategy maps a config string onto the strategy enum.
func ParseStrategy(value string) (VoteStrategy, error) {
	s := VoteStrategy(value)
	if !isStrategyAllowed(s) {
		return "", fmt.Errorf("vote strategy %q not allowed", value)
	}
	return s, nil
}

// Strategies lists every vote strategy the service accepts.
func Strategies() []VoteStrategy {
	return []VoteStrategy{
		StrategySimpleMajority,
		StrategySupermajority,
		StrategyUnanimous,
		StrategyProofOfLearning,
		StrategyHigherOrder,
	}
}

type VoteDecision string

const (
	DecisionApproved VoteDecision = "approved"
	DecisionRejected VoteDecision = "rejected"
	DecisionPending  VoteDecision = "pending"
	DecisionTimeout  VoteDecision = "timeout"
)

// === Route ===

type RouteRequest struct {
	Task   string     `json:"task"`
	Prefer Capability `json:"prefer"`
}

func (r *RouteRequest) Validate() error {
	if strings.TrimSpace(r.Task) == "" {
		return fmt.Errorf("route task required")
	}
	if !isCapabilityAllowed(r.Prefer) {
		return fmt.Errorf("route capability %q not allowed", r.Prefer)
	}
	return nil
}

// Args renders the request as the argument map the invocation boundary takes.
func (r *RouteRequest) Args() map[string]any {
	return map[string]any{
		"task":   r.Task,
		"prefer": string(r.Prefer),
	}
}

type CapabilityScores struct {
	Reasoning      float64 `json:"reasoning"`
	ContextWindow  float64 `json:"contextWindow"`
	CodeGeneration float64 `json:"codeGeneration"`
	Speed          float64 `json:"speed"`
	Cost           float64 `json:"cost"`
}

type Alternative struct {
	Model    string  `json:"model"`
	Score    float64 `json:"score"`
	Tradeoff string  `json:"tradeoff,omitempty"`
}

type RouteDecision struct {
	Recommended   string           `json:"recommended"`
	Justification string           `json:"justification"`
	Scores        CapabilityScores `json:"scores"`
	EstimatedCost float64          `json:"estimatedCost"`
	Alternatives  []Alternative    `json:"alternatives"`
	Governance    map[string]any   `json:"governance,omitempty"`
}

func (d *RouteDecision) Validate() error {
	if strings.TrimSpace(d.Recommended) == "" {
		return fmt.Errorf("route recommended required")
	}
	if d.EstimatedCost < 0 {
		return fmt.Errorf("route estimatedCost negative")
	}
	for i := range d.Alternatives {
		if strings.TrimSpace(d.Alternatives[i].Model) == "" {
			return fmt.Errorf("alternatives[%d]: model required", i)
		}
	}
	return nil
}

// AlternativeModels flattens the ranked alternatives to bare model names,
// dropping scores and tradeoff text.
func (d *RouteDecision) AlternativeModels() []string {
	if len(d.Alternatives) == 0 {
		return nil
	}
	models := make([]string, 0, len(d.Alternatives))
	for _, alt := range d.Alternatives {
		models = append(models, alt.Model)
	}
	return models
}

// === Telemetry ===

type TelemetryRequest struct {
	IncludeAdaptive bool `json:"includeAdaptive"`
}

func (r *TelemetryRequest) Args() map[string]any {
	return map[string]any{
		"includeAdaptive": r.IncludeAdaptive,
	}
}

type OverallStats struct {
	TotalTasks    int     `json:"totalTasks"`
	SuccessRate   float64 `json:"successRate"`
	AvgDurationMs float64 `json:"avgDurationMs"`
}

type ModelStats struct {
	Model         string  `json:"model"`
	Tasks         int     `json:"tasks"`
	SuccessRate   float64 `json:"successRate"`
	AvgDurationMs float64 `json:"avgDurationMs"`
}

type AdaptiveBonus struct {
	Category   string  `json:"category"`
	Model      string  `json:"model"`
	Bonus      float64 `json:"bonus"`
	SampleSize int     `json:"sampleSize"`
}

type TierRecommendation struct {
	Tier   string `json:"tier"`
	Model  string `json:"model"`
	Reason string `json:"reason,omitempty"`
}

type CategoryMapping struct {
	Category    string  `json:"category"`
	Recommended string  `json:"recommended"`
	Confidence  float64 `json:"confidence"`
	SampleSize  int     `json:"sampleSize"`
}

type TelemetrySnapshot struct {
	Overall             OverallStats         `json:"overall"`
	Models              []ModelStats         `json:"models"`
	AdaptiveBonuses     []AdaptiveBonus      `json:"adaptiveBonuses"`
	TierRecommendations []TierRecommendation `json:"tierRecommendations"`
	LearningInsights    []string             `json:"learningInsights,omitempty"`
	CategoryMappings    []CategoryMapping    `json:"categoryMappings,omitempty"`
	ExplorationRate     float64              `json:"explorationRate"`
	ColdStartThreshold  int                  `json:"coldStartThreshold"`
	CollectedAt         time.Time            `json:"collectedAt"`
}

func (t *TelemetrySnapshot) Validate() error {
	if t.Overall.TotalTasks < 0 {
		return fmt.Errorf("telemetry totalTasks negative")
	}
	if t.Overall.SuccessRate < 0 || t.Overall.SuccessRate > 1 {
		return fmt.Errorf("telemetry successRate out of range")
	}
	for i := range t.Models {
		if strings.TrimSpace(t.Models[i].Model) == "" {
			return fmt.Errorf("models[%d]: model required", i)
		}
		if t.Models[i].Tasks < 0 {
			return fmt.Errorf("models[%d]: tasks negative", i)
		}
	}
	for i := range t.CategoryMappings {
		m := &t.CategoryMappings[i]
		if strings.TrimSpace(m.Category) == "" {
			return fmt.Errorf("categoryMappings[%d]: category required", i)
		}
		if strings.TrimSpace(m.Recommended) == "" {
			return fmt.Errorf("categoryMappings[%d]: recommended required", i)
		}
		if m.Confidence < 0 || m.Confidence > 1 {
			return fmt.Errorf("categoryMappings[%d]: confidence out of range", i)
		}
		if m.SampleSize < 0 {
			return fmt.Errorf("categoryMappings[%d]: sampleSize negative", i)
		}
	}
	if t.ExplorationRate < 0 || t.ExplorationRate > 1 {
		return fmt.Errorf("telemetry explorationRate out of range")
	}
	if t.ColdStartThreshold < 0 {
		return fmt.Errorf("telemetry coldStartThreshold negative")
	}
	if t.CollectedAt.IsZero() {
		return fmt.Errorf("telemetry collectedAt required")
	}
	return nil
}

// Cold reports whether the snapshot was taken before the service observed
// any tasks.
func (t *TelemetrySnapshot) Cold() bool {
	return t.Overall.TotalTasks == 0 && len(t.CategoryMappings) == 0
}

// === Vote ===

type VoteRequest struct {
	Proposal      string       `json:"proposal"`
	Strategy      VoteStrategy `json:"strategy"`
	QuickMode     bool         `json:"quickMode"`
	SimulateVotes bool         `json:"simulateVotes"`
}

func (r *VoteRequest) Validate() error {
	n := utf8.RuneCountInString(r.Proposal)
	if n == 0 {
		return fmt.Errorf("vote proposal required")
	}
	if n > MaxProposalChars {
		return fmt.Errorf("vote proposal exceeds %d chars", MaxProposalChars)
	}
	if !isStrategyAllowed(r.Strategy) {
		return fmt.Errorf("vote strategy %q not allowed", r.Strategy)
	}
	return nil
}

func (r *VoteRequest) Args() map[string]any {
	return map[string]any{
		"proposal":      r.Proposal,
		"strategy":      string(r.Strategy),
		"quickMode":     r.QuickMode,
		"simulateVotes": r.SimulateVotes,
	}
}

type VoteCounts struct {
	Approve int `json:"approve"`
	Reject  int `json:"reject"`
	Abstain int `json:"abstain"`
	Error   int `json:"error"`
}

type ParticipantVote struct {
	Role          string       `json:"role"`
	Decision      VoteDecision `json:"decision"`
	Confidence    float64      `json:"confidence"`
	Justification string       `json:"justification,omitempty"`
	Simulated     bool         `json:"simulated"`
	Error         bool         `json:"error"`
}

type VoteOutcome struct {
	Proposal      string            `json:"proposal"`
	Strategy      VoteStrategy      `json:"strategy"`
	Decision      VoteDecision      `json:"decision"`
	ApprovalRate  float64           `json:"approvalRate"`
	Counts        VoteCounts        `json:"counts"`
	Votes         []ParticipantVote `json:"votes"`
	DurationMs    float64           `json:"durationMs"`
	SimulateVotes bool              `json:"simulateVotes"`
}

func (v *VoteOutcome) Validate() error {
	if strings.TrimSpace(v.Proposal) == "" {
		return fmt.Errorf("vote proposal required")
	}
	if !isStrategyAllowed(v.Strategy) {
		return fmt.Errorf("vote strategy %q not allowed", v.Strategy)
	}
	if !isDecisionAllowed(v.Decision) {
		return fmt.Errorf("vote decision %q not allowed", v.Decision)
	}
	if v.ApprovalRate < 0 || v.ApprovalRate > 100 {
		return fmt.Errorf("vote approvalRate out of range")
	}
	if v.Counts.Approve < 0 || v.Counts.Reject < 0 || v.Counts.Abstain < 0 || v.Counts.Error < 0 {
		return fmt.Errorf("vote counts negative")
	}
	for i := range v.Votes {
		if strings.TrimSpace(v.Votes[i].Role) == "" {
			return fmt.Errorf("votes[%d]: role required", i)
		}
		if !isDecisionAllowed(v.Votes[i].Decision) {
			return fmt.Errorf("votes[%d]: decision %q not allowed", i, v.Votes[i].Decision)
		}
		if v.Votes[i].Confidence < 0 || v.Votes[i].Confidence > 1 {
			return fmt.Errorf("votes[%d]: confidence out of range", i)
		}
	}
	if v.DurationMs < 0 {
		return fmt.Errorf("vote durationMs negative")
	}
	return nil
}

func isCapabilityAllowed(c Capability) bool {
	switch c {
	case CapabilityReasoning, CapabilityContext, CapabilitySpeed, CapabilityCode:
		return true
	default:
		return false
	}
}

func isStrategyAllowed(s VoteStrategy) bool {
	switch s {
	case StrategySimpleMajority, StrategySupermajority, StrategyUnanimous,
		StrategyProofOfLearning, StrategyHigherOrder:
		return true
	default:
		return false
	}
}

func isDecisionAllowed(d VoteDecision) bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionPending, DecisionTimeout:
		return true
	default:
		return false
	}
}
