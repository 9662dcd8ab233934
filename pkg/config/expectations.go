package config

import (
	"fmt"
	"strings"

	"github.com/zen-systems/routecheck/pkg/schema"
)

// Task categories the default fixtures cover. The set is closed at
// configuration time; one expectation per category under test.
const (
	CategoryComplexReasoning = "complex-reasoning"
	CategoryLargeContext     = "large-context"
	CategoryQuickAnswers     = "quick-answers"
	CategoryCodeGeneration   = "code-generation"
)

// Expectation is a known-good category to destination mapping used as
// ground truth for validation. Immutable after load.
type Expectation struct {
	Category   string            `yaml:"category" json:"category"`
	Task       string            `yaml:"task" json:"task"`
	Prefer     schema.Capability `yaml:"prefer" json:"prefer"`
	Expected   string            `yaml:"expected" json:"expected"`
	Acceptable []string          `yaml:"acceptable" json:"acceptable"`
}

func (e *Expectation) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return fmt.Errorf("category required")
	}
	if strings.TrimSpace(e.Task) == "" {
		return fmt.Errorf("task required")
	}
	if _, err := schema.ParseCapability(string(e.Prefer)); err != nil {
		return err
	}
	if strings.TrimSpace(e.Expected) == "" {
		return fmt.Errorf("expected destination required")
	}
	if len(e.Acceptable) == 0 {
		return fmt.Errorf("acceptable set must not be empty")
	}
	for i, model := range e.Acceptable {
		if strings.TrimSpace(model) == "" {
			return fmt.Errorf("acceptable[%d]: model required", i)
		}
	}
	return nil
}

// DefaultExpectations returns the built-in fixture set, one per category.
func DefaultExpectations() []Expectation {
	return []Expectation{
		{
			Category:   CategoryComplexReasoning,
			Task:       "Prove that the retry scheduler always terminates and analyze its failure modes",
			Prefer:     schema.CapabilityReasoning,
			Expected:   "claude",
			Acceptable: []string{"claude", "claude-opus", "claude-sonnet"},
		},
		{
			Category:   CategoryLargeContext,
			Task:       "Summarize the design decisions made across the entire repository history",
			Prefer:     schema.CapabilityContext,
			Expected:   "gemini",
			Acceptable: []string{"gemini", "gemini-pro"},
		},
		{
			Category:   CategoryQuickAnswers,
			Task:       "Quick lookup: what is the default telemetry port?",
			Prefer:     schema.CapabilitySpeed,
			Expected:   "gemini-flash",
			Acceptable: []string{"gemini-flash", "claude-haiku"},
		},
		{
			Category:   CategoryCodeGeneration,
			Task:       "Implement a streaming JSON parser with unit tests",
			Prefer:     schema.CapabilityCode,
			Expected:   "codex",
			Acceptable: []string{"codex", "gpt-5-codex", "claude-sonnet"},
		},
	}
}
