package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zen-systems/routecheck/pkg/oracle"
)

// Format selects how a run report is rendered.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat maps a flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("format %q not supported (json, markdown, text)", s)
}

// Render produces the report in the requested format.
func Render(r *oracle.Report, format Format) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("report required")
	}
	switch format {
	case FormatJSON:
		return Encode(r)
	case FormatMarkdown:
		return []byte(renderMarkdown(r)), nil
	case FormatText:
		return []byte(renderText(r)), nil
	}
	return nil, fmt.Errorf("format %q not supported", format)
}

// Encode returns the canonical JSON form written to evidence directories.
func Encode(r *oracle.Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Parse reads a report back from its canonical JSON form.
func Parse(data []byte) (*oracle.Report, error) {
	var r oracle.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	if r.RunID == "" {
		return nil, fmt.Errorf("parse report: run_id missing")
	}
	return &r, nil
}

func renderMarkdown(r *oracle.Report) string {
	var b strings.Builder

	b.WriteString("# Routing Validation Report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- Started: %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %dms\n", r.DurationMs)
	fmt.Fprintf(&b, "- Accuracy: %s (%d/%d correct)\n",
		percent(r.Accuracy), countCorrect(r.Validations), len(r.Validations))

	if len(r.Validations) > 0 {
		b.WriteString("\n## Results\n\n")
		b.WriteString("| Category | Recommended | Expected | Result |\n")
		b.WriteString("|----------|-------------|----------|--------|\n")
		for _, v := range r.Validations {
			result := "WRONG"
			if v.Correct {
				result = "CORRECT"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", v.Category, v.Recommended, v.Expected, result)
		}
	}

	if missed := oracle.Misrouted(r.Validations); len(missed) > 0 {
		b.WriteString("\n## Misrouted\n\n")
		for _, v := range missed {
			fmt.Fprintf(&b, "- %s: recommended %s, expected %s\n", v.Category, v.Recommended, v.Expected)
			if v.Justification != "" {
				fmt.Fprintf(&b, "  - %s\n", v.Justification)
			}
		}
	}

	if r.Telemetry != nil {
		b.WriteString("\n## Telemetry\n\n")
		fmt.Fprintf(&b, "- Tasks observed: %d (%s success)\n",
			r.Telemetry.Overall.TotalTasks, percent(r.Telemetry.Overall.SuccessRate))
		fmt.Fprintf(&b, "- Exploration rate: %.2f\n", r.Telemetry.ExplorationRate)
		if r.Telemetry.Cold() {
			b.WriteString("- Learned mappings: none yet\n")
		}
		for _, m := range r.Telemetry.CategoryMappings {
			fmt.Fprintf(&b, "- %s routes to %s (confidence %.2f, n=%d)\n",
				m.Category, m.Recommended, m.Confidence, m.SampleSize)
		}
	}

	if r.Vote != nil {
		b.WriteString("\n## Consensus\n\n")
		fmt.Fprintf(&b, "- Decision: %s (%s, %.1f%% approval)\n",
			r.Vote.Decision, r.Vote.Strategy, r.Vote.ApprovalRate)
		fmt.Fprintf(&b, "- Counts: %d approve / %d reject / %d abstain / %d error\n",
			r.Vote.Counts.Approve, r.Vote.Counts.Reject, r.Vote.Counts.Abstain, r.Vote.Counts.Error)
		for _, v := range r.Vote.Votes {
			fmt.Fprintf(&b, "- %s: %s (confidence %.2f)", v.Role, v.Decision, v.Confidence)
			if v.Justification != "" {
				fmt.Fprintf(&b, ": %s", v.Justification)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderText(r *oracle.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "routing validation: %d/%d correct (%s)\n",
		countCorrect(r.Validations), len(r.Validations), percent(r.Accuracy))
	for _, v := range r.Validations {
		mark := "[FAIL]"
		if v.Correct {
			mark = "[PASS]"
		}
		fmt.Fprintf(&b, "  %s %s: recommended %s, expected %s\n", mark, v.Category, v.Recommended, v.Expected)
	}

	if r.Telemetry != nil {
		fmt.Fprintf(&b, "telemetry: %d tasks observed, %s success\n",
			r.Telemetry.Overall.TotalTasks, percent(r.Telemetry.Overall.SuccessRate))
	}
	if r.Vote != nil {
		fmt.Fprintf(&b, "consensus: %s (%.1f%% approval, %s)\n",
			r.Vote.Decision, r.Vote.ApprovalRate, r.Vote.Strategy)
	}

	return b.String()
}

// percent renders a 0..1 fraction for display.
func percent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

func countCorrect(validations []oracle.Validation) int {
	n := 0
	for _, v := range validations {
		if v.Correct {
			n++
		}
	}
	return n
}
