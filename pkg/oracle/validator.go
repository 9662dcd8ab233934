package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/routecheck/pkg/config"
	"github.com/zen-systems/routecheck/pkg/remote"
	"github.com/zen-systems/routecheck/pkg/schema"
)

// ErrorMarker is recorded as the recommendation when a routing call
// produced no usable result.
const ErrorMarker = "ERROR"

// failureJustification is the fixed justification on synthetic validations.
const failureJustification = "Tool call failed"

// Validation is the outcome of checking one expectation. Created once per
// expectation per run, immutable after creation.
type Validation struct {
	Category      string   `json:"category"`
	Recommended   string   `json:"recommended"`
	Expected      string   `json:"expected"`
	Correct       bool     `json:"correct"`
	Justification string   `json:"justification"`
	Alternatives  []string `json:"alternatives,omitempty"`
}

// ValidateRouting issues one routing call for the expectation and scores
// the returned recommendation against the acceptable set. Transport and
// shape failures come back as errors; there is no retry.
func ValidateRouting(ctx context.Context, inv remote.Invoker, exp config.Expectation) (*Validation, error) {
	req := schema.RouteRequest{Task: exp.Task, Prefer: exp.Prefer}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("route %s: %w", exp.Category, err)
	}

	raw, err := inv.Invoke(ctx, schema.OpRoute, req.Args())
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", exp.Category, err)
	}
	decision, err := schema.DecodeRouteDecision(raw)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", exp.Category, err)
	}

	return &Validation{
		Category:      exp.Category,
		Recommended:   decision.Recommended,
		Expected:      exp.Expected,
		Correct:       destinationMatches(decision.Recommended, exp.Acceptable),
		Justification: decision.Justification,
		Alternatives:  decision.AlternativeModels(),
	}, nil
}

// destinationMatches applies the bidirectional substring rule: a
// recommendation is correct when it contains, or is contained by, any
// acceptable model. Versioned names match their family under this rule,
// and so do unrelated names that happen to nest.
func destinationMatches(recommended string, acceptable []string) bool {
	for _, model := range acceptable {
		if strings.Contains(recommended, model) || strings.Contains(model, recommended) {
			return true
		}
	}
	return false
}

// failedValidation is the synthetic record for an expectation whose
// routing call failed.
func failedValidation(exp config.Expectation) Validation {
	return Validation{
		Category:      exp.Category,
		Recommended:   ErrorMarker,
		Expected:      exp.Expected,
		Correct:       false,
		Justification: failureJustification,
	}
}
