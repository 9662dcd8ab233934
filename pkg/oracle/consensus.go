package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/routecheck/pkg/remote"
	"github.com/zen-systems/routecheck/pkg/schema"
)

// BuildProposal renders the deterministic proposal text put to the vote:
// an accuracy headline, one verdict line per validation, and a closing
// approval question.
func BuildProposal(validations []Validation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Routing validation accuracy: %d%% (%d/%d correct).\n",
		accuracyPercent(validations), correctCount(validations), len(validations))

	if len(validations) > 0 {
		b.WriteString("\n")
	}
	for _, v := range validations {
		verdict := "WRONG"
		if v.Correct {
			verdict = "CORRECT"
		}
		fmt.Fprintf(&b, "- %s: %s: recommended %s, expected %s\n",
			v.Category, verdict, v.Recommended, v.Expected)
	}

	b.WriteString("\nShould this routing quality be approved?")
	return b.String()
}

// ScoreConsensus submits the validations' proposal for a multi-party vote
// under the given strategy and returns the validated outcome. The two
// execution hints ask for a fast, non-simulated vote. A proposal over the
// service's length bound fails here like any other call failure.
func ScoreConsensus(ctx context.Context, inv remote.Invoker, validations []Validation, strategy schema.VoteStrategy) (*schema.VoteOutcome, error) {
	req := schema.VoteRequest{
		Proposal:      BuildProposal(validations),
		Strategy:      strategy,
		QuickMode:     true,
		SimulateVotes: false,
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("vote request: %w", err)
	}

	raw, err := inv.Invoke(ctx, schema.OpVote, req.Args())
	if err != nil {
		return nil, fmt.Errorf("vote: %w", err)
	}
	outcome, err := schema.DecodeVoteOutcome(raw)
	if err != nil {
		return nil, fmt.Errorf("vote: %w", err)
	}
	return outcome, nil
}
