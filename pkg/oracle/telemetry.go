package oracle

import (
	"context"
	"fmt"

	"github.com/zen-systems/routecheck/pkg/remote"
	"github.com/zen-systems/routecheck/pkg/schema"
)

// FetchTelemetry requests the performance snapshot with adaptive-learning
// detail included. The snapshot is contextual evidence for the report, not
// a correctness signal.
func FetchTelemetry(ctx context.Context, inv remote.Invoker) (*schema.TelemetrySnapshot, error) {
	req := schema.TelemetryRequest{IncludeAdaptive: true}
	raw, err := inv.Invoke(ctx, schema.OpTelemetry, req.Args())
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	snap, err := schema.DecodeTelemetrySnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return snap, nil
}

// SnapshotConfirms reports whether the snapshot's learned mappings agree
// with an expectation: true only when some mapping for the category
// recommends exactly the expected destination. A cold snapshot or a
// category with no mapping yields false. Pure function over fetched data;
// never calls the boundary.
func SnapshotConfirms(snap *schema.TelemetrySnapshot, category, expected string) bool {
	if snap == nil {
		return false
	}
	for _, m := range snap.CategoryMappings {
		if m.Category == category && m.Recommended == expected {
			return true
		}
	}
	return false
}
