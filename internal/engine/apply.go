package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/treedit/internal/logging"
	"github.com/danieljhkim/treedit/internal/planner"
)

// Apply plans an edited listing and executes it.
//
// Algorithm steps:
// 1. Build the plan (all planning errors happen here)
// 2. Refuse conflicting plans unless forced
// 3. Stop after planning for DryRun
// 4. Ask for confirmation
// 5. Execute sequentially
// 6. Drop the consumed snapshot
func (e *Engine) Apply(ctx context.Context, req *ApplyRequest) (*ApplyResult, error) {
	done := logging.LogOperationStart(e.logger, "apply")
	defer done()

	plan, err := e.Plan(ctx, &PlanRequest{Listing: req.Listing})
	if err != nil {
		return nil, err
	}
	result := &ApplyResult{PlanResult: plan, Applied: []*planner.Action{}}

	if len(plan.Actions) == 0 {
		return result, ErrNoChanges
	}

	if plan.HasConflicts() && !req.Force {
		return result, fmt.Errorf("%w: %d conflicts detected", ErrConflicts, len(plan.Conflicts))
	}

	if req.DryRun {
		return result, nil
	}

	if req.Confirm != nil && !req.Confirm(plan) {
		return result, ErrCancelled
	}

	executor := NewExecutor(e.registry, req.Hooks)
	applied, err := executor.Execute(ctx, plan.Actions, req.Progress)
	result.Applied = applied
	if err != nil {
		return result, err
	}

	// Ids in the listing no longer describe the tree.
	if err := e.store.Delete(plan.SnapshotID); err != nil {
		e.logger.Warn().Err(err).Str("snapshot", plan.SnapshotID).Msg("Failed to delete applied snapshot")
	}

	e.logger.Info().Int("applied", len(applied)).Msg("Listing applied")
	return result, nil
}
