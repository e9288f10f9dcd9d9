package engine

import (
	"github.com/danieljhkim/treedit/internal/planner"
)

// RenderResult represents a rendered listing.
type RenderResult struct {
	// Listing is the document to edit
	Listing []byte

	// SnapshotID identifies the stored snapshot the listing refers to
	SnapshotID string `json:"snapshot_id"`

	// Entries is the number of entries listed
	Entries int

	// Pruned lists snapshots removed for being too old
	Pruned []string
}

// PlanResult represents the plan for an edited listing.
type PlanResult struct {
	// SnapshotID is the snapshot the listing was rendered from
	SnapshotID string `json:"snapshot_id"`

	// Diffs are the line-level changes, keyed by buffer URL
	Diffs map[string][]planner.Diff `json:"diffs"`

	// Actions is the execution order
	Actions []*planner.Action `json:"actions"`

	// Conflicts are destinations already occupied when their action runs
	Conflicts []planner.Conflict `json:"conflicts"`

	// Unchanged is true when the listing is byte-identical to the render
	Unchanged bool `json:"unchanged"`
}

// Plan returns the actions as a planner.Plan.
func (r *PlanResult) Plan() *planner.Plan {
	return planner.NewPlan(r.Actions)
}

// HasConflicts returns true if any action would overwrite an existing path.
func (r *PlanResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// ApplyResult represents the result of applying a listing.
type ApplyResult struct {
	// PlanResult is the plan that was (or would be) executed
	*PlanResult

	// Applied is the list of actions that completed (empty if DryRun)
	Applied []*planner.Action `json:"applied"`
}
