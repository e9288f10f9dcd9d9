package engine

import (
	"bytes"
	"context"
	"fmt"

	"github.com/danieljhkim/treedit/internal/cache"
	"github.com/danieljhkim/treedit/internal/listing"
	"github.com/danieljhkim/treedit/internal/logging"
	"github.com/danieljhkim/treedit/internal/planner"
)

// Plan turns an edited listing into an ordered, conflict-checked plan.
// Nothing is mutated; every planning error surfaces here.
//
// Algorithm steps:
// 1. Parse the listing and drop the errors adapters tolerate
// 2. Load the snapshot named by the listing
// 3. Diff the document against the cached entries
// 4. Compile the diffs into actions
// 5. Order the actions, splitting move cycles
// 6. Rewrite moves the adapters cannot perform directly
// 7. Replay the plan to find occupied destinations
func (e *Engine) Plan(ctx context.Context, req *PlanRequest) (*PlanResult, error) {
	done := logging.LogOperationStart(e.logger, "plan")
	defer done()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := trimListing(req.Listing)
	doc, errs := listing.Parse(data, e.opts.Listing)
	if errs = errs.Filter(e.registry); len(errs) > 0 {
		return nil, errs
	}
	if doc.SnapshotID == "" {
		return nil, ErrNoSnapshot
	}

	snap, err := e.store.Load(doc.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", doc.SnapshotID, err)
	}

	result := &PlanResult{
		SnapshotID: doc.SnapshotID,
		Diffs:      map[string][]planner.Diff{},
		Actions:    []*planner.Action{},
		Conflicts:  []planner.Conflict{},
	}
	if e.hasher.Sum(data) == snap.ListingHash {
		e.logger.Debug().Str("snapshot", snap.ID).Msg("Listing unchanged")
		result.Unchanged = true
		return result, nil
	}

	c := cache.FromSnapshot(snap)
	diffs, err := listing.Diff(doc, c, e.opts.Listing, e.registry)
	if err != nil {
		return nil, err
	}
	result.Diffs = diffs

	actions, err := planner.Compile(diffs, c, e.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to compile listing: %w", err)
	}
	ordered, err := e.scheduler.Order(actions)
	if err != nil {
		return nil, fmt.Errorf("failed to order actions: %w", err)
	}
	ordered = planner.RewriteCrossAdapterMoves(ordered, e.registry)

	result.Actions = ordered
	result.Conflicts = planner.CheckConflicts(ordered, e.registry)

	e.logger.Info().
		Str("snapshot", snap.ID).
		Int("actions", len(ordered)).
		Int("conflicts", len(result.Conflicts)).
		Msg("Plan built")
	return result, nil
}

// trimListing normalizes line endings written by some editors.
func trimListing(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}
