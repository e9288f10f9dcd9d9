package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/treedit/internal/adapter"
	"github.com/danieljhkim/treedit/internal/cache"
	"github.com/danieljhkim/treedit/internal/fsurl"
	"github.com/danieljhkim/treedit/internal/hash"
	"github.com/danieljhkim/treedit/internal/listing"
	"github.com/danieljhkim/treedit/internal/logging"
)

// Render lists the requested directories and returns the editable listing.
//
// Algorithm steps:
// 1. List each directory through the adapter owning its scheme
// 2. Assign stable ids in a fresh cache
// 3. Derive the snapshot id from the rendered sections
// 4. Render the document with its snapshot directive
// 5. Persist the snapshot and prune expired ones
func (e *Engine) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	done := logging.LogOperationStart(e.logger, "render")
	defer done()

	if len(req.URLs) == 0 {
		return nil, ErrNoDirectories
	}

	c := cache.New()
	for _, raw := range req.URLs {
		scheme, p, err := fsurl.Parse(raw)
		if err != nil {
			return nil, err
		}
		url := fsurl.New(scheme, p)
		if c.HasParent(url) {
			continue
		}
		ad, err := e.registry.ForURL(url)
		if err != nil {
			return nil, err
		}
		lister, ok := ad.(adapter.Lister)
		if !ok {
			return nil, fmt.Errorf("%w: %s adapter cannot list directories", adapter.ErrUnsupported, ad.Scheme())
		}

		entries, err := lister.List(ctx, url, adapter.ListOptions{ShowHidden: req.ShowHidden})
		if err != nil {
			return nil, err
		}
		c.MarkRendered(url)
		for _, entry := range entries {
			c.Add(url, entry)
		}
		e.logger.Debug().Str("url", url).Int("entries", len(entries)).Msg("Listed directory")
	}

	body := listing.Render("", c, e.opts.Listing)
	snapshotID := hash.Short(e.hasher.Sum(body))
	doc := listing.Render(snapshotID, c, e.opts.Listing)

	snap := c.Snapshot(snapshotID, e.hasher.Sum(doc), e.clock.Now())
	if err := e.store.Save(snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	result := &RenderResult{
		Listing:    doc,
		SnapshotID: snapshotID,
		Entries:    c.Len(),
		Pruned:     []string{},
	}

	if e.opts.SnapshotMaxAge > 0 {
		pruned, err := e.store.Prune(e.clock.Now().Add(-e.opts.SnapshotMaxAge))
		if err != nil {
			e.logger.Warn().Err(err).Msg("Failed to prune old snapshots")
		} else {
			result.Pruned = pruned
		}
	}

	return result, nil
}

// RenderSnapshot re-renders the listing stored under id as it was first
// produced.
func (e *Engine) RenderSnapshot(id string) ([]byte, error) {
	snap, err := e.store.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}
	return listing.Render(snap.ID, cache.FromSnapshot(snap), e.opts.Listing), nil
}
