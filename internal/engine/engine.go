// Package engine provides the core business logic for treedit operations.
//
// The engine package acts as the orchestration layer between CLI commands and
// lower-level operations. It lists directories into an entry cache, renders
// the editable listing, and turns an edited listing back into an ordered plan
// that is executed through the adapters.
//
// Key components:
//   - Engine: Main orchestrator that coordinates all operations
//   - Render: Lists directories and stores the snapshot the listing refers to
//   - Plan: Parse, diff, compile, order and conflict-check an edited listing
//   - Apply: Plan, confirm and execute sequentially through the Executor
package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/danieljhkim/treedit/internal/adapter"
	"github.com/danieljhkim/treedit/internal/cache"
	"github.com/danieljhkim/treedit/internal/clock"
	"github.com/danieljhkim/treedit/internal/hash"
	"github.com/danieljhkim/treedit/internal/listing"
	"github.com/danieljhkim/treedit/internal/logging"
	"github.com/danieljhkim/treedit/internal/planner"
)

// Options configures an Engine.
type Options struct {
	// Listing controls the columns of rendered and parsed listings
	Listing listing.Options

	// SnapshotMaxAge is how long snapshots are kept; zero keeps them forever
	SnapshotMaxAge time.Duration

	// Namer names the temporary entries used to break move cycles. Nil uses
	// a randomly salted namer.
	Namer planner.TempNamer
}

// Engine orchestrates all treedit operations.
// It is the main API surface called by the CLI.
type Engine struct {
	registry  *adapter.Registry
	store     cache.Store
	hasher    hash.Hasher
	clock     clock.Clock
	scheduler *planner.Scheduler
	opts      Options
	logger    zerolog.Logger
}

// New creates a new Engine with the given dependencies.
func New(
	registry *adapter.Registry,
	store cache.Store,
	hasher hash.Hasher,
	clk clock.Clock,
	opts Options,
) *Engine {
	return &Engine{
		registry:  registry,
		store:     store,
		hasher:    hasher,
		clock:     clk,
		scheduler: planner.NewScheduler(opts.Namer),
		opts:      opts,
		logger:    logging.GetLogger("engine"),
	}
}

// Registry returns the adapters the engine plans and executes against.
func (e *Engine) Registry() *adapter.Registry {
	return e.registry
}
