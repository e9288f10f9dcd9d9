package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/danieljhkim/treedit/internal/adapter"
	"github.com/danieljhkim/treedit/internal/logging"
	"github.com/danieljhkim/treedit/internal/planner"
)

// ProgressFunc is called after each completed action.
type ProgressFunc func(done, total int, a *planner.Action)

// Hooks observe a batch of actions. Either field may be nil.
type Hooks struct {
	// BeforeBatch runs once before the first action
	BeforeBatch func(actions []*planner.Action)

	// AfterBatch runs once after the last action, or after the failure that
	// stopped the batch
	AfterBatch func(err error)
}

// ActionRouter selects the adapter that executes an action.
type ActionRouter interface {
	ForAction(a *planner.Action) (adapter.Adapter, error)
}

// Executor runs ordered actions one at a time.
type Executor struct {
	router ActionRouter
	hooks  Hooks
	logger zerolog.Logger
}

// NewExecutor creates an Executor dispatching through router.
func NewExecutor(router ActionRouter, hooks Hooks) *Executor {
	return &Executor{
		router: router,
		hooks:  hooks,
		logger: logging.GetLogger("executor"),
	}
}

// Execute performs actions in order. Each action completes before the next
// starts. Cancellation is checked between actions. The first failure stops
// the batch and is returned as an *ActionError; earlier actions stay applied.
// It returns the actions that completed.
func (x *Executor) Execute(ctx context.Context, actions []*planner.Action, progress ProgressFunc) (applied []*planner.Action, err error) {
	done := logging.LogOperationStart(x.logger, "execute")
	defer done()

	if x.hooks.BeforeBatch != nil {
		x.hooks.BeforeBatch(actions)
	}
	defer func() {
		if x.hooks.AfterBatch != nil {
			x.hooks.AfterBatch(err)
		}
	}()

	applied = make([]*planner.Action, 0, len(actions))
	for i, a := range actions {
		if err := ctx.Err(); err != nil {
			return applied, &ActionError{Action: a, Index: i, Err: err}
		}
		if err := x.perform(ctx, a); err != nil {
			x.logger.Error().Err(err).Stringer("action", a).Int("index", i).Msg("Action failed")
			return applied, &ActionError{Action: a, Index: i, Err: err}
		}
		applied = append(applied, a)
		x.logger.Info().Stringer("action", a).Msg("Action completed")
		if progress != nil {
			progress(i+1, len(actions), a)
		}
	}
	return applied, nil
}

func (x *Executor) perform(ctx context.Context, a *planner.Action) error {
	ad, err := x.router.ForAction(a)
	if err != nil {
		return err
	}
	if a.Type == planner.ActionChange {
		return adapter.PerformChange(ctx, ad, a)
	}
	return ad.Perform(ctx, a)
}
