// Package adapter executes planned actions against a storage backend.
//
// An Adapter owns one URL scheme. Beyond the required Perform it may offer
// optional capabilities, discovered by type assertion: filtering actions,
// probing for existing paths, changing entry fields, moving into other
// schemes, listing directories and tolerating listing errors.
//
// The Registry collects adapters by scheme and answers the planner's
// questions about them.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/danieljhkim/treedit/internal/planner"
)

// ErrUnsupported is returned for operations an adapter does not provide.
var ErrUnsupported = errors.New("operation not supported by adapter")

// Adapter executes actions whose target URL has its scheme.
type Adapter interface {
	// Scheme returns the URL scheme the adapter owns.
	Scheme() string

	// Perform executes a create, delete, move or copy action. It blocks
	// until the operation has finished.
	Perform(ctx context.Context, a *planner.Action) error
}

// ActionFilter is implemented by adapters that skip some actions.
type ActionFilter interface {
	// FilterAction returns false to drop the action from the plan.
	FilterAction(a *planner.Action) bool
}

// Existence is implemented by adapters that can cheaply tell whether a path
// exists.
type Existence interface {
	Exists(url string) bool
}

// ColumnChanger is implemented by adapters that can change entry fields.
type ColumnChanger interface {
	PerformChange(ctx context.Context, a *planner.Action) error
}

// CrossMover is implemented by adapters whose entries can be moved directly
// into another scheme.
type CrossMover interface {
	CanMoveTo(scheme string) bool
}

// ListOptions controls directory listings.
type ListOptions struct {
	ShowHidden bool
}

// Lister is implemented by adapters that can enumerate a directory.
type Lister interface {
	List(ctx context.Context, url string, opts ListOptions) ([]planner.Entry, error)
}

// PerformChange executes a change action through the adapter's
// ColumnChanger.
func PerformChange(ctx context.Context, ad Adapter, a *planner.Action) error {
	changer, ok := ad.(ColumnChanger)
	if !ok {
		return fmt.Errorf("%w: %s cannot change %s", ErrUnsupported, ad.Scheme(), a.Column)
	}
	return changer.PerformChange(ctx, a)
}
