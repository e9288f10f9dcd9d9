package engine

import (
	"errors"
	"fmt"

	"github.com/danieljhkim/treedit/internal/planner"
)

var (
	// ErrNoChanges indicates the edited listing produced no actions.
	ErrNoChanges = errors.New("no changes")

	// ErrCancelled indicates the user declined the confirmation prompt.
	ErrCancelled = errors.New("cancelled")

	// ErrConflicts indicates the plan would overwrite existing paths.
	ErrConflicts = errors.New("conflicts detected")

	// ErrNoSnapshot indicates the listing does not name the snapshot it was
	// rendered from.
	ErrNoSnapshot = errors.New("listing has no snapshot directive")

	// ErrNoDirectories indicates a render request without directories.
	ErrNoDirectories = errors.New("no directories to render")
)

// ActionError reports the action that stopped execution. Actions before
// Index completed and were not rolled back.
type ActionError struct {
	Action *planner.Action
	Index  int
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (%s) failed: %v", e.Index+1, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
