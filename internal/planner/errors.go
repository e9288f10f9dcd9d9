package planner

import "errors"

var (
	// ErrMissingEntry indicates a diff referenced an id the entry cache does not know.
	ErrMissingEntry = errors.New("missing cache entry")

	// ErrMissingAdapter indicates no adapter is registered for a URL scheme.
	ErrMissingAdapter = errors.New("missing adapter")

	// ErrDuplicateDelete indicates the same id was deleted more than once.
	ErrDuplicateDelete = errors.New("entry deleted more than once")

	// ErrInvalidDiff indicates a diff is missing a required field.
	ErrInvalidDiff = errors.New("invalid diff")

	// ErrStructural indicates a move or copy of a directory into its own subtree.
	ErrStructural = errors.New("cannot move or copy a directory into itself")

	// ErrUnresolvableCycle indicates a dependency cycle that cannot be split.
	ErrUnresolvableCycle = errors.New("detected cycle in desired paths")
)
