// Package planner turns listing diffs into an ordered list of filesystem
// actions.
//
// Planning happens in two phases. Compile classifies every diff into create,
// delete, move, copy or change actions without caring about order. Order then
// sequences those actions so that executing them left to right never fails
// because of a missing parent, an occupied destination or a circular rename.
//
// Key responsibilities:
//   - Infer moves and copies from diffs that share a stable entry id
//   - Expand nested and brace-alternated names into directory creates
//   - Compute dependencies live against two path tries
//   - Detect cycles and break move cycles through a temporary path
//   - Reject moving or copying a directory into its own subtree
//   - Split moves the executing adapters cannot perform in one step
//   - Replay an ordered plan to find destinations that are already taken
package planner
