package planner

import "github.com/danieljhkim/treedit/internal/fsurl"

// MovePolicy decides whether a move between two URLs can be executed as a
// single adapter operation.
type MovePolicy interface {
	CanMove(srcURL, destURL string) bool
}

// RewriteCrossAdapterMoves replaces each move the policy rejects with a copy
// to the destination followed directly by a delete of the source. Moves within
// one scheme are always kept.
func RewriteCrossAdapterMoves(actions []*Action, policy MovePolicy) []*Action {
	out := make([]*Action, 0, len(actions))
	for _, a := range actions {
		if a.Type != ActionMove || fsurl.Scheme(a.SrcURL) == fsurl.Scheme(a.DestURL) || policy.CanMove(a.SrcURL, a.DestURL) {
			out = append(out, a)
			continue
		}
		out = append(out,
			&Action{Type: ActionCopy, EntryType: a.EntryType, SrcURL: a.SrcURL, DestURL: a.DestURL},
			&Action{Type: ActionDelete, EntryType: a.EntryType, URL: a.SrcURL},
		)
	}
	return out
}
