package planner

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/danieljhkim/treedit/internal/fsurl"
	"github.com/danieljhkim/treedit/internal/logging"
	"github.com/danieljhkim/treedit/internal/pathtrie"
)

// TempNamer generates the intermediate URLs used to break move cycles.
type TempNamer interface {
	// TempURL returns a URL next to src that no other action uses.
	TempURL(src string) string
}

type sequenceNamer struct {
	salt string
	n    atomic.Int64
}

// NewSequenceNamer returns a TempNamer producing src + "__treedit_tmp_" +
// salt + a counter. Names never repeat for the lifetime of the namer.
func NewSequenceNamer(salt string) TempNamer {
	return &sequenceNamer{salt: salt}
}

func (s *sequenceNamer) TempURL(src string) string {
	return fmt.Sprintf("%s__treedit_tmp_%s%d", src, s.salt, s.n.Add(1))
}

var defaultNamer = NewSequenceNamer(fmt.Sprintf("%05d_", rand.IntN(100000)))

// Scheduler orders actions so that executing them sequentially never fails
// because of ordering.
type Scheduler struct {
	namer  TempNamer
	logger zerolog.Logger
}

// NewScheduler creates a Scheduler. A nil namer selects the default one.
func NewScheduler(namer TempNamer) *Scheduler {
	if namer == nil {
		namer = defaultNamer
	}
	return &Scheduler{
		namer:  namer,
		logger: logging.GetLogger("scheduler"),
	}
}

// Order orders actions with the default Scheduler.
func Order(actions []*Action) ([]*Action, error) {
	return NewScheduler(nil).Order(actions)
}

// Order returns a permutation of actions, possibly with extra moves through
// temporary paths, that can be executed left to right. It fails without
// partial output when a cycle cannot be broken or a move/copy targets its own
// subtree.
func (s *Scheduler) Order(actions []*Action) ([]*Action, error) {
	done := logging.LogOperationStart(s.logger, "order")
	defer done()

	g := newDepGraph()
	for _, a := range actions {
		g.insert(a)
	}

	pending := append([]*Action(nil), actions...)
	ordered := make([]*Action, 0, len(actions))
	var after []*Action

	for len(pending) > 0 {
		leaf, witness := g.findLeaf(pending[0], make(map[*Action]bool), nil)

		var resolved *Action
		if leaf != nil {
			if isIntoOwnSubtree(leaf) {
				return nil, fmt.Errorf("%w: %s", ErrStructural, leaf)
			}
			s.logger.Trace().Stringer("action", leaf).Msg("Scheduled action")
			ordered = append(ordered, leaf)
			resolved = leaf
		} else {
			if witness == nil {
				return nil, fmt.Errorf("%w: no schedulable action from %s", ErrUnresolvableCycle, pending[0])
			}
			if isIntoOwnSubtree(witness) {
				return nil, fmt.Errorf("%w: %s", ErrStructural, witness)
			}
			if witness.Type != ActionMove {
				return nil, fmt.Errorf("%w: %s", ErrUnresolvableCycle, witness)
			}

			tmp := s.namer.TempURL(witness.SrcURL)
			first := &Action{Type: ActionMove, EntryType: witness.EntryType, SrcURL: witness.SrcURL, DestURL: tmp}
			second := &Action{Type: ActionMove, EntryType: witness.EntryType, SrcURL: tmp, DestURL: witness.DestURL}
			s.logger.Debug().
				Stringer("move", witness).
				Str("via", tmp).
				Msg("Splitting move to break cycle")

			g.insert(first)
			pending = append(pending, first)
			after = append(after, second)
			resolved = witness
		}

		if err := g.remove(resolved); err != nil {
			return nil, err
		}
		pending = removeAction(pending, resolved)
	}

	return append(ordered, after...), nil
}

func isIntoOwnSubtree(a *Action) bool {
	return (a.Type == ActionMove || a.Type == ActionCopy) && fsurl.IsDescendant(a.DestURL, a.SrcURL)
}

func removeAction(actions []*Action, target *Action) []*Action {
	for i, a := range actions {
		if a == target {
			return append(actions[:i], actions[i+1:]...)
		}
	}
	return actions
}

// depGraph holds the two tries that dependencies are computed from. Edges are
// never materialized: removing a finished action changes what the remaining
// ones wait for.
type depGraph struct {
	src  *pathtrie.Trie[*Action]
	dest *pathtrie.Trie[*Action]
}

func newDepGraph() *depGraph {
	return &depGraph{
		src:  pathtrie.New[*Action](),
		dest: pathtrie.New[*Action](),
	}
}

func (g *depGraph) insert(a *Action) {
	switch a.Type {
	case ActionDelete, ActionChange:
		g.src.Insert(a.URL, a)
	case ActionCreate:
		g.dest.Insert(a.URL, a)
	default:
		g.dest.Insert(a.DestURL, a)
		g.src.Insert(a.SrcURL, a)
	}
}

func (g *depGraph) remove(a *Action) error {
	var err error
	switch a.Type {
	case ActionDelete, ActionChange:
		err = g.src.Remove(a.URL, a)
	case ActionCreate:
		err = g.dest.Remove(a.URL, a)
	default:
		if err = g.dest.Remove(a.DestURL, a); err == nil {
			err = g.src.Remove(a.SrcURL, a)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to unschedule %s: %w", a, err)
	}
	return nil
}

func isMoveOrDelete(a *Action) bool {
	return a.Type == ActionMove || a.Type == ActionDelete
}

func isCopy(a *Action) bool {
	return a.Type == ActionCopy
}

// deps returns the actions that must run before a, given what is still
// pending.
func (g *depGraph) deps(a *Action) []*Action {
	var out []*Action
	switch a.Type {
	case ActionDelete:
		// Empty the directory first: MOVE /a/b -> /c before DELETE /a
		out = append(out, g.src.ChildrenOf(a.URL, nil)...)

	case ActionCreate:
		// NEW /a before NEW /a/b
		out = append(out, g.dest.FirstParentsOf(a.URL)...)
		// DELETE /a before NEW /a
		out = append(out, g.src.ValuesAt(a.URL, isMoveOrDelete)...)

	case ActionChange:
		// NEW /a before CHANGE /a/b
		out = append(out, g.dest.FirstParentsOf(a.URL)...)
		// NEW /a before CHANGE /a
		out = append(out, g.dest.ValuesAt(a.URL, nil)...)
		// COPY /a -> /b before CHANGE /a
		out = append(out, g.src.ValuesAt(a.URL, isCopy)...)

	case ActionMove:
		// NEW /a before MOVE /z -> /a/b
		out = append(out, g.dest.FirstParentsOf(a.DestURL)...)
		// NEW /a/b before MOVE /a -> /b
		out = append(out, g.dest.ChildrenOf(a.SrcURL, nil)...)
		// COPY /a/b -> /b before MOVE /a -> /d
		out = append(out, g.src.ChildrenOf(a.SrcURL, nil)...)
		// MOVE /a -> /b before MOVE /c -> /a
		out = append(out, g.src.ValuesAt(a.DestURL, isMoveOrDelete)...)

	case ActionCopy:
		// NEW /a before COPY /z -> /a/b
		out = append(out, g.dest.FirstParentsOf(a.DestURL)...)
		// NEW /a/b before COPY /a -> /b
		out = append(out, g.dest.ChildrenOf(a.SrcURL, nil)...)
		// MOVE /a -> /b before COPY /c -> /a
		out = append(out, g.src.ValuesAt(a.DestURL, isMoveOrDelete)...)
	}
	return out
}

// findLeaf walks the dependency chain of a depth first looking for an action
// with no outstanding dependencies. When every path loops back, it returns
// nil and an action on the loop, preferring a move since only moves can be
// split. path holds the chain that led to a.
func (g *depGraph) findLeaf(a *Action, seen map[*Action]bool, path []*Action) (leaf, witness *Action) {
	if seen[a] {
		return nil, loopWitness(path, a)
	}
	seen[a] = true

	deps := g.deps(a)
	if len(deps) == 0 {
		return a, nil
	}

	path = append(path, a)
	var inLoop *Action
	for _, dep := range deps {
		leaf, w := g.findLeaf(dep, seen, path)
		if leaf != nil {
			return leaf, nil
		}
		if w != nil && (inLoop == nil || (inLoop.Type != ActionMove && w.Type == ActionMove)) {
			inLoop = w
		}
	}
	return nil, inLoop
}

// loopWitness returns the first move on the loop closed by revisiting a, or
// a itself when the loop has no move or a was reached from another branch.
func loopWitness(path []*Action, a *Action) *Action {
	for i, p := range path {
		if p != a {
			continue
		}
		for _, q := range path[i:] {
			if q.Type == ActionMove {
				return q
			}
		}
		break
	}
	return a
}
