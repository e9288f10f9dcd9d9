package planner

import (
	"fmt"

	"github.com/danieljhkim/treedit/internal/fsurl"
)

// Conflict is an action whose destination is already occupied at the point
// in the plan where it would run.
type Conflict struct {
	URL      string  `json:"url"`
	Reason   string  `json:"reason"`
	Action   *Action `json:"action"`
	Existing string  `json:"existing"`
}

// PathChecker reports whether a URL exists before the plan runs.
type PathChecker interface {
	PathExists(url string) bool
}

// ConflictChecker replays an ordered plan against a model of the namespace
// and reports destinations that would be overwritten.
type ConflictChecker struct {
	exists PathChecker

	// overrides records what the plan has done to a URL so far. A descendant
	// of an overridden URL is never looked up through exists.
	overrides map[string]occupant
}

type occupant struct {
	present bool
	by      *Action
}

// NewConflictChecker creates a ConflictChecker backed by exists.
func NewConflictChecker(exists PathChecker) *ConflictChecker {
	return &ConflictChecker{
		exists:    exists,
		overrides: make(map[string]occupant),
	}
}

// CheckConflicts returns the conflicts in ordered, in plan order.
func CheckConflicts(ordered []*Action, exists PathChecker) []Conflict {
	return NewConflictChecker(exists).Check(ordered)
}

// Check replays ordered and returns every conflict found.
func (c *ConflictChecker) Check(ordered []*Action) []Conflict {
	conflicts := []Conflict{}
	for _, a := range ordered {
		switch a.Type {
		case ActionCreate:
			if conflict := c.checkPath(a.URL, a); conflict != nil {
				conflicts = append(conflicts, *conflict)
			}
			c.overrides[a.URL] = occupant{present: true, by: a}

		case ActionCopy:
			if conflict := c.checkPath(a.DestURL, a); conflict != nil {
				conflicts = append(conflicts, *conflict)
			}
			c.overrides[a.DestURL] = occupant{present: true, by: a}

		case ActionMove:
			if conflict := c.checkPath(a.DestURL, a); conflict != nil {
				conflicts = append(conflicts, *conflict)
			}
			c.overrides[a.SrcURL] = occupant{present: false, by: a}
			c.overrides[a.DestURL] = occupant{present: true, by: a}

		case ActionDelete:
			c.overrides[a.URL] = occupant{present: false, by: a}
		}
	}
	return conflicts
}

// checkPath returns a Conflict if url is occupied when a runs.
func (c *ConflictChecker) checkPath(url string, a *Action) *Conflict {
	if occ, ok := c.overrides[url]; ok {
		if !occ.present {
			return nil
		}
		return &Conflict{
			URL:      url,
			Reason:   fmt.Sprintf("Destination already written by %s", occ.by),
			Action:   a,
			Existing: string(occ.by.Type),
		}
	}

	for parent := fsurl.Parent(url); ; parent = fsurl.Parent(parent) {
		if _, ok := c.overrides[parent]; ok {
			return nil
		}
		if fsurl.IsRoot(parent) {
			break
		}
	}

	if c.exists.PathExists(url) {
		return &Conflict{
			URL:      url,
			Reason:   "Destination already exists",
			Action:   a,
			Existing: "existing",
		}
	}
	return nil
}
