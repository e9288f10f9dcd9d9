package planner

import (
	"fmt"
	"os"
)

// ActionType is the kind of filesystem operation an Action performs.
type ActionType string

// Action type constants
const (
	ActionCreate ActionType = "create"
	ActionDelete ActionType = "delete"
	ActionMove   ActionType = "move"
	ActionCopy   ActionType = "copy"
	ActionChange ActionType = "change"
)

// EntryType is the type of a directory entry.
type EntryType string

// Entry type constants
const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
	EntryLink      EntryType = "link"
)

// DiffKind is the kind of a line-level change in an edited listing.
type DiffKind string

// Diff kind constants
const (
	DiffNew    DiffKind = "new"
	DiffChange DiffKind = "change"
	DiffDelete DiffKind = "delete"
)

// Diff is one line-level change extracted from an edited listing.
type Diff struct {
	// Kind is new, change or delete
	Kind DiffKind `json:"kind"`

	// ID is the stable id of a pre-existing entry, or 0 for a newly typed line
	ID int `json:"id,omitempty"`

	// Name is the path text relative to the buffer; it may be nested and may
	// contain {a,b} alternation in its last segment
	Name string `json:"name,omitempty"`

	// EntryType is the type of the entry when known
	EntryType EntryType `json:"entry_type,omitempty"`

	// Column and Value describe a field change
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`

	// Link is the symlink target for a new link
	Link string `json:"link,omitempty"`
}

// Entry is a cached directory entry keyed by its stable id.
type Entry struct {
	ID   int         `json:"id" yaml:"id"`
	Name string      `json:"name" yaml:"name"`
	Type EntryType   `json:"type" yaml:"type"`
	Link string      `json:"link,omitempty" yaml:"link,omitempty"`
	Mode os.FileMode `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// Action is a single filesystem operation. Which URL fields are set depends
// on Type: create, delete and change use URL; move and copy use SrcURL and
// DestURL.
type Action struct {
	Type      ActionType `json:"type"`
	EntryType EntryType  `json:"entry_type"`
	URL       string     `json:"url,omitempty"`
	SrcURL    string     `json:"src_url,omitempty"`
	DestURL   string     `json:"dest_url,omitempty"`
	Link      string     `json:"link,omitempty"`
	Column    string     `json:"column,omitempty"`
	Value     string     `json:"value,omitempty"`
}

// Target returns the URL the action writes to. Adapters are selected by the
// scheme of this URL.
func (a *Action) Target() string {
	if a.Type == ActionMove || a.Type == ActionCopy {
		return a.DestURL
	}
	return a.URL
}

// Source returns the URL the action reads from or removes.
func (a *Action) Source() string {
	if a.Type == ActionMove || a.Type == ActionCopy {
		return a.SrcURL
	}
	return a.URL
}

func (a *Action) String() string {
	switch a.Type {
	case ActionMove, ActionCopy:
		return fmt.Sprintf("%s %s -> %s", a.Type, a.SrcURL, a.DestURL)
	case ActionChange:
		return fmt.Sprintf("%s %s %s=%s", a.Type, a.URL, a.Column, a.Value)
	case ActionCreate:
		if a.Link != "" {
			return fmt.Sprintf("%s %s -> %s", a.Type, a.URL, a.Link)
		}
		return fmt.Sprintf("%s %s (%s)", a.Type, a.URL, a.EntryType)
	default:
		return fmt.Sprintf("%s %s", a.Type, a.URL)
	}
}

// Plan is an ordered list of actions ready for execution.
type Plan struct {
	// Actions is the execution order
	Actions []*Action
}

// NewPlan creates a Plan from already ordered actions.
func NewPlan(actions []*Action) *Plan {
	if actions == nil {
		actions = []*Action{}
	}
	return &Plan{Actions: actions}
}

// IsEmpty returns true if the plan has nothing to do.
func (p *Plan) IsEmpty() bool {
	return len(p.Actions) == 0
}

// HasDestructive returns true if the plan deletes or moves anything.
func (p *Plan) HasDestructive() bool {
	for _, a := range p.Actions {
		if a.Type == ActionDelete || a.Type == ActionMove {
			return true
		}
	}
	return false
}

// Counts returns the number of actions of each type.
func (p *Plan) Counts() map[ActionType]int {
	counts := make(map[ActionType]int)
	for _, a := range p.Actions {
		counts[a.Type]++
	}
	return counts
}
