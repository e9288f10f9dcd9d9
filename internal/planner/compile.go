package planner

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/danieljhkim/treedit/internal/fsurl"
	"github.com/danieljhkim/treedit/internal/logging"
)

// EntryLookup resolves stable ids to the entries they were rendered from.
type EntryLookup interface {
	// EntryByID returns the cached entry for id.
	EntryByID(id int) (Entry, bool)

	// ParentURL returns the URL of the directory the entry was listed in.
	ParentURL(id int) (string, bool)
}

// AdapterSet is the compiler's view of the adapters that will execute the
// actions.
type AdapterSet interface {
	// FilterAction reports whether the adapter owning the action's target
	// accepts it. It fails with ErrMissingAdapter for unknown schemes.
	FilterAction(a *Action) (bool, error)

	// PathExists reports whether url is known to exist. Adapters that cannot
	// answer cheaply report false.
	PathExists(url string) bool
}

var alternationPattern = regexp.MustCompile(`\{([^}]+)\}`)

// idDiffs collects what the diffs said about one stable id.
type idDiffs struct {
	dests   []string
	deleted bool
}

type compiler struct {
	entries  EntryLookup
	adapters AdapterSet

	actions     []*Action
	seenCreates map[string]bool
	byID        map[int]*idDiffs
}

// Compile converts per-buffer diffs into actions. diffsByBuffer maps the URL
// of each edited directory to the diffs found in it. The returned actions are
// unordered; pass them to Order before executing.
func Compile(diffsByBuffer map[string][]Diff, entries EntryLookup, adapters AdapterSet) ([]*Action, error) {
	logger := logging.GetLogger("planner")
	done := logging.LogOperationStart(logger, "compile")
	defer done()

	c := &compiler{
		entries:     entries,
		adapters:    adapters,
		seenCreates: make(map[string]bool),
		byID:        make(map[int]*idDiffs),
	}

	buffers := make([]string, 0, len(diffsByBuffer))
	for bufferURL := range diffsByBuffer {
		buffers = append(buffers, bufferURL)
	}
	sort.Strings(buffers)

	for _, bufferURL := range buffers {
		for _, d := range diffsByBuffer[bufferURL] {
			if err := c.addDiff(bufferURL, d); err != nil {
				return nil, err
			}
		}
	}

	if err := c.resolveIDs(); err != nil {
		return nil, err
	}

	logger.Debug().Int("actions", len(c.actions)).Msg("Compiled diffs")
	return c.actions, nil
}

func (c *compiler) idState(id int) *idDiffs {
	state, ok := c.byID[id]
	if !ok {
		state = &idDiffs{}
		c.byID[id] = state
	}
	return state
}

func (c *compiler) addDiff(bufferURL string, d Diff) error {
	switch d.Kind {
	case DiffNew:
		if d.ID != 0 {
			state := c.idState(d.ID)
			state.dests = append(state.dests, fsurl.Join(bufferURL, d.Name))
			return nil
		}
		return c.addCreates(bufferURL, d)

	case DiffChange:
		return c.add(&Action{
			Type:      ActionChange,
			URL:       fsurl.Join(bufferURL, d.Name),
			EntryType: d.EntryType,
			Column:    d.Column,
			Value:     d.Value,
		})

	case DiffDelete:
		if d.ID == 0 {
			return fmt.Errorf("%w: delete of %q in %s has no id", ErrInvalidDiff, d.Name, bufferURL)
		}
		state := c.idState(d.ID)
		if state.deleted {
			return fmt.Errorf("%w: id %d", ErrDuplicateDelete, d.ID)
		}
		state.deleted = true
		return nil

	default:
		return fmt.Errorf("%w: unknown diff kind %q", ErrInvalidDiff, d.Kind)
	}
}

// addCreates expands a new line without id into one create per missing path
// component.
func (c *compiler) addCreates(bufferURL string, d Diff) error {
	var pieces []string
	for _, piece := range strings.Split(d.Name, "/") {
		if piece != "" {
			pieces = append(pieces, piece)
		}
	}
	if len(pieces) == 0 {
		return fmt.Errorf("%w: empty name in %s", ErrInvalidDiff, bufferURL)
	}

	url := bufferURL
	for i, piece := range pieces {
		if i < len(pieces)-1 {
			url = fsurl.Join(url, piece)
			if c.seenCreates[url] || c.adapters.PathExists(url) {
				continue
			}
			if err := c.add(&Action{Type: ActionCreate, URL: url, EntryType: EntryDirectory}); err != nil {
				return err
			}
			continue
		}

		for _, name := range expandAlternation(piece) {
			err := c.add(&Action{
				Type:      ActionCreate,
				URL:       fsurl.Join(url, name),
				EntryType: d.EntryType,
				Link:      d.Link,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// expandAlternation expands the first {a,b} group of name into one name per
// alternative.
func expandAlternation(name string) []string {
	loc := alternationPattern.FindStringSubmatchIndex(name)
	if loc == nil {
		return []string{name}
	}
	prefix, suffix := name[:loc[0]], name[loc[1]:]
	alts := strings.Split(name[loc[2]:loc[3]], ",")
	names := make([]string, 0, len(alts))
	for _, alt := range alts {
		names = append(names, prefix+alt+suffix)
	}
	return names
}

// resolveIDs classifies every referenced id as a delete, copies, or copies
// plus a trailing move.
func (c *compiler) resolveIDs() error {
	ids := make([]int, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		state := c.byID[id]
		entry, ok := c.entries.EntryByID(id)
		if !ok {
			return fmt.Errorf("%w: id %d", ErrMissingEntry, id)
		}
		parentURL, ok := c.entries.ParentURL(id)
		if !ok {
			return fmt.Errorf("%w: no parent for id %d", ErrMissingEntry, id)
		}
		srcURL := fsurl.Join(parentURL, entry.Name)

		// A destination equal to the source means the entry stays where it
		// is, so every other destination is a copy.
		dests := make([]string, 0, len(state.dests))
		deleted := state.deleted
		for _, dest := range state.dests {
			if dest == srcURL {
				deleted = false
				continue
			}
			dests = append(dests, dest)
		}

		if deleted && len(dests) == 0 {
			if err := c.add(&Action{Type: ActionDelete, URL: srcURL, EntryType: entry.Type}); err != nil {
				return err
			}
			continue
		}

		for i, dest := range dests {
			typ := ActionCopy
			if deleted && i == len(dests)-1 {
				typ = ActionMove
			}
			err := c.add(&Action{Type: typ, SrcURL: srcURL, DestURL: dest, EntryType: entry.Type})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// add passes an action through the adapter filter and the create dedup.
func (c *compiler) add(a *Action) error {
	ok, err := c.adapters.FilterAction(a)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if a.Type == ActionCreate {
		if c.seenCreates[a.URL] {
			return nil
		}
		c.seenCreates[a.URL] = true
	}
	c.actions = append(c.actions, a)
	return nil
}
