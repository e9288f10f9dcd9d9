package listing

import (
	"fmt"

	"github.com/danieljhkim/treedit/internal/cache"
	"github.com/danieljhkim/treedit/internal/planner"
)

// Diff compares a parsed document with the cache it was rendered from and
// returns the diffs of each buffer, keyed by buffer URL. Buffers without
// changes are omitted. Sections removed from the document leave their
// directory untouched.
//
// Errors the filter drops are skipped along with their lines; any that remain
// are returned as Errors.
func Diff(doc *Document, c *cache.Cache, opts Options, filter ErrorFilter) (map[string][]planner.Diff, error) {
	out := make(map[string][]planner.Diff)
	var errs Errors

	for _, buf := range doc.Buffers {
		var diffs []planner.Diff
		kept := make(map[int]bool)

		for _, line := range buf.Lines {
			if line.ID == 0 {
				diffs = append(diffs, planner.Diff{
					Kind:      planner.DiffNew,
					Name:      line.Name,
					EntryType: line.Type,
					Link:      line.Link,
				})
				continue
			}

			entry, ok := c.EntryByID(line.ID)
			if !ok {
				pe := &ParseError{Buffer: buf.URL, Line: line.Num, Msg: fmt.Sprintf("unknown id /%d", line.ID)}
				if filter == nil || filter.FilterError(pe) {
					errs = append(errs, pe)
				}
				continue
			}
			parent, _ := c.ParentURL(line.ID)

			if parent == buf.URL && line.Name == entry.Name {
				kept[line.ID] = true
				if opts.HasColumn(ColumnPermissions) && line.HasMode && line.Mode != entry.Mode.Perm() {
					diffs = append(diffs, planner.Diff{
						Kind:      planner.DiffChange,
						Name:      line.Name,
						EntryType: entry.Type,
						Column:    ColumnPermissions,
						Value:     FormatMode(line.Mode),
					})
				}
				continue
			}

			diffs = append(diffs, planner.Diff{
				Kind:      planner.DiffNew,
				ID:        line.ID,
				Name:      line.Name,
				EntryType: entry.Type,
				Link:      entry.Link,
			})
		}

		if c.HasParent(buf.URL) {
			for _, entry := range c.List(buf.URL) {
				if kept[entry.ID] {
					continue
				}
				diffs = append(diffs, planner.Diff{
					Kind:      planner.DiffDelete,
					ID:        entry.ID,
					Name:      entry.Name,
					EntryType: entry.Type,
				})
			}
		}

		if len(diffs) > 0 {
			out[buf.URL] = diffs
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}
