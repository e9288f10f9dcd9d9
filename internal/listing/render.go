package listing

import (
	"fmt"
	"strings"

	"github.com/danieljhkim/treedit/internal/cache"
	"github.com/danieljhkim/treedit/internal/planner"
)

// Render writes every buffer in the cache as a document section, in the order
// returned by ParentURLs. Entries keep their cache order.
func Render(snapshotID string, c *cache.Cache, opts Options) []byte {
	var b strings.Builder
	width := idWidth(c.Len())

	if snapshotID != "" {
		b.WriteString(snapshotDirective + snapshotID + "\n")
	}

	for i, bufferURL := range c.ParentURLs() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(headerPrefix + bufferURL + "\n")
		for _, e := range c.List(bufferURL) {
			b.WriteString(renderLine(e, width, opts))
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

func renderLine(e planner.Entry, width int, opts Options) string {
	parts := []string{fmt.Sprintf("/%0*d", width, e.ID)}
	if opts.HasColumn(ColumnPermissions) {
		parts = append(parts, FormatMode(e.Mode))
	}
	parts = append(parts, formatName(e.Name, e.Type == planner.EntryDirectory, e.Link))
	return strings.Join(parts, " ")
}
