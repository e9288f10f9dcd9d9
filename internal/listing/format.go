// Package listing implements the editable text form of directory contents.
//
// A listing document is a sequence of sections, one per directory:
//
//	#! treedit 3f2a9c1d7e4b
//	# file:///home/me/project
//	/001 rwxr-xr-x src/
//	/002 rw-r--r-- README.md
//	/003 rwxrwxrwx latest -> build/v2
//	newdir/nested/file.go
//
// Lines that start with /<digits> refer to an entry rendered earlier and
// carry its stable id. Directories end with a slash and links show their
// target after " -> ". Lines without an id are new entries and may name
// nested paths or {a,b} alternatives.
//
// Key responsibilities:
//   - Render cached entries into a document
//   - Parse an edited document into sections and lines
//   - Compare parsed sections against the cache to produce planner diffs
package listing

import (
	"fmt"
	"os"
	"strings"
)

// ColumnPermissions is the only optional column.
const ColumnPermissions = "permissions"

const (
	snapshotDirective = "#! treedit "
	headerPrefix      = "# "
	linkSep           = " -> "
	minIDWidth        = 3
)

// Options controls which columns appear in a document.
type Options struct {
	Columns []string
}

// HasColumn reports whether the named column is enabled.
func (o Options) HasColumn(name string) bool {
	for _, c := range o.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Validate rejects unknown columns.
func (o Options) Validate() error {
	for _, c := range o.Columns {
		if c != ColumnPermissions {
			return fmt.Errorf("unknown listing column %q", c)
		}
	}
	return nil
}

// FormatMode renders permission bits as rwxr-xr-x.
func FormatMode(mode os.FileMode) string {
	return mode.Perm().String()[1:]
}

// ParseMode parses a rwxr-xr-x permission string.
func ParseMode(s string) (os.FileMode, error) {
	if len(s) != 9 {
		return 0, fmt.Errorf("invalid permissions %q", s)
	}
	const letters = "rwxrwxrwx"
	var mode os.FileMode
	for i := 0; i < 9; i++ {
		switch s[i] {
		case letters[i]:
			mode |= 1 << uint(8-i)
		case '-':
		default:
			return 0, fmt.Errorf("invalid permissions %q", s)
		}
	}
	return mode, nil
}

func looksLikeMode(s string) bool {
	_, err := ParseMode(s)
	return err == nil
}

func idWidth(maxID int) int {
	w := len(fmt.Sprint(maxID))
	if w < minIDWidth {
		return minIDWidth
	}
	return w
}

// formatName renders the name part of a line.
func formatName(name string, isDir bool, link string) string {
	switch {
	case link != "":
		return name + linkSep + link
	case isDir:
		return name + "/"
	default:
		return name
	}
}

// splitName parses the name part of a line into name, directory flag and
// link target.
func splitName(s string) (name string, isDir bool, link string) {
	if idx := strings.Index(s, linkSep); idx >= 0 {
		return s[:idx], false, s[idx+len(linkSep):]
	}
	if strings.HasSuffix(s, "/") {
		return strings.TrimRight(s, "/"), true, ""
	}
	return s, false, ""
}
