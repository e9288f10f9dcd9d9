package planner

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/treedit/internal/fsurl"
)

// fakeEntries is an in-memory EntryLookup
type fakeEntries struct {
	entries map[int]Entry
	parents map[int]string
}

func newFakeEntries() *fakeEntries {
	return &fakeEntries{
		entries: make(map[int]Entry),
		parents: make(map[int]string),
	}
}

func (f *fakeEntries) add(id int, parentURL, name string, typ EntryType) {
	f.entries[id] = Entry{ID: id, Name: name, Type: typ}
	f.parents[id] = parentURL
}

func (f *fakeEntries) EntryByID(id int) (Entry, bool) {
	e, ok := f.entries[id]
	return e, ok
}

func (f *fakeEntries) ParentURL(id int) (string, bool) {
	p, ok := f.parents[id]
	return p, ok
}

// fakeAdapters is an AdapterSet that knows the given schemes
type fakeAdapters struct {
	schemes map[string]bool
	exists  map[string]bool
	veto    func(*Action) bool
	checked []string
}

func newFakeAdapters(schemes ...string) *fakeAdapters {
	if len(schemes) == 0 {
		schemes = []string{"file"}
	}
	f := &fakeAdapters{
		schemes: make(map[string]bool),
		exists:  make(map[string]bool),
	}
	for _, s := range schemes {
		f.schemes[s] = true
	}
	return f
}

func (f *fakeAdapters) FilterAction(a *Action) (bool, error) {
	if !f.schemes[fsurl.Scheme(a.Target())] {
		return false, fmt.Errorf("%w: %s", ErrMissingAdapter, a.Target())
	}
	if f.veto != nil && f.veto(a) {
		return false, nil
	}
	return true, nil
}

func (f *fakeAdapters) PathExists(url string) bool {
	f.checked = append(f.checked, url)
	return f.exists[url]
}

// fixedNamer returns tmp1, tmp2, ... next to the source.
type fixedNamer struct {
	n int
}

func (f *fixedNamer) TempURL(src string) string {
	f.n++
	return fmt.Sprintf("%s.tmp%d", src, f.n)
}

// fsModel is a flat map of URL to contents used to replay ordered actions.
// Directories hold the empty string.
type fsModel map[string]string

func (m fsModel) exists(url string) bool {
	if fsurl.IsRoot(url) {
		return true
	}
	_, ok := m[url]
	return ok
}

func (m fsModel) subtree(url string) []string {
	var out []string
	for k := range m {
		if k == url || fsurl.IsDescendant(k, url) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// replay applies actions in order and fails the test on the first action
// that would fail against a real filesystem.
func replay(t *testing.T, m fsModel, actions []*Action) {
	t.Helper()
	for i, a := range actions {
		switch a.Type {
		case ActionCreate:
			require.Falsef(t, m.exists(a.URL), "step %d %s: target exists", i, a)
			require.Truef(t, m.exists(fsurl.Parent(a.URL)), "step %d %s: parent missing", i, a)
			m[a.URL] = ""
		case ActionDelete:
			require.Truef(t, m.exists(a.URL), "step %d %s: target missing", i, a)
			for _, k := range m.subtree(a.URL) {
				delete(m, k)
			}
		case ActionMove, ActionCopy:
			require.Truef(t, m.exists(a.SrcURL), "step %d %s: source missing", i, a)
			require.Falsef(t, m.exists(a.DestURL), "step %d %s: destination exists", i, a)
			require.Truef(t, m.exists(fsurl.Parent(a.DestURL)), "step %d %s: destination parent missing", i, a)
			for _, k := range m.subtree(a.SrcURL) {
				m[a.DestURL+strings.TrimPrefix(k, a.SrcURL)] = m[k]
				if a.Type == ActionMove {
					delete(m, k)
				}
			}
		case ActionChange:
			require.Truef(t, m.exists(a.URL), "step %d %s: target missing", i, a)
		}
	}
}

func indexOf(actions []*Action, want *Action) int {
	for i, a := range actions {
		if a == want {
			return i
		}
	}
	return -1
}

func strs(actions []*Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.String())
	}
	return out
}
