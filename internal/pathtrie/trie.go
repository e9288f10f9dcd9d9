// Package pathtrie provides a prefix tree keyed by URL path segments.
//
// A Trie is a multi-map from a URL to the values anchored at exactly that
// URL. Besides insertion and removal it answers the three path-relationship
// queries the scheduler needs: nearest populated ancestor, everything below a
// path, and everything at a path. Each query costs time proportional to the
// path depth or to the size of the visited subtree.
package pathtrie

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/danieljhkim/treedit/internal/fsurl"
)

// ErrNotFound is returned by Remove when the value is not stored at the path.
var ErrNotFound = errors.New("value not found in trie")

type node[V comparable] struct {
	children map[string]*node[V]
	values   []V
}

func newNode[V comparable]() *node[V] {
	return &node[V]{children: make(map[string]*node[V])}
}

// Trie maps URLs to the values stored at them.
type Trie[V comparable] struct {
	root *node[V]
	size int
}

// New creates an empty Trie.
func New[V comparable]() *Trie[V] {
	return &Trie[V]{root: newNode[V]()}
}

// Len returns the number of stored values.
func (t *Trie[V]) Len() int {
	return t.size
}

// Insert stores v at url.
func (t *Trie[V]) Insert(url string, v V) {
	current := t.root
	for _, seg := range fsurl.Segments(url) {
		next, ok := current.children[seg]
		if !ok {
			next = newNode[V]()
			current.children[seg] = next
		}
		current = next
	}
	current.values = append(current.values, v)
	t.size++
}

// Remove deletes one occurrence of v stored exactly at url. Nodes left
// without values or children are pruned.
func (t *Trie[V]) Remove(url string, v V) error {
	segs := fsurl.Segments(url)
	path := make([]*node[V], 0, len(segs)+1)
	current := t.root
	path = append(path, current)
	for _, seg := range segs {
		next, ok := current.children[seg]
		if !ok {
			return fmt.Errorf("%w: no node for %s", ErrNotFound, url)
		}
		current = next
		path = append(path, current)
	}

	idx := -1
	for i, existing := range current.values {
		if existing == v {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: at %s", ErrNotFound, url)
	}
	current.values = append(current.values[:idx], current.values[idx+1:]...)
	t.size--

	for i := len(segs); i > 0; i-- {
		n := path[i]
		if len(n.values) > 0 || len(n.children) > 0 {
			break
		}
		delete(path[i-1].children, segs[i-1])
	}
	return nil
}

// FirstParentsOf returns the values at the nearest strict ancestor of url
// that holds any values. It returns nil when no ancestor does.
func (t *Trie[V]) FirstParentsOf(url string) []V {
	segs := fsurl.Segments(url)
	var nearest []V
	current := t.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := current.children[seg]
		if !ok {
			break
		}
		current = next
		if len(current.values) > 0 {
			nearest = current.values
		}
	}
	if len(nearest) == 0 {
		return nil
	}
	return append([]V(nil), nearest...)
}

// ChildrenOf returns every value stored strictly below url that passes
// filter. A nil filter accepts everything. Values come out in path order,
// parents before their children.
func (t *Trie[V]) ChildrenOf(url string, filter func(V) bool) []V {
	n := t.find(url)
	if n == nil {
		return nil
	}
	var out []V
	for _, seg := range slices.Sorted(maps.Keys(n.children)) {
		out = collect(n.children[seg], filter, out)
	}
	return out
}

// ValuesAt returns the values stored exactly at url that pass filter.
func (t *Trie[V]) ValuesAt(url string, filter func(V) bool) []V {
	n := t.find(url)
	if n == nil {
		return nil
	}
	var out []V
	for _, v := range n.values {
		if filter == nil || filter(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t *Trie[V]) find(url string) *node[V] {
	current := t.root
	for _, seg := range fsurl.Segments(url) {
		next, ok := current.children[seg]
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func collect[V comparable](n *node[V], filter func(V) bool, out []V) []V {
	for _, v := range n.values {
		if filter == nil || filter(v) {
			out = append(out, v)
		}
	}
	for _, seg := range slices.Sorted(maps.Keys(n.children)) {
		out = collect(n.children[seg], filter, out)
	}
	return out
}
