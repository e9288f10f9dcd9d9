package adapter

import (
	"fmt"
	"sort"

	"github.com/danieljhkim/treedit/internal/fsurl"
	"github.com/danieljhkim/treedit/internal/listing"
	"github.com/danieljhkim/treedit/internal/planner"
)

// SourceLinker is implemented by adapters that read from the storage of
// other adapters when copying or moving across schemes.
type SourceLinker interface {
	LinkSource(other Adapter)
}

// Registry maps URL schemes to adapters. It satisfies planner.AdapterSet,
// planner.MovePolicy, planner.PathChecker and listing.ErrorFilter.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a Registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter, replacing any adapter for the same scheme.
func (r *Registry) Register(a Adapter) {
	for _, other := range r.adapters {
		if other.Scheme() == a.Scheme() {
			continue
		}
		if linker, ok := a.(SourceLinker); ok {
			linker.LinkSource(other)
		}
		if linker, ok := other.(SourceLinker); ok {
			linker.LinkSource(a)
		}
	}
	r.adapters[a.Scheme()] = a
}

// Schemes returns the registered schemes, sorted.
func (r *Registry) Schemes() []string {
	schemes := make([]string, 0, len(r.adapters))
	for s := range r.adapters {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Get returns the adapter for scheme.
func (r *Registry) Get(scheme string) (Adapter, error) {
	a, ok := r.adapters[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for scheme %q", planner.ErrMissingAdapter, scheme)
	}
	return a, nil
}

// ForURL returns the adapter owning url.
func (r *Registry) ForURL(url string) (Adapter, error) {
	return r.Get(fsurl.Scheme(url))
}

// ForAction returns the adapter that executes a, selected by its target URL.
func (r *Registry) ForAction(a *planner.Action) (Adapter, error) {
	return r.ForURL(a.Target())
}

// FilterAction reports whether the adapter owning the action's target
// accepts it.
func (r *Registry) FilterAction(a *planner.Action) (bool, error) {
	ad, err := r.ForAction(a)
	if err != nil {
		return false, err
	}
	if filter, ok := ad.(ActionFilter); ok {
		return filter.FilterAction(a), nil
	}
	return true, nil
}

// PathExists reports whether url is known to exist. Unknown schemes and
// adapters without an existence check report false.
func (r *Registry) PathExists(url string) bool {
	ad, err := r.ForURL(url)
	if err != nil {
		return false
	}
	if ex, ok := ad.(Existence); ok {
		return ex.Exists(url)
	}
	return false
}

// CanMove reports whether a move from src to dest can be performed as a
// single operation.
func (r *Registry) CanMove(srcURL, destURL string) bool {
	srcScheme, destScheme := fsurl.Scheme(srcURL), fsurl.Scheme(destURL)
	if srcScheme == destScheme {
		return true
	}
	ad, err := r.Get(srcScheme)
	if err != nil {
		return false
	}
	if mover, ok := ad.(CrossMover); ok {
		return mover.CanMoveTo(destScheme)
	}
	return false
}

// FilterError lets the adapter owning the error's buffer drop it.
func (r *Registry) FilterError(e *listing.ParseError) bool {
	if e.Buffer == "" {
		return true
	}
	ad, err := r.ForURL(e.Buffer)
	if err != nil {
		return true
	}
	if filter, ok := ad.(listing.ErrorFilter); ok {
		return filter.FilterError(e)
	}
	return true
}
