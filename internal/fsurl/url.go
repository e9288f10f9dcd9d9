// Package fsurl handles the scheme://path URLs that identify entries.
//
// URLs are opaque to most of treedit: they are trie keys for the scheduler
// and dispatch keys for adapters. This package is the only place that knows
// how one is put together. Paths are always absolute and slash separated, and
// carry no trailing slash except for the root ("file:///").
package fsurl

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

const sep = "://"

// Parse splits a URL into its scheme and cleaned absolute path.
func Parse(u string) (scheme, p string, err error) {
	idx := strings.Index(u, sep)
	if idx <= 0 {
		return "", "", fmt.Errorf("invalid url %q: missing scheme", u)
	}
	scheme = u[:idx]
	p = u[idx+len(sep):]
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		return "", "", fmt.Errorf("invalid url %q: path must be absolute", u)
	}
	return scheme, path.Clean(p), nil
}

// New builds a URL from a scheme and a slash-separated path.
func New(scheme, p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return scheme + sep + path.Clean(p)
}

// FromPath converts a local filesystem path into a file:// URL.
func FromPath(localPath string) (string, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", localPath, err)
	}
	return New("file", filepath.ToSlash(abs)), nil
}

// Scheme returns the scheme of u, or "" when u is malformed.
func Scheme(u string) string {
	scheme, _, err := Parse(u)
	if err != nil {
		return ""
	}
	return scheme
}

// Path returns the path part of u, or "" when u is malformed.
func Path(u string) string {
	_, p, err := Parse(u)
	if err != nil {
		return ""
	}
	return p
}

// Join appends a (possibly nested) relative name to a directory URL.
func Join(dir, name string) string {
	scheme, p, err := Parse(dir)
	if err != nil {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return New(scheme, path.Join(p, name))
}

// Parent returns the URL of the directory containing u. The root is its own
// parent.
func Parent(u string) string {
	scheme, p, err := Parse(u)
	if err != nil {
		return u
	}
	return New(scheme, path.Dir(p))
}

// Base returns the last path component of u.
func Base(u string) string {
	return path.Base(Path(u))
}

// IsRoot reports whether u names the root of its scheme.
func IsRoot(u string) bool {
	return Path(u) == "/"
}

// Segments returns the trie key for u: the scheme followed by each non-empty
// path component.
func Segments(u string) []string {
	scheme, p, err := Parse(u)
	if err != nil {
		return []string{u}
	}
	segs := []string{scheme}
	for _, part := range strings.Split(p, "/") {
		if part != "" {
			segs = append(segs, part)
		}
	}
	return segs
}

// IsDescendant reports whether child lies strictly below ancestor.
func IsDescendant(child, ancestor string) bool {
	cs, cp, err := Parse(child)
	if err != nil {
		return false
	}
	as, ap, err := Parse(ancestor)
	if err != nil || cs != as || cp == ap {
		return false
	}
	if ap == "/" {
		return true
	}
	return strings.HasPrefix(cp, ap+"/")
}
