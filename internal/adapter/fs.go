package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/danieljhkim/treedit/internal/fsops"
	"github.com/danieljhkim/treedit/internal/fsurl"
	"github.com/danieljhkim/treedit/internal/listing"
	"github.com/danieljhkim/treedit/internal/logging"
	"github.com/danieljhkim/treedit/internal/planner"
)

// Schemes served by FSAdapter.
const (
	SchemeFile = "file"
	SchemeMem  = "mem"
)

// FSAdapter executes actions on a filesystem reached through fsops.
type FSAdapter struct {
	scheme  string
	fs      *fsops.AferoFS
	sources map[string]*fsops.AferoFS
	moveTo  map[string]bool
	logger  zerolog.Logger
}

// NewFSAdapter creates an adapter serving scheme on fs. Entries can be moved
// directly into the schemes listed in moveTo; moves elsewhere are planned as
// copy plus delete.
func NewFSAdapter(scheme string, fs *fsops.AferoFS, moveTo ...string) *FSAdapter {
	a := &FSAdapter{
		scheme:  scheme,
		fs:      fs,
		sources: make(map[string]*fsops.AferoFS),
		moveTo:  make(map[string]bool),
		logger:  logging.GetLogger("adapter." + scheme),
	}
	for _, s := range moveTo {
		a.moveTo[s] = true
	}
	return a
}

// NewFileAdapter serves file:// URLs on fs, normally fsops.NewOSFS() or a
// sandbox. Local entries can be moved into the mem scheme directly.
func NewFileAdapter(fs *fsops.AferoFS) *FSAdapter {
	return NewFSAdapter(SchemeFile, fs, SchemeMem)
}

// NewMemAdapter serves mem:// URLs on an in-memory scratch filesystem.
func NewMemAdapter(fs *fsops.AferoFS) *FSAdapter {
	return NewFSAdapter(SchemeMem, fs)
}

// Scheme returns the URL scheme the adapter owns.
func (a *FSAdapter) Scheme() string {
	return a.scheme
}

// FS returns the filesystem the adapter operates on.
func (a *FSAdapter) FS() *fsops.AferoFS {
	return a.fs
}

// LinkSource makes another filesystem adapter readable for cross-scheme
// copies.
func (a *FSAdapter) LinkSource(other Adapter) {
	if fa, ok := other.(*FSAdapter); ok {
		a.sources[fa.scheme] = fa.fs
	}
}

// CanMoveTo reports whether entries can be moved directly into scheme.
func (a *FSAdapter) CanMoveTo(scheme string) bool {
	return a.moveTo[scheme]
}

// FilterAction drops actions that would replace or remove the root.
func (a *FSAdapter) FilterAction(act *planner.Action) bool {
	for _, u := range []string{act.URL, act.SrcURL, act.DestURL} {
		if u != "" && fsurl.Scheme(u) == a.scheme && fsurl.IsRoot(u) {
			a.logger.Debug().Stringer("action", act).Msg("Ignoring action on filesystem root")
			return false
		}
	}
	return true
}

// Exists reports whether url exists.
func (a *FSAdapter) Exists(url string) bool {
	p, err := a.localPath(url)
	if err != nil {
		return false
	}
	exists, err := a.fs.Exists(p)
	return err == nil && exists
}

// localPath converts a URL of this scheme into a filesystem path.
func (a *FSAdapter) localPath(url string) (string, error) {
	scheme, p, err := fsurl.Parse(url)
	if err != nil {
		return "", err
	}
	if scheme != a.scheme {
		return "", fmt.Errorf("url %s does not belong to %s adapter", url, a.scheme)
	}
	return filepath.FromSlash(p), nil
}

// sourceFS resolves a source URL to the filesystem holding it and its path.
func (a *FSAdapter) sourceFS(url string) (*fsops.AferoFS, string, error) {
	scheme, p, err := fsurl.Parse(url)
	if err != nil {
		return nil, "", err
	}
	if scheme == a.scheme {
		return a.fs, filepath.FromSlash(p), nil
	}
	fs, ok := a.sources[scheme]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s adapter cannot read %s", ErrUnsupported, a.scheme, url)
	}
	return fs, filepath.FromSlash(p), nil
}

// Perform executes a create, delete, move or copy action.
func (a *FSAdapter) Perform(ctx context.Context, act *planner.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.logger.Debug().Stringer("action", act).Msg("Performing action")

	switch act.Type {
	case planner.ActionCreate:
		return a.create(act)
	case planner.ActionDelete:
		return a.delete(act)
	case planner.ActionMove:
		return a.move(act)
	case planner.ActionCopy:
		return a.copy(act)
	case planner.ActionChange:
		return a.PerformChange(ctx, act)
	default:
		return fmt.Errorf("%w: action type %q", ErrUnsupported, act.Type)
	}
}

func (a *FSAdapter) create(act *planner.Action) error {
	p, err := a.localPath(act.URL)
	if err != nil {
		return err
	}
	if err := fsops.ValidateName(filepath.Base(p)); err != nil {
		return err
	}

	switch act.EntryType {
	case planner.EntryDirectory:
		err = a.fs.Mkdir(p, 0755)
	case planner.EntryLink:
		if act.Link == "" {
			return fmt.Errorf("link %s has no target", act.URL)
		}
		err = a.fs.Symlink(act.Link, p)
	default:
		err = a.fs.CreateFile(p, 0644)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", act.URL, err)
	}
	return nil
}

func (a *FSAdapter) delete(act *planner.Action) error {
	p, err := a.localPath(act.URL)
	if err != nil {
		return err
	}
	if err := a.fs.RemoveAll(p); err != nil {
		return fmt.Errorf("failed to delete %s: %w", act.URL, err)
	}
	return nil
}

func (a *FSAdapter) move(act *planner.Action) error {
	dst, err := a.localPath(act.DestURL)
	if err != nil {
		return err
	}
	srcFS, src, err := a.sourceFS(act.SrcURL)
	if err != nil {
		return err
	}

	if srcFS == a.fs {
		if err := a.fs.Rename(src, dst); err != nil {
			return fmt.Errorf("failed to move %s: %w", act.SrcURL, err)
		}
		return nil
	}

	if err := fsops.CopyAcross(srcFS, a.fs, src, dst); err != nil {
		return fmt.Errorf("failed to move %s: %w", act.SrcURL, err)
	}
	if err := srcFS.RemoveAll(src); err != nil {
		return fmt.Errorf("failed to remove %s after moving it: %w", act.SrcURL, err)
	}
	return nil
}

func (a *FSAdapter) copy(act *planner.Action) error {
	dst, err := a.localPath(act.DestURL)
	if err != nil {
		return err
	}
	srcFS, src, err := a.sourceFS(act.SrcURL)
	if err != nil {
		return err
	}

	if srcFS == a.fs {
		err = a.fs.Copy(src, dst)
	} else {
		err = fsops.CopyAcross(srcFS, a.fs, src, dst)
	}
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", act.SrcURL, err)
	}
	return nil
}

// PerformChange applies a field change. Only the permissions column is
// supported.
func (a *FSAdapter) PerformChange(ctx context.Context, act *planner.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if act.Column != listing.ColumnPermissions {
		return fmt.Errorf("%w: column %q", ErrUnsupported, act.Column)
	}
	p, err := a.localPath(act.URL)
	if err != nil {
		return err
	}
	mode, err := listing.ParseMode(act.Value)
	if err != nil {
		return err
	}
	a.logger.Debug().Str("path", p).Str("mode", act.Value).Msg("Changing permissions")
	if err := a.fs.Chmod(p, mode); err != nil {
		return fmt.Errorf("failed to change permissions of %s: %w", act.URL, err)
	}
	return nil
}

// List returns the entries of the directory at url, directories first and
// then by name.
func (a *FSAdapter) List(ctx context.Context, url string, opts ListOptions) ([]planner.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := a.localPath(url)
	if err != nil {
		return nil, err
	}

	infos, err := a.fs.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", url, err)
	}

	entries := make([]planner.Entry, 0, len(infos))
	for _, info := range infos {
		if !opts.ShowHidden && strings.HasPrefix(info.Name(), ".") {
			continue
		}
		e := planner.Entry{Name: info.Name(), Mode: info.Mode().Perm()}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			e.Type = planner.EntryLink
			target, err := a.fs.Readlink(filepath.Join(p, info.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to read link %s: %w", info.Name(), err)
			}
			e.Link = target
		case info.IsDir():
			e.Type = planner.EntryDirectory
		default:
			e.Type = planner.EntryFile
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].Type == planner.EntryDirectory, entries[j].Type == planner.EntryDirectory
		if di != dj {
			return di
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
