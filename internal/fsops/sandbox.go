package fsops

import (
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
)

// sandboxFs overlays an in-memory layer on a read-only view of the
// operating system. Reads fall through to the disk until a path is written;
// a write copies only that path (and its parent directories) into the layer.
// Disk paths removed in the sandbox are masked rather than copied.
//
// Reads and file copy-up go through an afero.CopyOnWriteFs. It has no notion
// of removing or renaming base paths, so those are handled here with the mask.
// Not safe for concurrent use.
type sandboxFs struct {
	base   afero.Fs
	layer  afero.Fs
	cow    *afero.CopyOnWriteFs
	masked map[string]bool
}

func newSandboxFs() *sandboxFs {
	base := afero.NewReadOnlyFs(afero.NewOsFs())
	layer := afero.NewMemMapFs()
	return &sandboxFs{
		base:   base,
		layer:  layer,
		cow:    afero.NewCopyOnWriteFs(base, layer).(*afero.CopyOnWriteFs),
		masked: make(map[string]bool),
	}
}

var (
	_ afero.Fs         = (*sandboxFs)(nil)
	_ afero.Lstater    = (*sandboxFs)(nil)
	_ afero.LinkReader = (*sandboxFs)(nil)
)

func (s *sandboxFs) Name() string { return "SandboxFs" }

// isMasked reports whether name or one of its parents was removed from the
// disk view.
func (s *sandboxFs) isMasked(name string) bool {
	for p := name; ; p = filepath.Dir(p) {
		if s.masked[p] {
			return true
		}
		if filepath.Dir(p) == p {
			return false
		}
	}
}

func (s *sandboxFs) inLayer(name string) bool {
	_, err := s.layer.Stat(name)
	return err == nil
}

func (s *sandboxFs) lstatBase(name string) (os.FileInfo, error) {
	if l, ok := s.base.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(name)
		return info, err
	}
	return s.base.Stat(name)
}

func (s *sandboxFs) onDisk(name string) bool {
	if s.isMasked(name) {
		return false
	}
	_, err := s.lstatBase(name)
	return err == nil
}

func (s *sandboxFs) exists(name string) bool {
	return s.inLayer(name) || s.onDisk(name)
}

// mask hides the disk copy of name, if there is one.
func (s *sandboxFs) mask(name string) {
	if _, err := s.lstatBase(name); err == nil {
		s.masked[name] = true
	}
}

// ensureLayerDir copies dir and its parents into the layer, keeping the
// permissions they have on disk.
func (s *sandboxFs) ensureLayerDir(dir string) error {
	if info, err := s.layer.Stat(dir); err == nil {
		if !info.IsDir() {
			return &os.PathError{Op: "mkdir", Path: dir, Err: syscall.ENOTDIR}
		}
		return nil
	}
	if !s.onDisk(dir) {
		return &os.PathError{Op: "mkdir", Path: dir, Err: os.ErrNotExist}
	}
	info, err := s.base.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "mkdir", Path: dir, Err: syscall.ENOTDIR}
	}
	if parent := filepath.Dir(dir); parent != dir {
		if err := s.ensureLayerDir(parent); err != nil {
			return err
		}
	}
	return s.layer.Mkdir(dir, info.Mode().Perm())
}

// copyUp moves name into the layer so its metadata can change.
func (s *sandboxFs) copyUp(name string) error {
	if s.inLayer(name) {
		return nil
	}
	if !s.onDisk(name) {
		return &os.PathError{Op: "copyup", Path: name, Err: os.ErrNotExist}
	}
	info, err := s.lstatBase(name)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return s.ensureLayerDir(name)
	}
	if err := s.ensureLayerDir(filepath.Dir(name)); err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := s.readlinkBase(name)
		if err != nil {
			return err
		}
		data := append(append([]byte(nil), linkMarker...), target...)
		return afero.WriteFile(s.layer, name, data, 0777)
	}
	f, err := s.cow.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	return f.Close()
}

func (s *sandboxFs) readlinkBase(name string) (string, error) {
	if r, ok := s.base.(afero.LinkReader); ok {
		return r.ReadlinkIfPossible(name)
	}
	return "", &os.PathError{Op: "readlink", Path: name, Err: afero.ErrNoReadlink}
}

func (s *sandboxFs) Stat(name string) (os.FileInfo, error) {
	name = filepath.Clean(name)
	if s.isMasked(name) {
		return s.layer.Stat(name)
	}
	return s.cow.Stat(name)
}

func (s *sandboxFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	name = filepath.Clean(name)
	if info, err := s.layer.Stat(name); err == nil {
		return info, false, nil
	}
	if s.isMasked(name) {
		return nil, false, &os.PathError{Op: "lstat", Path: name, Err: os.ErrNotExist}
	}
	info, err := s.lstatBase(name)
	return info, true, err
}

func (s *sandboxFs) ReadlinkIfPossible(name string) (string, error) {
	name = filepath.Clean(name)
	if s.inLayer(name) || !s.onDisk(name) {
		return "", &os.PathError{Op: "readlink", Path: name, Err: os.ErrInvalid}
	}
	return s.readlinkBase(name)
}

func (s *sandboxFs) Open(name string) (afero.File, error) {
	name = filepath.Clean(name)
	if s.isMasked(name) {
		return s.layer.Open(name)
	}
	info, err := s.cow.Stat(name)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return s.cow.Open(name)
	}
	return s.openDir(name)
}

// openDir merges the layer and disk listings of name, dropping masked disk
// entries.
func (s *sandboxFs) openDir(name string) (afero.File, error) {
	f := &afero.UnionFile{Merger: s.merger(name)}
	if s.inLayer(name) {
		lf, err := s.layer.Open(name)
		if err != nil {
			return nil, err
		}
		f.Layer = lf
	}
	if info, err := s.base.Stat(name); err == nil && info.IsDir() {
		bf, err := s.base.Open(name)
		if err != nil {
			if f.Layer != nil {
				_ = f.Layer.Close()
			}
			return nil, err
		}
		f.Base = bf
	}
	return f, nil
}

func (s *sandboxFs) merger(dir string) afero.DirsMerger {
	return func(lofi, bofi []os.FileInfo) ([]os.FileInfo, error) {
		seen := make(map[string]bool, len(lofi))
		merged := make([]os.FileInfo, 0, len(lofi)+len(bofi))
		for _, fi := range lofi {
			seen[fi.Name()] = true
			merged = append(merged, fi)
		}
		for _, fi := range bofi {
			if seen[fi.Name()] || s.isMasked(filepath.Join(dir, fi.Name())) {
				continue
			}
			merged = append(merged, fi)
		}
		return merged, nil
	}
}

func (s *sandboxFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	name = filepath.Clean(name)
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) == 0 {
		return s.Open(name)
	}
	if flag&os.O_EXCL != 0 && s.exists(name) {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrExist}
	}
	if err := s.ensureLayerDir(filepath.Dir(name)); err != nil {
		return nil, err
	}
	if s.isMasked(name) {
		return s.layer.OpenFile(name, flag, perm)
	}
	return s.cow.OpenFile(name, flag, perm)
}

func (s *sandboxFs) Create(name string) (afero.File, error) {
	return s.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (s *sandboxFs) Mkdir(name string, perm os.FileMode) error {
	name = filepath.Clean(name)
	if s.exists(name) {
		return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrExist}
	}
	if err := s.ensureLayerDir(filepath.Dir(name)); err != nil {
		return err
	}
	return s.layer.Mkdir(name, perm)
}

func (s *sandboxFs) MkdirAll(name string, perm os.FileMode) error {
	name = filepath.Clean(name)
	if info, err := s.Stat(name); err == nil {
		if info.IsDir() {
			return nil
		}
		return &os.PathError{Op: "mkdir", Path: name, Err: syscall.ENOTDIR}
	}
	if parent := filepath.Dir(name); parent != name {
		if err := s.MkdirAll(parent, perm); err != nil {
			return err
		}
	}
	return s.Mkdir(name, perm)
}

func (s *sandboxFs) Remove(name string) error {
	name = filepath.Clean(name)
	info, _, err := s.LstatIfPossible(name)
	if err != nil {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
	}
	if info.IsDir() {
		dir, err := s.Open(name)
		if err != nil {
			return err
		}
		names, err := dir.Readdirnames(-1)
		_ = dir.Close()
		if err != nil {
			return err
		}
		if len(names) > 0 {
			return &os.PathError{Op: "remove", Path: name, Err: syscall.ENOTEMPTY}
		}
	}
	if s.inLayer(name) {
		if err := s.layer.Remove(name); err != nil {
			return err
		}
	}
	s.mask(name)
	return nil
}

func (s *sandboxFs) RemoveAll(name string) error {
	name = filepath.Clean(name)
	if s.inLayer(name) {
		if err := s.layer.RemoveAll(name); err != nil {
			return err
		}
	}
	s.mask(name)
	return nil
}

// Rename moves layer-only paths inside the layer. A path still backed by the
// disk is copied into the layer under its new name and masked at the old one.
func (s *sandboxFs) Rename(oldname, newname string) error {
	oldname, newname = filepath.Clean(oldname), filepath.Clean(newname)
	if !s.exists(oldname) {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrNotExist}
	}
	if err := s.ensureLayerDir(filepath.Dir(newname)); err != nil {
		return err
	}

	if s.onDisk(oldname) {
		if s.exists(newname) {
			if err := s.RemoveAll(newname); err != nil {
				return err
			}
		}
		view := &AferoFS{fs: s, emulateLinks: true}
		if err := copyBetween(view, view, oldname, newname); err != nil {
			return err
		}
		return s.RemoveAll(oldname)
	}

	s.mask(newname)
	return s.layer.Rename(oldname, newname)
}

func (s *sandboxFs) Chmod(name string, mode os.FileMode) error {
	name = filepath.Clean(name)
	if err := s.copyUp(name); err != nil {
		return err
	}
	return s.layer.Chmod(name, mode)
}

func (s *sandboxFs) Chown(name string, uid, gid int) error {
	name = filepath.Clean(name)
	if err := s.copyUp(name); err != nil {
		return err
	}
	return s.layer.Chown(name, uid, gid)
}

func (s *sandboxFs) Chtimes(name string, atime, mtime time.Time) error {
	name = filepath.Clean(name)
	if err := s.copyUp(name); err != nil {
		return err
	}
	return s.layer.Chtimes(name, atime, mtime)
}
