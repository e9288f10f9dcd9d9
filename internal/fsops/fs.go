// Package fsops provides the filesystem operations adapters execute.
//
// Every mutation treedit performs goes through the FS interface. The single
// implementation wraps an afero.Fs, so the same code drives the real disk,
// an in-memory scratch tree, and a sandbox used to rehearse a plan.
//
// Key features:
//   - Exclusive creates that never overwrite an existing path
//   - Recursive copy that preserves modes and copies links as links
//   - Atomic writes using temp file + rename
//   - Symlink emulation on filesystems without native links
package fsops

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrExists is returned when an operation would overwrite an existing path.
var ErrExists = errors.New("path already exists")

// FS provides an abstraction for filesystem operations.
type FS interface {
	// Lstat returns file info without following symlinks.
	Lstat(path string) (os.FileInfo, error)

	// Readlink reads the target of a symlink.
	Readlink(path string) (string, error)

	// ReadDir lists a directory without following symlinks, sorted by name.
	ReadDir(path string) ([]os.FileInfo, error)

	// Mkdir creates a single directory. The parent must exist.
	Mkdir(path string, perm os.FileMode) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm os.FileMode) error

	// CreateFile creates an empty file, failing if the path exists.
	CreateFile(path string, perm os.FileMode) error

	// Symlink creates newname pointing at oldname.
	Symlink(oldname, newname string) error

	// Remove removes a file or empty directory.
	Remove(path string) error

	// RemoveAll removes a path and all its contents.
	RemoveAll(path string) error

	// Rename moves oldpath to newpath.
	Rename(oldpath, newpath string) error

	// Chmod changes the permission bits of path.
	Chmod(path string, mode os.FileMode) error

	// Copy recursively copies src to dst. dst must not exist.
	Copy(src, dst string) error

	// AtomicWrite writes data to path atomically using temp file + rename.
	AtomicWrite(path string, data []byte, perm os.FileMode) error

	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// Exists checks if a path exists. Dangling links exist.
	Exists(path string) (bool, error)
}

// linkMarker prefixes the content of files standing in for symlinks on
// filesystems that have none.
var linkMarker = []byte("\x00treedit-symlink\x00")

// AferoFS implements FS on top of an afero.Fs.
type AferoFS struct {
	fs afero.Fs

	// emulateLinks is set for filesystems without native symlinks
	emulateLinks bool
}

// NewAferoFS wraps an afero filesystem.
func NewAferoFS(fs afero.Fs) *AferoFS {
	_, native := fs.(*afero.OsFs)
	return &AferoFS{fs: fs, emulateLinks: !native}
}

// NewOSFS returns an FS backed by the operating system.
func NewOSFS() *AferoFS {
	return NewAferoFS(afero.NewOsFs())
}

// NewMemFS returns an empty in-memory FS.
func NewMemFS() *AferoFS {
	return NewAferoFS(afero.NewMemMapFs())
}

// NewSandboxFS returns an FS that reads through to the operating system and
// keeps every change in memory. Only paths that are written are copied into
// memory; changes made to the sandbox never reach the disk.
func NewSandboxFS() *AferoFS {
	return NewAferoFS(newSandboxFs())
}

// Afero returns the underlying afero filesystem.
func (a *AferoFS) Afero() afero.Fs {
	return a.fs
}

// Lstat returns file info without following symlinks.
func (a *AferoFS) Lstat(path string) (os.FileInfo, error) {
	var (
		info os.FileInfo
		err  error
	)
	if lstater, ok := a.fs.(afero.Lstater); ok {
		info, _, err = lstater.LstatIfPossible(path)
	} else {
		info, err = a.fs.Stat(path)
	}
	if err != nil {
		return nil, err
	}
	if a.emulateLinks && info.Mode().IsRegular() {
		if _, ok := a.readMarker(path, info); ok {
			return linkInfo{info}, nil
		}
	}
	return info, nil
}

// Readlink reads the target of a symlink.
func (a *AferoFS) Readlink(path string) (string, error) {
	if a.emulateLinks {
		info, err := a.fs.Stat(path)
		if err == nil {
			if target, ok := a.readMarker(path, info); ok {
				return target, nil
			}
		}
	}
	if reader, ok := a.fs.(afero.LinkReader); ok {
		return reader.ReadlinkIfPossible(path)
	}
	return "", &os.PathError{Op: "readlink", Path: path, Err: os.ErrInvalid}
}

func (a *AferoFS) readMarker(path string, info os.FileInfo) (string, bool) {
	if info.Size() < int64(len(linkMarker)) || info.Size() > int64(len(linkMarker))+4096 {
		return "", false
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil || !bytes.HasPrefix(data, linkMarker) {
		return "", false
	}
	return string(data[len(linkMarker):]), true
}

// ReadDir lists a directory without following symlinks, sorted by name.
func (a *AferoFS) ReadDir(path string) ([]os.FileInfo, error) {
	dir, err := a.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = dir.Close()
	}()

	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	sort.Strings(names)

	infos := make([]os.FileInfo, 0, len(names))
	for _, name := range names {
		info, err := a.Lstat(filepath.Join(path, name))
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Mkdir creates a single directory. The parent must exist.
func (a *AferoFS) Mkdir(path string, perm os.FileMode) error {
	if err := a.requireAbsent(path); err != nil {
		return err
	}
	if err := a.requireDir(filepath.Dir(path)); err != nil {
		return err
	}
	return a.fs.Mkdir(path, perm)
}

// MkdirAll creates a directory and all parent directories.
func (a *AferoFS) MkdirAll(path string, perm os.FileMode) error {
	return a.fs.MkdirAll(path, perm)
}

// CreateFile creates an empty file, failing if the path exists.
func (a *AferoFS) CreateFile(path string, perm os.FileMode) error {
	if err := a.requireAbsent(path); err != nil {
		return err
	}
	if err := a.requireDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := a.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	return f.Close()
}

// Symlink creates newname pointing at oldname.
func (a *AferoFS) Symlink(oldname, newname string) error {
	if err := a.requireAbsent(newname); err != nil {
		return err
	}
	if err := a.requireDir(filepath.Dir(newname)); err != nil {
		return err
	}
	if linker, ok := a.fs.(afero.Linker); ok {
		err := linker.SymlinkIfPossible(oldname, newname)
		if err == nil || !errors.Is(err, afero.ErrNoSymlink) {
			return err
		}
	}
	if !a.emulateLinks {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: afero.ErrNoSymlink}
	}
	data := append(append([]byte(nil), linkMarker...), oldname...)
	return afero.WriteFile(a.fs, newname, data, 0777)
}

// Remove removes a file or empty directory.
func (a *AferoFS) Remove(path string) error {
	return a.fs.Remove(path)
}

// RemoveAll removes a path and all its contents. Removing a missing path is
// an error.
func (a *AferoFS) RemoveAll(path string) error {
	if _, err := a.Lstat(path); err != nil {
		return err
	}
	return a.fs.RemoveAll(path)
}

// Rename moves oldpath to newpath. The destination must not exist and its
// parent must.
func (a *AferoFS) Rename(oldpath, newpath string) error {
	if _, err := a.Lstat(oldpath); err != nil {
		return err
	}
	if err := a.requireAbsent(newpath); err != nil {
		return err
	}
	if err := a.requireDir(filepath.Dir(newpath)); err != nil {
		return err
	}
	return a.fs.Rename(oldpath, newpath)
}

// Chmod changes the permission bits of path.
func (a *AferoFS) Chmod(path string, mode os.FileMode) error {
	return a.fs.Chmod(path, mode&os.ModePerm)
}

// Copy recursively copies src to dst. Links are copied as links and modes
// are preserved. dst must not exist.
func (a *AferoFS) Copy(src, dst string) error {
	if strings.HasPrefix(dst, strings.TrimSuffix(src, string(filepath.Separator))+string(filepath.Separator)) {
		return fmt.Errorf("cannot copy %s into itself", src)
	}
	if err := a.requireAbsent(dst); err != nil {
		return err
	}
	if err := a.requireDir(filepath.Dir(dst)); err != nil {
		return err
	}
	return copyBetween(a, a, src, dst)
}

// CopyAcross recursively copies src in one filesystem to dst in another.
// dst must not exist.
func CopyAcross(from, to *AferoFS, src, dst string) error {
	if err := to.requireAbsent(dst); err != nil {
		return err
	}
	if err := to.requireDir(filepath.Dir(dst)); err != nil {
		return err
	}
	return copyBetween(from, to, src, dst)
}

// copyBetween copies src in from to dst in to.
func copyBetween(from, to *AferoFS, src, dst string) error {
	info, err := from.Lstat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := from.Readlink(src)
		if err != nil {
			return fmt.Errorf("failed to read link: %w", err)
		}
		return to.Symlink(target, dst)

	case info.IsDir():
		// Owner write is needed to fill the directory; the real mode is
		// applied once the children are in place.
		if err := to.fs.MkdirAll(dst, info.Mode().Perm()|0700); err != nil {
			return fmt.Errorf("failed to create destination directory: %w", err)
		}
		children, err := from.ReadDir(src)
		if err != nil {
			return fmt.Errorf("failed to read source directory: %w", err)
		}
		for _, child := range children {
			if err := copyBetween(from, to, filepath.Join(src, child.Name()), filepath.Join(dst, child.Name())); err != nil {
				return err
			}
		}
		return to.fs.Chmod(dst, info.Mode().Perm())

	default:
		return copyFile(from, to, src, dst, info.Mode().Perm())
	}
}

func copyFile(from, to *AferoFS, src, dst string, mode os.FileMode) error {
	srcFile, err := from.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := to.fs.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer func() {
		_ = dstFile.Close()
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	return dstFile.Sync()
}

// AtomicWrite writes data to path atomically using temp file + rename.
func (a *AferoFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := a.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmpFile, err := afero.TempFile(a.fs, dir, ".treedit-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = a.fs.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := a.fs.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := a.fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	tmpFile = nil
	return nil
}

// ReadFile reads the entire contents of a file.
func (a *AferoFS) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(a.fs, path)
}

// Exists checks if a path exists. Dangling links exist.
func (a *AferoFS) Exists(path string) (bool, error) {
	_, err := a.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (a *AferoFS) requireAbsent(path string) error {
	exists, err := a.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	return nil
}

func (a *AferoFS) requireDir(path string) error {
	info, err := a.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("parent directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("parent %s is not a directory", path)
	}
	return nil
}

// ValidateName validates a single entry name for safety.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("invalid name: empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("invalid name %q: must not contain path separators", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid name %q: path traversal not allowed", name)
	}
	return nil
}

// linkInfo reports an emulated link as a symlink.
type linkInfo struct {
	os.FileInfo
}

func (l linkInfo) Mode() os.FileMode {
	return os.ModeSymlink | 0777
}
