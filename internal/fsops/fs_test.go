package fsops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantError bool
	}{
		{name: "plain file", in: "file.txt"},
		{name: "hidden file", in: ".hidden"},
		{name: "empty", in: "", wantError: true},
		{name: "current directory", in: ".", wantError: true},
		{name: "parent directory", in: "..", wantError: true},
		{name: "nested", in: "a/b", wantError: true},
		{name: "backslash", in: `a\b`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.in)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// backends runs fn against the OS and an in-memory filesystem.
func backends(t *testing.T, fn func(t *testing.T, fs *AferoFS, root string)) {
	t.Run("os", func(t *testing.T) {
		fn(t, NewOSFS(), t.TempDir())
	})
	t.Run("mem", func(t *testing.T) {
		fs := NewMemFS()
		require.NoError(t, fs.MkdirAll("/work", 0755))
		fn(t, fs, "/work")
	})
}

func TestAferoFS_CreateFile(t *testing.T) {
	backends(t, func(t *testing.T, fs *AferoFS, root string) {
		path := filepath.Join(root, "new.txt")
		require.NoError(t, fs.CreateFile(path, 0644))

		exists, err := fs.Exists(path)
		require.NoError(t, err)
		assert.True(t, exists)

		err = fs.CreateFile(path, 0644)
		assert.ErrorIs(t, err, ErrExists)

		err = fs.CreateFile(filepath.Join(root, "missing", "x"), 0644)
		assert.Error(t, err)
	})
}

func TestAferoFS_Mkdir(t *testing.T) {
	backends(t, func(t *testing.T, fs *AferoFS, root string) {
		dir := filepath.Join(root, "d")
		require.NoError(t, fs.Mkdir(dir, 0755))

		info, err := fs.Lstat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		assert.ErrorIs(t, fs.Mkdir(dir, 0755), ErrExists)
		assert.Error(t, fs.Mkdir(filepath.Join(root, "a", "b"), 0755))
	})
}

func TestAferoFS_Symlink(t *testing.T) {
	backends(t, func(t *testing.T, fs *AferoFS, root string) {
		link := filepath.Join(root, "latest")
		require.NoError(t, fs.Symlink("build/v2", link))

		info, err := fs.Lstat(link)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&os.ModeSymlink)

		target, err := fs.Readlink(link)
		require.NoError(t, err)
		assert.Equal(t, "build/v2", target)

		exists, err := fs.Exists(link)
		require.NoError(t, err)
		assert.True(t, exists, "dangling links still exist")

		assert.ErrorIs(t, fs.Symlink("other", link), ErrExists)
	})
}

func TestAferoFS_Rename(t *testing.T) {
	backends(t, func(t *testing.T, fs *AferoFS, root string) {
		src := filepath.Join(root, "src")
		require.NoError(t, fs.MkdirAll(filepath.Join(src, "inner"), 0755))
		require.NoError(t, fs.AtomicWrite(filepath.Join(src, "inner", "f.txt"), []byte("data"), 0644))

		dst := filepath.Join(root, "dst")
		require.NoError(t, fs.Rename(src, dst))

		data, err := fs.ReadFile(filepath.Join(dst, "inner", "f.txt"))
		require.NoError(t, err)
		assert.Equal(t, "data", string(data))

		exists, err := fs.Exists(src)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, fs.CreateFile(filepath.Join(root, "taken"), 0644))
		assert.ErrorIs(t, fs.Rename(dst, filepath.Join(root, "taken")), ErrExists)
	})
}

func TestAferoFS_Copy(t *testing.T) {
	backends(t, func(t *testing.T, fs *AferoFS, root string) {
		src := filepath.Join(root, "src")
		require.NoError(t, fs.MkdirAll(filepath.Join(src, "sub"), 0755))
		require.NoError(t, fs.AtomicWrite(filepath.Join(src, "a.txt"), []byte("A"), 0600))
		require.NoError(t, fs.AtomicWrite(filepath.Join(src, "sub", "b.txt"), []byte("B"), 0644))
		require.NoError(t, fs.Symlink("a.txt", filepath.Join(src, "link")))

		dst := filepath.Join(root, "copy")
		require.NoError(t, fs.Copy(src, dst))

		data, err := fs.ReadFile(filepath.Join(dst, "sub", "b.txt"))
		require.NoError(t, err)
		assert.Equal(t, "B", string(data))

		info, err := fs.Lstat(filepath.Join(dst, "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		target, err := fs.Readlink(filepath.Join(dst, "link"))
		require.NoError(t, err)
		assert.Equal(t, "a.txt", target)

		_, err = fs.Lstat(filepath.Join(src, "a.txt"))
		assert.NoError(t, err, "source is untouched")

		assert.ErrorIs(t, fs.Copy(src, dst), ErrExists)
		assert.Error(t, fs.Copy(src, filepath.Join(src, "sub", "again")))
	})
}

func TestAferoFS_Chmod(t *testing.T) {
	backends(t, func(t *testing.T, fs *AferoFS, root string) {
		path := filepath.Join(root, "f")
		require.NoError(t, fs.CreateFile(path, 0644))
		require.NoError(t, fs.Chmod(path, 0600))

		info, err := fs.Lstat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})
}

func TestAferoFS_ReadDir(t *testing.T) {
	backends(t, func(t *testing.T, fs *AferoFS, root string) {
		require.NoError(t, fs.CreateFile(filepath.Join(root, "b"), 0644))
		require.NoError(t, fs.Mkdir(filepath.Join(root, "a"), 0755))
		require.NoError(t, fs.Symlink("b", filepath.Join(root, "c")))

		infos, err := fs.ReadDir(root)
		require.NoError(t, err)
		require.Len(t, infos, 3)

		assert.Equal(t, "a", infos[0].Name())
		assert.True(t, infos[0].IsDir())
		assert.Equal(t, "b", infos[1].Name())
		assert.True(t, infos[1].Mode().IsRegular())
		assert.Equal(t, "c", infos[2].Name())
		assert.NotZero(t, infos[2].Mode()&os.ModeSymlink)
	})
}

func TestAferoFS_RemoveAll(t *testing.T) {
	backends(t, func(t *testing.T, fs *AferoFS, root string) {
		dir := filepath.Join(root, "tree")
		require.NoError(t, fs.MkdirAll(filepath.Join(dir, "x", "y"), 0755))
		require.NoError(t, fs.RemoveAll(dir))

		exists, err := fs.Exists(dir)
		require.NoError(t, err)
		assert.False(t, exists)

		assert.Error(t, fs.RemoveAll(dir), "removing a missing path fails")
	})
}

func TestAferoFS_AtomicWrite(t *testing.T) {
	backends(t, func(t *testing.T, fs *AferoFS, root string) {
		t.Run("write to new file", func(t *testing.T) {
			path := filepath.Join(root, "nested", "atomic.txt")
			require.NoError(t, fs.AtomicWrite(path, []byte("atomic content"), 0644))

			data, err := fs.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "atomic content", string(data))
		})

		t.Run("overwrite existing file", func(t *testing.T) {
			path := filepath.Join(root, "overwrite.txt")
			require.NoError(t, fs.AtomicWrite(path, []byte("initial"), 0644))
			require.NoError(t, fs.AtomicWrite(path, []byte("overwritten"), 0644))

			data, err := fs.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "overwritten", string(data))
		})
	})
}
