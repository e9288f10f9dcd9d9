package fsops

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sandboxTree creates root/dir/f.txt, root/top.txt and root/link -> dir/f.txt
// on disk.
func sandboxTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dir", "f.txt"), []byte("real"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("top"), 0644))
	require.NoError(t, os.Symlink("dir/f.txt", filepath.Join(root, "link")))
	return root
}

func layerFiles(t *testing.T, sandbox *AferoFS) map[string]int64 {
	t.Helper()
	layer := sandbox.Afero().(*sandboxFs).layer
	files := make(map[string]int64)
	require.NoError(t, afero.Walk(layer, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files[path] = info.Size()
		}
		return nil
	}))
	return files
}

func entryNames(infos []os.FileInfo) []string {
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.Name())
	}
	sort.Strings(out)
	return out
}

func TestNewSandboxFS_ReadsThrough(t *testing.T) {
	root := sandboxTree(t)
	sandbox := NewSandboxFS()

	data, err := sandbox.ReadFile(filepath.Join(root, "dir", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "real", string(data))

	info, err := sandbox.Lstat(filepath.Join(root, "link"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	target, err := sandbox.Readlink(filepath.Join(root, "link"))
	require.NoError(t, err)
	assert.Equal(t, "dir/f.txt", target)

	infos, err := sandbox.ReadDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"dir", "link", "top.txt"}, entryNames(infos))

	assert.Empty(t, layerFiles(t, sandbox), "reading copies nothing into memory")
}

func TestNewSandboxFS_LoadsOnlyTouchedPaths(t *testing.T) {
	root := sandboxTree(t)
	blob := bytes.Repeat([]byte("x"), 64<<10)
	for i := 0; i < 200; i++ {
		dir := filepath.Join(root, "deep", fmt.Sprintf("d%d", i), "x", "y")
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "blob"), blob, 0644))
	}

	sandbox := NewSandboxFS()
	require.NoError(t, sandbox.Rename(filepath.Join(root, "top.txt"), filepath.Join(root, "moved.txt")))
	require.NoError(t, sandbox.CreateFile(filepath.Join(root, "dir", "new.txt"), 0644))
	require.NoError(t, sandbox.AtomicWrite(filepath.Join(root, "dir", "f.txt"), []byte("changed"), 0644))

	files := layerFiles(t, sandbox)
	assert.Equal(t, map[string]int64{
		filepath.Join(root, "moved.txt"):      3,
		filepath.Join(root, "dir", "new.txt"): 0,
		filepath.Join(root, "dir", "f.txt"):   7,
	}, files)

	exists, err := sandbox.Exists(filepath.Join(root, "deep", "d199", "x", "y", "blob"))
	require.NoError(t, err)
	assert.True(t, exists, "untouched files stay visible")
}

func TestNewSandboxFS_LeavesDiskUntouched(t *testing.T) {
	root := sandboxTree(t)
	sandbox := NewSandboxFS()

	require.NoError(t, sandbox.RemoveAll(filepath.Join(root, "dir")))
	require.NoError(t, sandbox.CreateFile(filepath.Join(root, "new"), 0644))
	require.NoError(t, sandbox.AtomicWrite(filepath.Join(root, "top.txt"), []byte("rewritten"), 0600))
	require.NoError(t, sandbox.Chmod(root, 0700))

	data, err := os.ReadFile(filepath.Join(root, "dir", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "real", string(data))
	data, err = os.ReadFile(filepath.Join(root, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, "top", string(data))
	_, err = os.Stat(filepath.Join(root, "new"))
	assert.True(t, os.IsNotExist(err))

	data, err = sandbox.ReadFile(filepath.Join(root, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, "rewritten", string(data))
	info, err := sandbox.Lstat(root)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewSandboxFS_RemoveMasksDisk(t *testing.T) {
	root := sandboxTree(t)
	sandbox := NewSandboxFS()

	t.Run("removed file disappears", func(t *testing.T) {
		path := filepath.Join(root, "top.txt")
		require.NoError(t, sandbox.Remove(path))

		exists, err := sandbox.Exists(path)
		require.NoError(t, err)
		assert.False(t, exists)
		_, err = sandbox.ReadFile(path)
		assert.True(t, os.IsNotExist(err))

		infos, err := sandbox.ReadDir(root)
		require.NoError(t, err)
		assert.NotContains(t, entryNames(infos), "top.txt")
	})

	t.Run("recreated file starts empty", func(t *testing.T) {
		path := filepath.Join(root, "top.txt")
		require.NoError(t, sandbox.CreateFile(path, 0644))

		data, err := sandbox.ReadFile(path)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("non-empty directory", func(t *testing.T) {
		err := sandbox.Remove(filepath.Join(root, "dir"))
		assert.Error(t, err)
	})

	t.Run("recreated directory hides old children", func(t *testing.T) {
		dir := filepath.Join(root, "dir")
		require.NoError(t, sandbox.RemoveAll(dir))
		require.NoError(t, sandbox.Mkdir(dir, 0755))

		infos, err := sandbox.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, infos)
		_, err = sandbox.ReadFile(filepath.Join(dir, "f.txt"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing path", func(t *testing.T) {
		err := sandbox.Remove(filepath.Join(root, "ghost"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestNewSandboxFS_Rename(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		dst   string
		check func(t *testing.T, sandbox *AferoFS, root string)
	}{
		{
			name: "disk file",
			src:  "top.txt",
			dst:  "dir/top.txt",
			check: func(t *testing.T, sandbox *AferoFS, root string) {
				data, err := sandbox.ReadFile(filepath.Join(root, "dir", "top.txt"))
				require.NoError(t, err)
				assert.Equal(t, "top", string(data))
			},
		},
		{
			name: "disk directory",
			src:  "dir",
			dst:  "moved",
			check: func(t *testing.T, sandbox *AferoFS, root string) {
				data, err := sandbox.ReadFile(filepath.Join(root, "moved", "f.txt"))
				require.NoError(t, err)
				assert.Equal(t, "real", string(data))
				info, err := sandbox.Lstat(filepath.Join(root, "moved"))
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
			},
		},
		{
			name: "disk symlink",
			src:  "link",
			dst:  "link2",
			check: func(t *testing.T, sandbox *AferoFS, root string) {
				target, err := sandbox.Readlink(filepath.Join(root, "link2"))
				require.NoError(t, err)
				assert.Equal(t, "dir/f.txt", target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := sandboxTree(t)
			sandbox := NewSandboxFS()

			require.NoError(t, sandbox.Rename(filepath.Join(root, tt.src), filepath.Join(root, tt.dst)))

			exists, err := sandbox.Exists(filepath.Join(root, tt.src))
			require.NoError(t, err)
			assert.False(t, exists, "source is gone in the sandbox")
			tt.check(t, sandbox, root)

			_, err = os.Lstat(filepath.Join(root, tt.src))
			assert.NoError(t, err, "source is still on disk")
			_, err = os.Lstat(filepath.Join(root, tt.dst))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestNewSandboxFS_MergesListings(t *testing.T) {
	root := sandboxTree(t)
	sandbox := NewSandboxFS()

	require.NoError(t, sandbox.CreateFile(filepath.Join(root, "dir", "b.txt"), 0644))
	require.NoError(t, sandbox.Mkdir(filepath.Join(root, "dir", "sub"), 0755))
	require.NoError(t, sandbox.Symlink("f.txt", filepath.Join(root, "dir", "alias")))

	infos, err := sandbox.ReadDir(filepath.Join(root, "dir"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alias", "b.txt", "f.txt", "sub"}, entryNames(infos))

	target, err := sandbox.Readlink(filepath.Join(root, "dir", "alias"))
	require.NoError(t, err)
	assert.Equal(t, "f.txt", target)

	err = sandbox.Mkdir(filepath.Join(root, "dir"), 0755)
	assert.ErrorIs(t, err, ErrExists)
	err = sandbox.CreateFile(filepath.Join(root, "dir", "f.txt"), 0644)
	assert.ErrorIs(t, err, ErrExists)
}
