package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_NestedCreate(t *testing.T) {
	adapters := newFakeAdapters()
	diffs := map[string][]Diff{
		"file:///root": {{Kind: DiffNew, Name: "a/b/c.txt", EntryType: EntryFile}},
	}

	actions, err := Compile(diffs, newFakeEntries(), adapters)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create file:///root/a (directory)",
		"create file:///root/a/b (directory)",
		"create file:///root/a/b/c.txt (file)",
	}, strs(actions))
	assert.Equal(t, []string{"file:///root/a", "file:///root/a/b"}, adapters.checked)
}

func TestCompile_NestedCreateSkipsExisting(t *testing.T) {
	adapters := newFakeAdapters()
	adapters.exists["file:///root/a"] = true
	diffs := map[string][]Diff{
		"file:///root": {
			{Kind: DiffNew, Name: "a/b/one.txt", EntryType: EntryFile},
			{Kind: DiffNew, Name: "a/b/two.txt", EntryType: EntryFile},
		},
	}

	actions, err := Compile(diffs, newFakeEntries(), adapters)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create file:///root/a/b (directory)",
		"create file:///root/a/b/one.txt (file)",
		"create file:///root/a/b/two.txt (file)",
	}, strs(actions))
}

func TestCompile_Alternation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "no group", in: "main.go", want: []string{"main.go"}},
		{name: "two alternatives", in: "{a,b}.txt", want: []string{"a.txt", "b.txt"}},
		{name: "prefix and suffix", in: "test_{x,y,z}.go", want: []string{"test_x.go", "test_y.go", "test_z.go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandAlternation(tt.in))
		})
	}
}

func TestCompile_AlternationOnlyInLastSegment(t *testing.T) {
	diffs := map[string][]Diff{
		"file:///": {{Kind: DiffNew, Name: "src/{a,b}.go", EntryType: EntryFile}},
	}

	actions, err := Compile(diffs, newFakeEntries(), newFakeAdapters())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create file:///src (directory)",
		"create file:///src/a.go (file)",
		"create file:///src/b.go (file)",
	}, strs(actions))
}

func TestCompile_IDClassification(t *testing.T) {
	tests := []struct {
		name  string
		diffs []Diff
		want  []string
	}{
		{
			name:  "delete and new is a move",
			diffs: []Diff{{Kind: DiffDelete, ID: 7, Name: "x"}, {Kind: DiffNew, ID: 7, Name: "y"}},
			want:  []string{"move file:///x -> file:///y"},
		},
		{
			name:  "new without delete is a copy",
			diffs: []Diff{{Kind: DiffNew, ID: 7, Name: "y"}, {Kind: DiffNew, ID: 7, Name: "z"}},
			want:  []string{"copy file:///x -> file:///y", "copy file:///x -> file:///z"},
		},
		{
			name: "delete with two destinations copies then moves",
			diffs: []Diff{
				{Kind: DiffDelete, ID: 7, Name: "x"},
				{Kind: DiffNew, ID: 7, Name: "y"},
				{Kind: DiffNew, ID: 7, Name: "z"},
			},
			want: []string{"copy file:///x -> file:///y", "move file:///x -> file:///z"},
		},
		{
			name:  "delete alone",
			diffs: []Diff{{Kind: DiffDelete, ID: 7, Name: "x"}},
			want:  []string{"delete file:///x"},
		},
		{
			name: "kept in place plus duplicate",
			diffs: []Diff{
				{Kind: DiffDelete, ID: 7, Name: "x"},
				{Kind: DiffNew, ID: 7, Name: "x"},
				{Kind: DiffNew, ID: 7, Name: "y"},
			},
			want: []string{"copy file:///x -> file:///y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := newFakeEntries()
			entries.add(7, "file:///", "x", EntryFile)

			actions, err := Compile(map[string][]Diff{"file:///": tt.diffs}, entries, newFakeAdapters())
			require.NoError(t, err)
			assert.Equal(t, tt.want, strs(actions))
		})
	}
}

func TestCompile_MoveAcrossBuffers(t *testing.T) {
	entries := newFakeEntries()
	entries.add(3, "file:///src", "lib", EntryDirectory)
	diffs := map[string][]Diff{
		"file:///src": {{Kind: DiffDelete, ID: 3, Name: "lib"}},
		"file:///dst": {{Kind: DiffNew, ID: 3, Name: "lib2", EntryType: EntryDirectory}},
	}

	actions, err := Compile(diffs, entries, newFakeAdapters())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionMove, actions[0].Type)
	assert.Equal(t, EntryDirectory, actions[0].EntryType)
	assert.Equal(t, "file:///src/lib", actions[0].SrcURL)
	assert.Equal(t, "file:///dst/lib2", actions[0].DestURL)
}

func TestCompile_Change(t *testing.T) {
	diffs := map[string][]Diff{
		"file:///etc": {{Kind: DiffChange, Name: "hosts", EntryType: EntryFile, Column: "permissions", Value: "rw-------"}},
	}

	actions, err := Compile(diffs, newFakeEntries(), newFakeAdapters())
	require.NoError(t, err)
	assert.Equal(t, []string{"change file:///etc/hosts permissions=rw-------"}, strs(actions))
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		diffs   map[string][]Diff
		wantErr error
	}{
		{
			name:    "duplicate delete",
			diffs:   map[string][]Diff{"file:///": {{Kind: DiffDelete, ID: 7}, {Kind: DiffDelete, ID: 7}}},
			wantErr: ErrDuplicateDelete,
		},
		{
			name:    "unknown id",
			diffs:   map[string][]Diff{"file:///": {{Kind: DiffNew, ID: 99, Name: "y"}}},
			wantErr: ErrMissingEntry,
		},
		{
			name:    "delete without id",
			diffs:   map[string][]Diff{"file:///": {{Kind: DiffDelete, Name: "x"}}},
			wantErr: ErrInvalidDiff,
		},
		{
			name:    "empty name",
			diffs:   map[string][]Diff{"file:///": {{Kind: DiffNew, Name: "/"}}},
			wantErr: ErrInvalidDiff,
		},
		{
			name:    "unknown scheme",
			diffs:   map[string][]Diff{"s3:///bucket": {{Kind: DiffNew, Name: "key", EntryType: EntryFile}}},
			wantErr: ErrMissingAdapter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := newFakeEntries()
			entries.add(7, "file:///", "x", EntryFile)

			actions, err := Compile(tt.diffs, entries, newFakeAdapters())
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, actions)
		})
	}
}

func TestCompile_FilterVeto(t *testing.T) {
	adapters := newFakeAdapters()
	adapters.veto = func(a *Action) bool { return a.Type == ActionCreate && a.URL == "file:///skip" }
	diffs := map[string][]Diff{
		"file:///": {
			{Kind: DiffNew, Name: "skip", EntryType: EntryFile},
			{Kind: DiffNew, Name: "keep", EntryType: EntryFile},
		},
	}

	actions, err := Compile(diffs, newFakeEntries(), adapters)
	require.NoError(t, err)
	assert.Equal(t, []string{"create file:///keep (file)"}, strs(actions))
}

func TestCompile_NoDuplicateCreates(t *testing.T) {
	diffs := map[string][]Diff{
		"file:///": {
			{Kind: DiffNew, Name: "a/one", EntryType: EntryFile},
			{Kind: DiffNew, Name: "a/two", EntryType: EntryFile},
			{Kind: DiffNew, Name: "a", EntryType: EntryDirectory},
			{Kind: DiffNew, Name: "{b,b}", EntryType: EntryFile},
			{Kind: DiffNew, Name: "a/one", EntryType: EntryFile},
		},
		"file:///a": {
			{Kind: DiffNew, Name: "two", EntryType: EntryFile},
		},
	}

	actions, err := Compile(diffs, newFakeEntries(), newFakeAdapters())
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, a := range actions {
		if a.Type == ActionCreate {
			seen[a.URL]++
		}
	}
	for url, n := range seen {
		assert.Equalf(t, 1, n, "create of %s emitted %d times", url, n)
	}
	assert.Len(t, seen, 4)
}

func TestCompile_Deterministic(t *testing.T) {
	entries := newFakeEntries()
	entries.add(1, "file:///", "x", EntryFile)
	entries.add(2, "file:///", "y", EntryFile)
	entries.add(3, "file:///d", "z", EntryFile)
	diffs := map[string][]Diff{
		"file:///": {
			{Kind: DiffDelete, ID: 1},
			{Kind: DiffNew, ID: 2, Name: "y2"},
			{Kind: DiffNew, Name: "n/m", EntryType: EntryFile},
		},
		"file:///d": {
			{Kind: DiffNew, ID: 1, Name: "x"},
			{Kind: DiffDelete, ID: 3},
		},
	}

	first, err := Compile(diffs, entries, newFakeAdapters())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Compile(diffs, entries, newFakeAdapters())
		require.NoError(t, err)
		assert.Equal(t, strs(first), strs(again))
	}
}
