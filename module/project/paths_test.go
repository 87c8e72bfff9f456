package project

import (
	"path/filepath"
	"testing"

	"github.com/harness/depextract/internal/testutil"
	"github.com/harness/depextract/util/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	paths, err := NewPaths("/proj", "")
	require.NoError(t, err)

	tests := []struct {
		name      string
		path      string
		want      string
		traversal bool
	}{
		{name: "relative", path: "src/a.txt", want: "/proj/src/a.txt"},
		{name: "current dir prefix", path: "./src/a.txt", want: "/proj/src/a.txt"},
		{name: "repeated current dir prefix", path: "././a.txt", want: "/proj/a.txt"},
		{name: "already under base", path: "/proj/src/a.txt", want: "/proj/src/a.txt"},
		{name: "base itself", path: "/proj", want: "/proj"},
		{name: "sibling sharing a string prefix", path: "/project/a.txt", want: "/proj/project/a.txt"},
		{name: "absolute outside base", path: "/etc/passwd", want: "/proj/etc/passwd"},
		{name: "empty", path: "", want: "/proj"},
		{name: "parent", path: "../x", traversal: true},
		{name: "windows parent", path: `..\x`, traversal: true},
		{name: "bare parent", path: "..", traversal: true},
		{name: "inner parent staying inside", path: "src/../a.txt", want: "/proj/a.txt"},
		{name: "inner parent escaping", path: "src/../../etc/passwd", traversal: true},
		{name: "absolute escaping after join", path: "/../../etc/passwd", traversal: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := paths.Canonicalize(tt.path)
			if tt.traversal {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrPathTraversal))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestNewPathsDefaults(t *testing.T) {
	paths, err := NewPaths("/proj", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/proj/target"), paths.Output())

	paths, err = NewPaths("/proj", "build")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/proj/build"), paths.Output())

	_, err = NewPaths("", "")
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestResolveTiers(t *testing.T) {
	base := t.TempDir()
	paths, err := NewPaths(base, "")
	require.NoError(t, err)

	testutil.WriteFile(t, filepath.Join(base, "both.txt"), "project")
	testutil.WriteFile(t, filepath.Join(base, "target", "both.txt"), "output")
	testutil.WriteFile(t, filepath.Join(base, "target", "gen", "only.txt"), "output")

	got, err := paths.Resolve("both.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "both.txt"), got, "project tier wins")

	got, err = paths.Resolve("./gen/only.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "target", "gen", "only.txt"), got)

	_, err = paths.Resolve("missing.txt")
	require.Error(t, err)
	var nf *errors.FileNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing.txt", nf.Path)
	assert.Len(t, nf.Searched, 2)

	_, err = paths.Resolve("../outside.txt")
	assert.True(t, errors.Is(err, errors.ErrPathTraversal))
}

func TestResolveAll(t *testing.T) {
	base := t.TempDir()
	paths, err := NewPaths(base, "")
	require.NoError(t, err)
	testutil.WriteFile(t, filepath.Join(base, "a.txt"), "a")
	testutil.WriteFile(t, filepath.Join(base, "target", "b.txt"), "b")

	list := []string{"a.txt", "b.txt"}
	require.NoError(t, paths.ResolveAll(list))
	assert.Equal(t, []string{filepath.Join(base, "a.txt"), filepath.Join(base, "target", "b.txt")}, list)

	assert.NoError(t, paths.ResolveAll(nil))
	assert.Error(t, paths.ResolveAll([]string{"nope"}))
}

func TestExists(t *testing.T) {
	base := t.TempDir()
	paths, err := NewPaths(base, "")
	require.NoError(t, err)
	testutil.WriteFile(t, filepath.Join(base, "a.txt"), "a")

	ok, err := paths.Exists("./a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = paths.Exists("b.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = paths.Exists("../a.txt")
	assert.True(t, errors.Is(err, errors.ErrPathTraversal))
}

func TestRelativePaths(t *testing.T) {
	paths, err := NewPaths("/proj", "/proj/target")
	require.NoError(t, err)

	assert.Equal(t, filepath.FromSlash("src/a.txt"), paths.ProjectRelative(filepath.FromSlash("/proj/src/a.txt")))
	assert.Equal(t, filepath.FromSlash("/project/a.txt"), paths.ProjectRelative(filepath.FromSlash("/project/a.txt")))
	assert.Equal(t, "a.class", paths.OutputRelative(filepath.FromSlash("/proj/target/a.class")))

	out, err := paths.OutputPath("src/a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/proj/target/src/a.txt"), out)
}
