package fileutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harness/depextract/util/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		p, prefix string
		want      bool
	}{
		{"/proj/src", "/proj", true},
		{"/proj", "/proj", true},
		{"/project/src", "/proj", false},
		{"/proj", "/proj/src", false},
		{"/proj/../other", "/proj", false},
		{"/proj/./src/", "/proj/", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasPathPrefix(tt.p, tt.prefix), "%s under %s", tt.p, tt.prefix)
	}
}

func TestRelativeTo(t *testing.T) {
	assert.Equal(t, filepath.Join("src", "A.java"), RelativeTo("/proj", "/proj/src/A.java"))
	assert.Equal(t, "", RelativeTo("/proj", "/proj"))
	assert.Equal(t, "/project/x", RelativeTo("/proj", "/project/x"))
	assert.Equal(t, "/x", RelativeTo("", "/x"))
}

func TestSeparatorHelpers(t *testing.T) {
	sep := string(filepath.Separator)
	assert.Equal(t, "a"+sep+"b", TrimSeparators(sep+"a"+sep+"b"+sep))
	assert.Equal(t, "", TrimSeparators(sep))
	assert.Equal(t, sep+"a", TrimEndSeparator(sep+"a"+sep))
	assert.Equal(t, "a"+sep+"b"+sep+"c", Normalize(`a/b\c`))
}

func TestReplaceExtension(t *testing.T) {
	assert.Equal(t, "lib.jar", ReplaceExtension("lib.zip", "jar"))
	assert.Equal(t, "lib.jar", ReplaceExtension("lib", ".jar"))
	assert.Equal(t, "a.tar.zst", ReplaceExtension("a.tar.gz", "zst"))
}

func TestResetDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	write(t, filepath.Join(dir, "stale", "file"), "old")

	require.NoError(t, ResetDir(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = ResetDir(filepath.Join(t.TempDir(), "missing", "out"))
	assert.Error(t, err, "parent must exist")
	assert.True(t, errors.Is(ResetDir(""), errors.ErrInvalidArgument))
}

func TestCopyFileToDirectoryKeepsModTime(t *testing.T) {
	src := filepath.Join(t.TempDir(), "lib-1.0.zip")
	write(t, src, "payload")
	stamp := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, stamp, stamp))

	dir := t.TempDir()
	dst, err := CopyFileToDirectory(src, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib-1.0.zip"), dst)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(stamp))

	_, err = CopyFileToDirectory(filepath.Join(dir, "absent"), dir)
	assert.Error(t, err)
}

func TestLastModified(t *testing.T) {
	root := t.TempDir()
	older := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	write(t, filepath.Join(root, "a"), "a")
	write(t, filepath.Join(root, "sub", "b"), "b")
	require.NoError(t, os.Chtimes(filepath.Join(root, "a"), older, older))
	require.NoError(t, os.Chtimes(filepath.Join(root, "sub", "b"), newer, newer))

	got, err := LastModified(root, true)
	require.NoError(t, err)
	assert.True(t, got.Equal(newer))

	got, err = LastModified(filepath.Join(root, "a"), true)
	require.NoError(t, err)
	assert.True(t, got.Equal(older))

	_, err = LastModified(filepath.Join(root, "absent"), false)
	assert.Error(t, err)
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "A.java"), "")
	write(t, filepath.Join(root, "com", "B.java"), "")
	write(t, filepath.Join(root, "com", "notes.txt"), "")

	files, err := ListFiles(root, []string{"**/*.java"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "A.java"),
		filepath.Join(root, "com", "B.java"),
	}, files)

	files, err = ListFiles(root, nil, []string{"**/*.java"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "com", "notes.txt")}, files)

	files, err = ListFiles(filepath.Join(root, "absent"), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = ListFiles(root, []string{"a?"}, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}
