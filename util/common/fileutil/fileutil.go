package fileutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/pattern"
)

// validatePath checks if a path is valid and accessible.
// Returns an error if the path is empty, contains invalid characters,
// or if the parent directory is not accessible.
func validatePath(path string) error {
	if path == "" {
		return errors.NewValidationError("path", "path cannot be empty")
	}

	// Check for invalid characters in path
	if strings.ContainsAny(path, "<>|?*\x00") {
		return errors.NewValidationError("path", "path contains invalid characters")
	}

	// Check if parent directory exists and is accessible
	parent := filepath.Dir(path)
	if parent != "." {
		if _, err := os.Stat(parent); err != nil {
			return errors.NewFileError(parent, "access", err)
		}
	}

	return nil
}

// validateWritePermissions checks if a directory is writable.
// Returns an error if the directory is not writable or if testing
// write permissions fails.
func validateWritePermissions(dir string) error {
	// Create a temporary file to test write permissions
	f, err := os.CreateTemp(dir, ".write_test*")
	if err != nil {
		return errors.NewFileError(dir, "write_permission", err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

// ResetDir removes a directory if it exists and creates a fresh empty one.
// It validates the path and checks write permissions before proceeding.
func ResetDir(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	if err := os.RemoveAll(path); err != nil {
		return errors.NewFileError(path, "remove", err)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.NewFileError(path, "create", err)
	}

	return validateWritePermissions(path)
}

// ReadFile reads the entire file and returns its contents.
// It validates the path and checks if the file exists and is readable.
func ReadFile(path string) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewFileError(path, "stat", err)
	}
	if info.IsDir() {
		return nil, errors.NewValidationError("path", "path is a directory, expected a file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileError(path, "read", err)
	}
	return data, nil
}

// WriteFile writes data to a file, creating parent directories if needed.
func WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.NewValidationError("path", "path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewFileError(path, "create_dir", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewFileError(path, "write", err)
	}
	return nil
}

// CopyFile copies a file from src to dst.
// It ensures the source exists and is a regular file and creates parent
// directories of dst if needed.
func CopyFile(src, dst string) error {
	if err := validatePath(src); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return errors.NewFileError(src, "stat", err)
	}
	if srcInfo.IsDir() {
		return errors.NewValidationError("src", "source path is a directory, expected a file")
	}

	dstDir := filepath.Dir(dst)
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return errors.NewFileError(dst, "create_dir", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return errors.NewFileError(src, "open", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return errors.NewFileError(dst, "create", err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return errors.NewFileError(dst, "copy", err)
	}
	if err := dstFile.Close(); err != nil {
		return errors.NewFileError(dst, "close", err)
	}
	return nil
}

// CopyFileToDirectory copies src into dir, keeping its base name, and stamps
// the copy with the source's modification time so staleness checks on the
// destination keep working. It returns the path of the copy.
func CopyFileToDirectory(src, dir string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", errors.NewFileError(src, "stat", err)
	}

	dst := filepath.Join(dir, filepath.Base(src))
	if err := CopyFile(src, dst); err != nil {
		return "", err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return "", errors.NewFileError(dst, "chtimes", err)
	}
	return dst, nil
}

// Exists checks if a file or directory exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir checks if the path is a directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsFile checks if the path is a regular file
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SplitPath cleans p and splits it into its components. An absolute path
// starts with an empty component; a volume name, if any, comes first.
func SplitPath(p string) []string {
	p = filepath.Clean(p)
	vol := filepath.VolumeName(p)
	rest := p[len(vol):]

	parts := strings.Split(rest, string(filepath.Separator))
	out := make([]string, 0, len(parts)+1)
	if vol != "" {
		out = append(out, vol)
	}
	for i, s := range parts {
		if s == "" && i != 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// HasPathPrefix reports whether prefix is an ancestor of, or equal to, p.
// Paths are compared component by component, so "/proj" is not a prefix of
// "/project". No symlinks are resolved.
func HasPathPrefix(p, prefix string) bool {
	pp, px := SplitPath(p), SplitPath(prefix)
	if len(px) > len(pp) {
		return false
	}
	for i := range px {
		if pp[i] != px[i] {
			return false
		}
	}
	return true
}

// RelativeTo strips prefix from p. If prefix is not an ancestor of p, p is
// returned unchanged. If p equals prefix the result is empty.
func RelativeTo(prefix, p string) string {
	if prefix == "" || !HasPathPrefix(p, prefix) {
		return p
	}
	rest := SplitPath(p)[len(SplitPath(prefix)):]
	if len(rest) == 0 {
		return ""
	}
	return filepath.Join(rest...)
}

// TrimSeparators removes one leading and one trailing separator. It returns
// an empty string when nothing is left.
func TrimSeparators(p string) string {
	sep := string(filepath.Separator)
	p = strings.TrimPrefix(p, sep)
	return strings.TrimSuffix(p, sep)
}

// TrimEndSeparator removes one trailing separator.
func TrimEndSeparator(p string) string {
	return strings.TrimSuffix(p, string(filepath.Separator))
}

// Normalize rewrites both slash styles into the OS separator.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "/", string(filepath.Separator))
	return strings.ReplaceAll(p, `\`, string(filepath.Separator))
}

// ReplaceExtension swaps the last extension of p for ext. A path without an
// extension gets ext appended.
func ReplaceExtension(p, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if old := filepath.Ext(p); old != "" {
		p = strings.TrimSuffix(p, old)
	}
	return p + "." + ext
}

// LastModified returns the modification time of path. When recursive is set
// and path is a directory, the newest modification time of any file below it
// is returned instead.
func LastModified(path string, recursive bool) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, errors.NewFileError(path, "stat", err)
	}
	if !info.IsDir() || !recursive {
		return info.ModTime(), nil
	}

	var latest time.Time
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.ModTime().After(latest) {
			latest = fi.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, errors.NewFileError(path, "walk", err)
	}
	return latest, nil
}

// ListFiles returns every regular file below root in lexical order. The
// include and exclude patterns are matched against the slash separated path
// relative to root. A missing root yields no files.
func ListFiles(root string, includes, excludes []string) ([]string, error) {
	matcher, err := pattern.NewMatcher(includes, excludes)
	if err != nil {
		return nil, errors.NewValidationError("pattern", err.Error())
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewFileError(root, "stat", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if matcher.Match(filepath.ToSlash(rel)) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewFileError(root, "walk", err)
	}
	return files, nil
}
