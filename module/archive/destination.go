package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/fileutil"
	"github.com/harness/depextract/util/common/pattern"
)

// Destination is the directory an archive is extracted into. Every entry
// name is confined to it, and existing files are always replaced.
type Destination struct {
	root    string
	matcher *pattern.Matcher
	files   int
}

func newDestination(root string, matcher *pattern.Matcher) (*Destination, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Destination{root: filepath.Clean(abs), matcher: matcher}, nil
}

// Root returns the absolute destination directory.
func (d *Destination) Root() string { return d.root }

// Files returns the number of regular files written so far.
func (d *Destination) Files() int { return d.files }

// entryName normalizes an archive entry name to a clean slash path. It
// returns "" for entries naming the archive root.
func entryName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	for strings.HasPrefix(name, "./") {
		name = name[2:]
	}
	if name == "" || name == "." {
		return ""
	}
	return name
}

// Resolve maps an entry name to its absolute path under the root. Absolute
// names and names escaping the root through ".." fail with a
// PathTraversalError.
func (d *Destination) Resolve(name string) (string, error) {
	clean := entryName(name)
	if clean == "" {
		return d.root, nil
	}
	if path.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", &errors.PathTraversalError{Path: name, Root: d.root}
	}
	clean = path.Clean(clean)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", &errors.PathTraversalError{Path: name, Root: d.root}
	}
	target := filepath.Join(d.root, filepath.FromSlash(clean))
	if !fileutil.HasPathPrefix(target, d.root) {
		return "", &errors.PathTraversalError{Path: name, Root: d.root}
	}
	return target, nil
}

// Wants reports whether a file entry passes the include and exclude
// patterns.
func (d *Destination) Wants(name string) bool {
	return d.matcher.Match(path.Clean(entryName(name)))
}

// Filtered reports whether include or exclude patterns are in effect.
func (d *Destination) Filtered() bool {
	return d.matcher != nil
}

// Mkdir creates the directory entry name, replacing a file in its way.
func (d *Destination) Mkdir(name string) error {
	target, err := d.Resolve(name)
	if err != nil {
		return err
	}
	if d.Filtered() {
		return nil
	}
	return d.mkdirAll(target)
}

// WriteFile writes r to the file entry name. Whatever occupies the path is
// removed first, including read-only files and directories.
func (d *Destination) WriteFile(name string, mode fs.FileMode, modTime time.Time, r io.Reader) error {
	target, err := d.Resolve(name)
	if err != nil {
		return err
	}
	if target == d.root {
		return fmt.Errorf("entry %q names the destination root", name)
	}
	if !d.Wants(name) {
		return nil
	}

	if err := d.mkdirAll(filepath.Dir(target)); err != nil {
		return err
	}
	if _, err := os.Lstat(target); err == nil {
		if err := os.RemoveAll(target); err != nil {
			return err
		}
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(target, modTime, modTime); err != nil {
			return err
		}
	}
	d.files++
	return nil
}

// mkdirAll creates dir and its parents below the root. Regular files found
// on the way are removed so that the archive's layout always wins.
func (d *Destination) mkdirAll(dir string) error {
	rel, err := filepath.Rel(d.root, dir)
	if err != nil {
		return err
	}
	cur := d.root
	if rel != "." {
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			cur = filepath.Join(cur, part)
			info, err := os.Lstat(cur)
			switch {
			case err == nil && info.IsDir():
				continue
			case err == nil:
				if err := os.Remove(cur); err != nil {
					return err
				}
			case !os.IsNotExist(err):
				return err
			}
			if err := os.Mkdir(cur, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}

// Source is the directory tree an archive is built from.
type Source struct {
	root    string
	skip    map[string]bool
	entries int
}

func newSource(root string, skip ...string) *Source {
	s := &Source{root: root, skip: make(map[string]bool, len(skip))}
	for _, p := range skip {
		if abs, err := filepath.Abs(p); err == nil {
			s.skip[abs] = true
		}
	}
	return s
}

// Root returns the directory being archived.
func (s *Source) Root() string { return s.root }

// Entries returns the number of entries visited so far.
func (s *Source) Entries() int { return s.entries }

// Walk visits every directory and regular file below the root in lexical
// order. name is the slash separated path relative to the root; directory
// names carry no trailing slash. Symbolic links and other special files are
// skipped.
func (s *Source) Walk(ctx context.Context, fn func(name, file string, info fs.FileInfo) error) error {
	return filepath.WalkDir(s.root, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == s.root {
			return nil
		}
		if abs, err := filepath.Abs(p); err == nil && s.skip[abs] {
			return nil
		}
		if !de.IsDir() && !de.Type().IsRegular() {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		s.entries++
		return fn(filepath.ToSlash(rel), p, info)
	})
}
