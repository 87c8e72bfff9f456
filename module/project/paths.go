package project

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/fileutil"
)

// Paths confines relative paths to a project's base directory and resolves
// them against the base directory first and the output directory second.
//
// Prefix checks compare path components, so "/proj" never matches
// "/project". Symbolic links are not resolved: a link inside the base
// directory pointing elsewhere is still considered inside.
type Paths struct {
	base   string
	output string
}

// NewPaths binds a canonicalizer to base and output. An empty output
// defaults to <base>/target.
func NewPaths(base, output string) (*Paths, error) {
	if base == "" {
		return nil, errors.NewValidationError("baseDir", "base directory cannot be empty")
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.NewFileError(base, "abs", err)
	}
	if output == "" {
		output = filepath.Join(absBase, DefaultOutputDir)
	} else if !filepath.IsAbs(output) {
		output = filepath.Join(absBase, output)
	}
	return &Paths{base: filepath.Clean(absBase), output: filepath.Clean(output)}, nil
}

// Base returns the absolute project base directory.
func (p *Paths) Base() string { return p.base }

// Output returns the absolute output directory.
func (p *Paths) Output() string { return p.output }

func escapesUpward(path string) bool {
	return path == ".." || strings.HasPrefix(path, "../") || strings.HasPrefix(path, `..\`)
}

func stripCurrentDir(path string) string {
	for strings.HasPrefix(path, "./") || strings.HasPrefix(path, `.\`) {
		path = path[2:]
	}
	return path
}

// Canonicalize maps path into the project domain. A leading "./" is dropped
// and the result is joined onto the base directory unless it already lies
// below it. A path that would land outside the base directory, through a
// leading ".." or an inner one, is refused with a PathTraversalError.
func (p *Paths) Canonicalize(path string) (string, error) {
	return canonicalize(p.base, path)
}

func canonicalize(root, path string) (string, error) {
	if escapesUpward(path) {
		return "", &errors.PathTraversalError{Path: path, Root: root}
	}
	path = stripCurrentDir(path)
	if path == "" || path == "." {
		return root, nil
	}
	if fileutil.HasPathPrefix(path, root) {
		return filepath.Clean(path), nil
	}
	joined := filepath.Join(root, fileutil.Normalize(path))
	if !fileutil.HasPathPrefix(joined, root) {
		return "", &errors.PathTraversalError{Path: path, Root: root}
	}
	return joined, nil
}

// Exists canonicalizes path and reports whether it exists.
func (p *Paths) Exists(path string) (bool, error) {
	abs, err := p.Canonicalize(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	return err == nil, nil
}

// Resolve finds path in the project tier, then in the output tier. The
// error names the path as given, not its canonical form.
func (p *Paths) Resolve(path string) (string, error) {
	project, err := p.Canonicalize(path)
	if err != nil {
		return "", err
	}
	if fileutil.Exists(project) {
		return project, nil
	}

	rel := fileutil.RelativeTo(p.base, project)
	output, err := canonicalize(p.output, rel)
	if err != nil {
		return "", err
	}
	if fileutil.Exists(output) {
		return output, nil
	}
	return "", &errors.FileNotFoundError{Path: path, Searched: []string{project, output}}
}

// ResolveAll resolves every entry of paths in place and stops at the first
// failure. A nil slice is a no-op.
func (p *Paths) ResolveAll(paths []string) error {
	for i, path := range paths {
		abs, err := p.Resolve(path)
		if err != nil {
			return err
		}
		paths[i] = abs
	}
	return nil
}

// ProjectRelative strips the base directory from abs. Paths outside the
// project are returned unchanged.
func (p *Paths) ProjectRelative(abs string) string {
	return fileutil.RelativeTo(p.base, abs)
}

// OutputRelative strips the output directory from abs. Paths outside the
// output directory are returned unchanged.
func (p *Paths) OutputRelative(abs string) string {
	return fileutil.RelativeTo(p.output, abs)
}

// OutputPath maps a project path to the same relative location under the
// output directory.
func (p *Paths) OutputPath(path string) (string, error) {
	abs, err := p.Canonicalize(path)
	if err != nil {
		return "", err
	}
	rel := p.ProjectRelative(abs)
	if rel == abs {
		return "", &errors.PathTraversalError{Path: path, Root: p.base}
	}
	return filepath.Join(p.output, rel), nil
}
