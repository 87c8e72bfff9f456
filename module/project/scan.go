package project

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/fileutil"
)

// SourceFiles lists every file below the source directories that passes the
// include and exclude patterns. A file reachable from two source
// directories is listed once, at its first occurrence.
func (p *Project) SourceFiles(includes, excludes []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, dir := range p.SourceDirectories() {
		found, err := fileutil.ListFiles(dir, includes, excludes)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			if seen[f] {
				continue
			}
			seen[f] = true
			files = append(files, f)
		}
	}
	return files, nil
}

// ResourceFiles lists every file below the resource directories.
func (p *Project) ResourceFiles() ([]string, error) {
	var files []string
	for _, dir := range p.resourceDirs {
		found, err := fileutil.ListFiles(dir, nil, nil)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// TargetSourceFiles maps SourceFiles from the primary source directory into
// the output directory. Files from added source directories keep their
// path.
func (p *Project) TargetSourceFiles() ([]string, error) {
	files, err := p.SourceFiles(nil, nil)
	if err != nil {
		return nil, err
	}
	for i, f := range files {
		files[i] = rebase(p.sourceDir, p.OutputDir(), f)
	}
	return files, nil
}

// TargetResourceFiles maps ResourceFiles into the output directory, each
// relative to the resource directory it came from.
func (p *Project) TargetResourceFiles() ([]string, error) {
	var files []string
	for _, dir := range p.resourceDirs {
		found, err := fileutil.ListFiles(dir, nil, nil)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			files = append(files, rebase(dir, p.OutputDir(), f))
		}
	}
	return files, nil
}

func rebase(from, to, file string) string {
	if !fileutil.HasPathPrefix(file, from) {
		return file
	}
	return filepath.Join(to, fileutil.RelativeTo(from, file))
}

// IsStale reports whether any of sources was modified after target, or
// target does not exist. Directories in sources are checked recursively.
func IsStale(target string, sources ...string) (bool, error) {
	if !fileutil.Exists(target) {
		return true, nil
	}
	built, err := fileutil.LastModified(target, true)
	if err != nil {
		return false, err
	}
	for _, src := range sources {
		if !fileutil.Exists(src) {
			continue
		}
		changed, err := fileutil.LastModified(src, true)
		if err != nil {
			return false, err
		}
		if changed.After(built) {
			return true, nil
		}
	}
	return false, nil
}

// RegexFilter selects files whose project relative path fully matches a
// regular expression.
type RegexFilter struct {
	paths *Paths
	re    *regexp.Regexp
}

// NewRegexFilter compiles expr, anchored at both ends.
func (p *Project) NewRegexFilter(expr string) (*RegexFilter, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, errors.NewValidationError("regex", fmt.Sprintf("invalid expression %q: %v", expr, err))
	}
	return &RegexFilter{paths: p.paths, re: re}, nil
}

// Match reports whether file, made relative to the project base, matches.
func (f *RegexFilter) Match(file string) bool {
	return f.re.MatchString(filepath.ToSlash(f.paths.ProjectRelative(file)))
}

// Filter returns the files that match, in their original order.
func (f *RegexFilter) Filter(files []string) []string {
	var out []string
	for _, file := range files {
		if f.Match(file) {
			out = append(out, file)
		}
	}
	return out
}
