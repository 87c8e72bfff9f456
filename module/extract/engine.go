// Package extract materializes a dependency tree on disk. Every dependency
// is resolved, unpacked into <dest>/<artifactId>, and its own declared
// dependencies are materialized below that directory in turn.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harness/depextract/module/archive"
	"github.com/harness/depextract/module/artifact"
	"github.com/harness/depextract/module/project"
	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/fileutil"
	"github.com/harness/depextract/util/common/progress"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/mod/sumdb/dirhash"
	"golang.org/x/sync/errgroup"
)

// Steps a dependency goes through. They name the failing step in a
// DependencyError.
const (
	StepResolve = "resolve"
	StepExtract = "extract"
	StepDescend = "descend"
)

// Options tune an extraction pass.
type Options struct {
	// Concurrency above one resolves the siblings of a level in parallel.
	// Extraction and descent stay sequential in declaration order.
	Concurrency int
	// Scopes limits which dependencies are followed. Empty means all.
	Scopes []artifact.Scope
	// SkipOptional drops dependencies marked optional.
	SkipOptional bool
	// Digest records a dirhash of every extracted directory.
	Digest bool
	// Includes and Excludes filter archive entries on extraction.
	Includes []string
	Excludes []string
	// DryRun resolves the whole tree and reads manifests from the archives
	// without writing below the destination.
	DryRun bool
	// Reporter receives one message per step. Nil reports nothing.
	Reporter progress.Reporter
}

func (o Options) filters() []archive.Option {
	var opts []archive.Option
	if len(o.Includes) > 0 {
		opts = append(opts, archive.WithIncludes(o.Includes...))
	}
	if len(o.Excludes) > 0 {
		opts = append(opts, archive.WithExcludes(o.Excludes...))
	}
	return opts
}

// Engine walks dependency trees. It holds no state between passes.
type Engine struct {
	resolver  *artifact.Resolver
	archives  *archive.Registry
	manifests ManifestLoader
	opts      Options
}

// NewEngine wires an engine. A nil manifests loader selects
// NewManifestLoader over resolver and archives with the entry filters of
// opts.
func NewEngine(resolver *artifact.Resolver, archives *archive.Registry, manifests ManifestLoader, opts Options) *Engine {
	if manifests == nil {
		manifests = NewManifestLoader(resolver, archives, opts.filters()...)
	}
	if opts.Reporter == nil {
		opts.Reporter = progress.NewNopReporter()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Engine{
		resolver:  resolver,
		archives:  archives,
		manifests: manifests,
		opts:      opts,
	}
}

// Resolver returns the resolver the engine resolves through.
func (e *Engine) Resolver() *artifact.Resolver { return e.resolver }

// Options returns the options the engine was built with.
func (e *Engine) Options() Options { return e.opts }

// ExtractProject materializes every dependency of p into dest and returns
// the root of the tree.
func (e *Engine) ExtractProject(ctx context.Context, p *project.Project, dest string) (*Node, error) {
	root, err := e.rootNode(p.Coordinates(), dest)
	if err != nil {
		return nil, err
	}
	children, err := e.ExtractDependencies(ctx, p.Dependencies, root.Dir)
	if err != nil {
		return nil, err
	}
	root.Children = children
	return root, nil
}

// Plan resolves the dependency tree of p without extracting anything.
func (e *Engine) Plan(ctx context.Context, p *project.Project, dest string) (*Node, error) {
	dry := *e
	dry.opts.DryRun = true
	return dry.ExtractProject(ctx, p, dest)
}

func (e *Engine) rootNode(c artifact.Coordinates, dest string) (*Node, error) {
	abs, err := destination(dest)
	if err != nil {
		return nil, err
	}
	return &Node{
		Descriptor: artifact.Descriptor{
			GroupID:    c.GroupID,
			ArtifactID: c.ArtifactID,
			Version:    c.Version,
			Type:       c.Type,
		},
		Dir: abs,
	}, nil
}

// ExtractDependencies materializes deps into dest in declaration order. The
// first failure stops the pass; branches completed before it stay on disk.
func (e *Engine) ExtractDependencies(ctx context.Context, deps []artifact.Descriptor, dest string) ([]*Node, error) {
	abs, err := destination(dest)
	if err != nil {
		return nil, err
	}
	p := e.newPass()
	p.reporter.Start(fmt.Sprintf("Extracting %d dependencies into %s", len(deps), abs))
	defer p.reporter.End()

	start := time.Now()
	nodes, err := p.extractAll(ctx, deps, abs)
	if err != nil {
		p.reporter.Error(err.Error())
		p.logger.Error().Err(err).Str("dest", abs).Msg("Extraction failed")
		return nil, err
	}

	count := 0
	for _, n := range nodes {
		count += n.Count()
	}
	p.reporter.Success(fmt.Sprintf("Materialized %d artifacts", count))
	p.logger.Info().
		Str("dest", abs).
		Int("artifacts", count).
		Dur("duration", time.Since(start)).
		Msg("Extraction complete")
	return nodes, nil
}

// ExtractDependency materializes a single dependency and its tree into
// dest.
func (e *Engine) ExtractDependency(ctx context.Context, d artifact.Descriptor, dest string) (*Node, error) {
	nodes, err := e.ExtractDependencies(ctx, []artifact.Descriptor{d}, dest)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errors.NewValidationError("dependency", fmt.Sprintf("%s is excluded by scope or optional filters", d))
	}
	return nodes[0], nil
}

func destination(dest string) (string, error) {
	if dest == "" {
		return "", errors.NewValidationError("dest", "destination directory cannot be empty")
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", errors.NewFileError(dest, "abs", err)
	}
	return abs, nil
}

// wants applies the scope and optional filters.
func (e *Engine) wants(d artifact.Descriptor) bool {
	if d.Optional && e.opts.SkipOptional {
		return false
	}
	if len(e.opts.Scopes) == 0 {
		return true
	}
	for _, s := range e.opts.Scopes {
		if s == d.EffectiveScope() {
			return true
		}
	}
	return false
}

func (e *Engine) filter(deps []artifact.Descriptor) []artifact.Descriptor {
	out := make([]artifact.Descriptor, 0, len(deps))
	for _, d := range deps {
		if e.wants(d) {
			out = append(out, d)
		}
	}
	return out
}

// pass is the state of one top-level extraction. The descent path is used
// both for cycle detection and for error attribution.
type pass struct {
	*Engine
	logger   zerolog.Logger
	reporter progress.Reporter
	active   map[string]bool
	path     []string
}

func (e *Engine) newPass() *pass {
	return &pass{
		Engine: e,
		logger: log.With().
			Str("component", "extract").
			Str("trace_id", uuid.NewString()).
			Logger(),
		reporter: e.opts.Reporter,
		active:   make(map[string]bool),
	}
}

type prefetched struct {
	artifact *artifact.ResolvedArtifact
	err      error
}

func (p *pass) extractAll(ctx context.Context, deps []artifact.Descriptor, dest string) ([]*Node, error) {
	deps = p.filter(deps)
	pre := p.prefetch(ctx, deps)

	nodes := make([]*Node, 0, len(deps))
	for i, d := range deps {
		var hint *prefetched
		if pre != nil {
			hint = &pre[i]
		}
		n, err := p.extractOne(ctx, d, dest, hint)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// prefetch resolves deps in parallel. Results are kept per index so that
// failures are reported in declaration order by the sequential walk.
func (p *pass) prefetch(ctx context.Context, deps []artifact.Descriptor) []prefetched {
	if p.opts.Concurrency < 2 || len(deps) < 2 {
		return nil
	}
	results := make([]prefetched, len(deps))
	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, d := range deps {
		if p.active[d.Key()] {
			continue
		}
		g.Go(func() error {
			a, err := p.resolver.Resolve(ctx, d)
			results[i] = prefetched{artifact: a, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *pass) fail(d artifact.Descriptor, step string, err error) error {
	return &errors.DependencyError{
		Dependency: d.String(),
		Via:        append([]string(nil), p.path...),
		Step:       step,
		Err:        err,
	}
}

func (p *pass) extractOne(ctx context.Context, d artifact.Descriptor, dest string, hint *prefetched) (*Node, error) {
	logger := p.logger.With().Str("artifact", d.String()).Logger()

	if err := ctx.Err(); err != nil {
		return nil, p.fail(d, StepResolve, err)
	}
	if p.active[d.Key()] {
		chain := append(append([]string(nil), p.path...), d.String())
		return nil, p.fail(d, StepResolve, &errors.CycleError{Chain: chain})
	}

	// Resolve
	start := time.Now()
	var (
		a   *artifact.ResolvedArtifact
		err error
	)
	if hint != nil && (hint.artifact != nil || hint.err != nil) {
		a, err = hint.artifact, hint.err
	} else {
		a, err = p.resolver.Resolve(ctx, d)
	}
	if err != nil {
		return nil, p.fail(d, StepResolve, err)
	}
	p.reporter.Step(fmt.Sprintf("Resolved %s from %s", a.Coordinates(), a.Repository()))
	logger.Debug().
		Str("step", StepResolve).
		Str("version", a.Version()).
		Str("repository", a.Repository()).
		Dur("duration", time.Since(start)).
		Msg("Resolved dependency")

	// Extract
	if err := ctx.Err(); err != nil {
		return nil, p.fail(d, StepExtract, err)
	}
	if d.ArtifactID == "." || d.ArtifactID == ".." {
		return nil, p.fail(d, StepExtract, &errors.PathTraversalError{Path: d.ArtifactID, Root: dest})
	}
	dir := filepath.Join(dest, d.ArtifactID)
	if !p.archives.Supports(a.File()) {
		return nil, p.fail(d, StepExtract, &errors.UnsupportedFormatError{
			Op:        "unarchive",
			Extension: archive.ExtensionOf(a.File()),
			Path:      a.File(),
		})
	}

	loadDir := ""
	if !p.opts.DryRun {
		start = time.Now()
		if err := p.unpack(ctx, a.File(), dir); err != nil {
			return nil, p.fail(d, StepExtract, err)
		}
		loadDir = dir
		p.reporter.Step(fmt.Sprintf("Extracted %s into %s", a.ArtifactID(), dir))
		logger.Debug().
			Str("step", StepExtract).
			Str("dest", dir).
			Dur("duration", time.Since(start)).
			Msg("Extracted dependency")
	}

	// Descend
	deps, err := p.manifests.LoadDependencies(ctx, a, loadDir)
	if err != nil {
		return nil, p.fail(d, StepDescend, err)
	}
	logger.Debug().
		Str("step", StepDescend).
		Int("dependencies", len(deps)).
		Msg("Descending into dependency")

	p.active[d.Key()] = true
	p.path = append(p.path, d.String())
	children, err := p.extractAll(ctx, deps, dir)
	p.path = p.path[:len(p.path)-1]
	delete(p.active, d.Key())
	if err != nil {
		return nil, err
	}

	n := &Node{Descriptor: d, Artifact: a, Dir: dir, Children: children}
	if p.opts.Digest && !p.opts.DryRun {
		h, err := dirhash.HashDir(dir, a.Coordinates().String(), dirhash.Hash1)
		if err != nil {
			return nil, p.fail(d, StepExtract, err)
		}
		n.Digest = h
	}
	return n, nil
}

// unpack replaces dir with the contents of file.
func (p *pass) unpack(ctx context.Context, file, dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return errors.NewFileError(filepath.Dir(dir), "mkdir", err)
	}
	if err := fileutil.ResetDir(dir); err != nil {
		return err
	}
	return p.archives.Unarchive(ctx, file, dir, p.opts.filters()...)
}
