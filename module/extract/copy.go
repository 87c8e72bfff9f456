package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/harness/depextract/module/artifact"
	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/fileutil"
)

// CopyDependencies resolves the direct dependencies in deps and copies
// their files into dest, keeping each source modification time. When two
// descriptors share a key the one declared last wins. The copied paths are
// returned in declaration order of the winners.
func (e *Engine) CopyDependencies(ctx context.Context, deps []artifact.Descriptor, dest string) ([]string, error) {
	abs, err := destination(dest)
	if err != nil {
		return nil, err
	}
	p := e.newPass()

	deps = e.filter(deps)
	last := make(map[string]int, len(deps))
	for i, d := range deps {
		last[d.Key()] = i
	}

	var winners []artifact.Descriptor
	for i, d := range deps {
		if last[d.Key()] == i {
			winners = append(winners, d)
		}
	}

	pre := p.prefetch(ctx, winners)
	resolved := make([]*artifact.ResolvedArtifact, 0, len(winners))
	for i, d := range winners {
		if err := ctx.Err(); err != nil {
			return nil, p.fail(d, StepResolve, err)
		}
		var (
			a   *artifact.ResolvedArtifact
			err error
		)
		if pre != nil {
			a, err = pre[i].artifact, pre[i].err
		} else {
			a, err = e.resolver.Resolve(ctx, d)
		}
		if err != nil {
			return nil, p.fail(d, StepResolve, err)
		}
		resolved = append(resolved, a)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, errors.NewFileError(abs, "mkdir", err)
	}
	files := make([]string, 0, len(resolved))
	for _, a := range resolved {
		copied, err := fileutil.CopyFileToDirectory(a.File(), abs)
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", a, err)
		}
		p.reporter.Step(fmt.Sprintf("Copied %s", a.Coordinates().FileName()))
		files = append(files, copied)
	}

	p.logger.Info().
		Str("dest", abs).
		Int("files", len(files)).
		Msg("Copied dependencies")
	return files, nil
}
