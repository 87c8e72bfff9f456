package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/harness/depextract/module/archive"
	"github.com/harness/depextract/module/artifact"
	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/fileutil"
)

// ManifestLoader yields the dependencies an extracted artifact declares.
type ManifestLoader interface {
	// LoadDependencies reads the manifest of a. dir is where a was
	// extracted, or "" when nothing was extracted. A nil slice means the
	// artifact is a leaf.
	LoadDependencies(ctx context.Context, a *artifact.ResolvedArtifact, dir string) ([]artifact.Descriptor, error)
}

// manifestLoader looks for a manifest embedded in the extracted tree first
// and falls back to the .pom stored next to the artifact in the repository
// chain. Versions a manifest leaves open are completed from its parents.
type manifestLoader struct {
	resolver *artifact.Resolver
	archives *archive.Registry
	filters  []archive.Option
}

// NewManifestLoader returns the default loader over resolver's chain. When
// nothing was extracted the embedded manifest is read straight from the
// archive through archives, with filters applied as on extraction.
func NewManifestLoader(resolver *artifact.Resolver, archives *archive.Registry, filters ...archive.Option) ManifestLoader {
	return &manifestLoader{resolver: resolver, archives: archives, filters: filters}
}

func (l *manifestLoader) LoadDependencies(ctx context.Context, a *artifact.ResolvedArtifact, dir string) ([]artifact.Descriptor, error) {
	m, err := l.embedded(ctx, a, dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		if m, err = l.resolver.Manifest(ctx, a.Coordinates()); err != nil {
			if errors.Is(err, errors.ErrArtifactNotFound) {
				return nil, nil
			}
			return nil, err
		}
	}
	if m, err = l.resolver.Effective(ctx, m); err != nil {
		return nil, err
	}
	return m.Dependencies, nil
}

func (l *manifestLoader) embedded(ctx context.Context, a *artifact.ResolvedArtifact, dir string) (*artifact.Manifest, error) {
	d := a.Descriptor()
	paths := artifact.EmbeddedManifestPaths(d.GroupID, d.ArtifactID)
	if dir != "" {
		for _, rel := range paths {
			file := filepath.Join(dir, filepath.FromSlash(rel))
			if fileutil.IsFile(file) {
				return artifact.LoadManifest(file)
			}
		}
		return nil, nil
	}

	name, data, err := l.archives.ReadEntry(ctx, a.File(), paths, l.filters...)
	if errors.Is(err, errors.ErrUnsupportedFormat) {
		return nil, nil
	}
	if err != nil || name == "" {
		return nil, err
	}
	m, err := artifact.ParseManifest(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s!/%s: %w", a.File(), name, err)
	}
	return m, nil
}
