package command

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/harness/depextract/cmd/cmdutils"
	"github.com/harness/depextract/module/artifact"
	"github.com/harness/depextract/module/project"
	"github.com/harness/depextract/util/common/fileutil"

	"github.com/rs/zerolog/log"
)

// loadProject picks the project a command works on: the pom.xml in dir
// when there is one, otherwise the project section of the config file,
// otherwise an anonymous project rooted at dir. Dependencies given on the
// command line are appended to whatever the project declares. Versions the
// pom.xml leaves to its parent are filled in through the resolver.
func loadProject(ctx context.Context, f *cmdutils.Factory, dir string, extra []string) (*project.Project, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	var p *project.Project
	switch {
	case fileutil.IsFile(filepath.Join(abs, project.ManifestFile)):
		log.Debug().Str("dir", abs).Msg("Loading project from manifest")
		m, err := artifact.LoadManifest(filepath.Join(abs, project.ManifestFile))
		if err != nil {
			return nil, err
		}
		if m.Unresolved() {
			resolver, err := f.Resolver()
			if err != nil {
				return nil, err
			}
			if m, err = resolver.Effective(ctx, m); err != nil {
				return nil, err
			}
		}
		if p, err = project.FromManifest(m, abs); err != nil {
			return nil, err
		}
	default:
		cfg, err := f.Config()
		if err != nil {
			return nil, err
		}
		pc := project.Config{ArtifactID: filepath.Base(abs), Version: "0", BaseDir: abs}
		if cfg.Project != nil {
			pc = *cfg.Project
			if pc.BaseDir == "" {
				pc.BaseDir = abs
			}
		}
		if p, err = project.New(pc); err != nil {
			return nil, err
		}
	}

	for _, s := range extra {
		d, err := artifact.ParseDescriptor(s)
		if err != nil {
			return nil, err
		}
		p.Dependencies = append(p.Dependencies, d)
	}
	return p, nil
}
