// Package project models the root project whose dependencies are
// materialized: its coordinates, directories, declared dependencies and
// properties.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harness/depextract/module/artifact"
	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/fileutil"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultOutputDir is the output directory name below the base dir.
	DefaultOutputDir = "target"
	// DefaultSourceDir is the primary source directory below the base dir.
	DefaultSourceDir = "src/main/java"
	// DefaultResourceDir is the resource directory below the base dir.
	DefaultResourceDir = "src/main/resources"
	// ManifestFile is the project manifest read from the base dir.
	ManifestFile = "pom.xml"
)

// Config is the serializable form of a project.
type Config struct {
	GroupID         string                `yaml:"groupId" toml:"groupId"`
	ArtifactID      string                `yaml:"artifactId" toml:"artifactId"`
	Version         string                `yaml:"version" toml:"version"`
	Packaging       string                `yaml:"packaging" toml:"packaging"`
	Name            string                `yaml:"name" toml:"name"`
	BaseDir         string                `yaml:"baseDir" toml:"baseDir"`
	OutputDir       string                `yaml:"outputDir" toml:"outputDir"`
	FinalName       string                `yaml:"finalName" toml:"finalName"`
	SourceDirectory string                `yaml:"sourceDirectory" toml:"sourceDirectory"`
	Resources       []string              `yaml:"resources" toml:"resources"`
	Properties      map[string]string     `yaml:"properties" toml:"properties"`
	Dependencies    []artifact.Descriptor `yaml:"dependencies" toml:"dependencies"`
}

// Project is the root of one extraction pass. It is built per invocation
// and never shared between passes.
type Project struct {
	GroupID      string
	ArtifactID   string
	Version      string
	Packaging    string
	Name         string
	FinalName    string
	Dependencies []artifact.Descriptor

	paths             *Paths
	sourceDir         string
	extraSources      []string
	resourceDirs      []string
	properties        map[string]string
	customProperties  map[string]string
	executionOverride map[string]string
}

// New builds a project from cfg. Relative directories are taken relative to
// cfg.BaseDir, which defaults to the working directory.
func New(cfg Config) (*Project, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	paths, err := NewPaths(base, cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	p := &Project{
		GroupID:           cfg.GroupID,
		ArtifactID:        cfg.ArtifactID,
		Version:           cfg.Version,
		Packaging:         cfg.Packaging,
		Name:              cfg.Name,
		FinalName:         cfg.FinalName,
		paths:             paths,
		properties:        make(map[string]string),
		customProperties:  make(map[string]string),
		executionOverride: make(map[string]string),
	}
	if p.Packaging == "" {
		p.Packaging = artifact.DefaultType
	}
	if p.FinalName == "" && p.ArtifactID != "" {
		p.FinalName = p.ArtifactID + "-" + p.Version
	}
	for k, v := range cfg.Properties {
		p.properties[k] = v
	}

	src := cfg.SourceDirectory
	if src == "" {
		src = DefaultSourceDir
	}
	if p.sourceDir, err = paths.Canonicalize(src); err != nil {
		return nil, err
	}

	resources := cfg.Resources
	if len(resources) == 0 {
		resources = []string{DefaultResourceDir}
	}
	for _, r := range resources {
		dir, err := paths.Canonicalize(r)
		if err != nil {
			return nil, err
		}
		p.resourceDirs = append(p.resourceDirs, dir)
	}

	for i, d := range cfg.Dependencies {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("dependency %d: %w", i, err)
		}
		p.Dependencies = append(p.Dependencies, d)
	}
	return p, nil
}

// FromManifest builds a project rooted at baseDir from a parsed manifest.
func FromManifest(m *artifact.Manifest, baseDir string) (*Project, error) {
	cfg := Config{
		GroupID:      m.GroupID,
		ArtifactID:   m.ArtifactID,
		Version:      m.Version,
		Packaging:    m.Packaging,
		Name:         m.Name,
		BaseDir:      baseDir,
		Properties:   m.Properties,
		Dependencies: m.Dependencies,
	}
	return New(cfg)
}

// Load reads <baseDir>/pom.xml.
func Load(baseDir string) (*Project, error) {
	file := filepath.Join(baseDir, ManifestFile)
	if !fileutil.IsFile(file) {
		return nil, &errors.FileNotFoundError{Path: file}
	}
	m, err := artifact.LoadManifest(file)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("manifest", file).
		Str("project", m.Coordinates().String()).
		Int("dependencies", len(m.Dependencies)).
		Msg("Loaded project manifest")
	return FromManifest(m, baseDir)
}

// Paths returns the project's path canonicalizer.
func (p *Project) Paths() *Paths { return p.paths }

// BaseDir returns the absolute project base directory.
func (p *Project) BaseDir() string { return p.paths.Base() }

// OutputDir returns the absolute output directory.
func (p *Project) OutputDir() string { return p.paths.Output() }

// Coordinates returns the coordinates of the artifact the project builds.
func (p *Project) Coordinates() artifact.Coordinates {
	return artifact.Coordinates{
		GroupID:    p.GroupID,
		ArtifactID: p.ArtifactID,
		Version:    p.Version,
		Type:       p.Packaging,
	}
}

// Manifest renders the project as a manifest suitable for installation.
func (p *Project) Manifest() *artifact.Manifest {
	m := artifact.ManifestFor(p.Coordinates())
	m.Name = p.Name
	m.Dependencies = append(m.Dependencies, p.Dependencies...)
	return m
}

// AddSourceDirectory registers another source directory after the primary
// one.
func (p *Project) AddSourceDirectory(dir string) error {
	abs, err := p.paths.Canonicalize(dir)
	if err != nil {
		return err
	}
	p.extraSources = append(p.extraSources, abs)
	return nil
}

// SourceDirectories returns the primary source directory followed by every
// added one, in registration order.
func (p *Project) SourceDirectories() []string {
	dirs := make([]string, 0, len(p.extraSources)+1)
	dirs = append(dirs, p.sourceDir)
	return append(dirs, p.extraSources...)
}

// ResourceDirectories returns the configured resource directories.
func (p *Project) ResourceDirectories() []string {
	return append([]string(nil), p.resourceDirs...)
}

// TempPackagePath is where the packaged artifact is staged before
// archiving: <output>/<finalName>.
func (p *Project) TempPackagePath() string {
	return filepath.Join(p.OutputDir(), p.FinalName)
}

// EnsureOutputDir creates the output directory if it does not exist.
func (p *Project) EnsureOutputDir() error {
	if err := os.MkdirAll(p.OutputDir(), 0755); err != nil {
		return errors.NewFileError(p.OutputDir(), "mkdir", err)
	}
	return nil
}

// ResolveTargetPath maps a project path to the same relative location under
// the output directory.
func (p *Project) ResolveTargetPath(path string) (string, error) {
	return p.paths.OutputPath(path)
}
