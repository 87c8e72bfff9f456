package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harness/depextract/util/common/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ResolvedArtifact is a descriptor bound to a concrete version and a file on
// disk. The binding is fixed by the Resolver that produced it.
type ResolvedArtifact struct {
	descriptor Descriptor
	version    string
	file       string
	repository string
}

// NewResolvedArtifact binds d to version and file. It is meant for
// repositories and tests; extraction code receives artifacts from a Resolver.
func NewResolvedArtifact(d Descriptor, version, file, repository string) *ResolvedArtifact {
	return &ResolvedArtifact{descriptor: d, version: version, file: file, repository: repository}
}

func (a *ResolvedArtifact) Descriptor() Descriptor { return a.descriptor }

func (a *ResolvedArtifact) ArtifactID() string { return a.descriptor.ArtifactID }

// Version is the concrete version the descriptor's version spec resolved to.
func (a *ResolvedArtifact) Version() string { return a.version }

// File is the local path of the artifact.
func (a *ResolvedArtifact) File() string { return a.file }

// Repository is the id of the repository that served the file.
func (a *ResolvedArtifact) Repository() string { return a.repository }

func (a *ResolvedArtifact) Coordinates() Coordinates {
	return a.descriptor.Coordinates(a.version)
}

func (a *ResolvedArtifact) String() string {
	return a.Coordinates().String()
}

func (a *ResolvedArtifact) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		GroupID    string `json:"groupId"`
		ArtifactID string `json:"artifactId"`
		Version    string `json:"version"`
		Requested  string `json:"requested,omitempty"`
		Type       string `json:"type"`
		Classifier string `json:"classifier,omitempty"`
		Scope      Scope  `json:"scope"`
		File       string `json:"file"`
		Repository string `json:"repository"`
	}{
		GroupID:    a.descriptor.GroupID,
		ArtifactID: a.descriptor.ArtifactID,
		Version:    a.version,
		Requested:  requested(a.descriptor.Version, a.version),
		Type:       a.descriptor.EffectiveType(),
		Classifier: a.descriptor.Classifier,
		Scope:      a.descriptor.EffectiveScope(),
		File:       a.file,
		Repository: a.repository,
	})
}

func requested(spec, version string) string {
	if spec == version {
		return ""
	}
	return spec
}

// Resolver turns descriptors into resolved artifacts using a repository chain.
type Resolver struct {
	chain  *Chain
	logger zerolog.Logger
}

// NewResolver creates a resolver over chain.
func NewResolver(chain *Chain) *Resolver {
	return &Resolver{
		chain: chain,
		logger: log.With().
			Str("component", "resolver").
			Logger(),
	}
}

// Chain returns the repository chain the resolver consults.
func (r *Resolver) Chain() *Chain { return r.chain }

// ResolveVersion collapses d's version spec to one concrete version. A soft
// or hard single version needs no repository lookup; a true range selects the
// highest version listed by the chain that satisfies it.
func (r *Resolver) ResolveVersion(ctx context.Context, d Descriptor) (string, error) {
	vr, err := ParseVersionRange(d.Version)
	if err != nil {
		return "", err
	}
	if v, ok := vr.Pinned(); ok {
		return v, nil
	}

	versions, err := r.chain.Versions(ctx, d.Coordinates(""))
	if err != nil {
		return "", err
	}
	v, ok := vr.Select(versions)
	if !ok {
		return "", &errors.ArtifactNotFoundError{
			Artifact:     d.String(),
			Repositories: r.chain.IDs(),
		}
	}
	r.logger.Debug().
		Str("artifact", d.Key()).
		Str("range", d.Version).
		Str("version", v).
		Int("candidates", len(versions)).
		Msg("Selected version from range")
	return v, nil
}

// Resolve binds d to a concrete version and a local file.
func (r *Resolver) Resolve(ctx context.Context, d Descriptor) (*ResolvedArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	version, err := r.ResolveVersion(ctx, d)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	file, repo, err := r.chain.Fetch(ctx, d.Coordinates(version))
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("artifact", d.Key()).
		Str("version", version).
		Str("repository", repo).
		Dur("duration", time.Since(start)).
		Msg("Resolved artifact")
	return NewResolvedArtifact(d, version, file, repo), nil
}

// Manifest loads the .pom stored next to c through the chain. It returns an
// ArtifactNotFoundError when no repository has one.
func (r *Resolver) Manifest(ctx context.Context, c Coordinates) (*Manifest, error) {
	file, _, err := r.chain.Fetch(ctx, c.Pom())
	if err != nil {
		return nil, err
	}
	return LoadManifest(file)
}

// maxParentDepth bounds the parent chain Effective walks.
const maxParentDepth = 32

// Effective completes m from its parent chain when a dependency version is
// left open. Each parent is fetched as a .pom through the chain and
// contributes its properties and dependency management. A parent that no
// repository holds ends the walk. Versions still open then fail with an
// UnresolvedVersionError.
func (r *Resolver) Effective(ctx context.Context, m *Manifest) (*Manifest, error) {
	chain := []string{m.Coordinates().String()}
	seen := map[string]bool{chain[0]: true}

	parent := m.Parent
	for parent != nil && m.Unresolved() {
		c := parent.Pom()
		if seen[c.String()] {
			return nil, &errors.CycleError{Chain: append(chain, c.String())}
		}
		if len(chain) > maxParentDepth {
			return nil, errors.NewValidationError("parent",
				fmt.Sprintf("parent chain of %s is deeper than %d", chain[0], maxParentDepth))
		}
		seen[c.String()] = true
		chain = append(chain, c.String())

		file, _, err := r.chain.Fetch(ctx, c)
		if errors.Is(err, errors.ErrArtifactNotFound) {
			r.logger.Warn().
				Str("manifest", chain[0]).
				Str("parent", c.String()).
				Msg("Parent manifest not found")
			break
		}
		if err != nil {
			return nil, err
		}
		pm, err := loadManifest(file, decodeManifest)
		if err != nil {
			return nil, err
		}
		if err := m.Inherit(pm); err != nil {
			return nil, err
		}
		r.logger.Debug().
			Str("manifest", chain[0]).
			Str("parent", c.String()).
			Msg("Inherited from parent manifest")
		parent = pm.Parent
	}

	if err := m.CheckVersions(); err != nil {
		return nil, err
	}
	return m, nil
}

// Install stores srcFile in the local repository under c, together with
// POM metadata rendered from m. A nil m yields a minimal manifest built from
// c. The installed path is returned.
func (r *Resolver) Install(ctx context.Context, srcFile string, c Coordinates, m *Manifest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.GroupID == "" || c.ArtifactID == "" || c.Version == "" {
		return "", errors.NewValidationError("coordinates", fmt.Sprintf("%s is incomplete", c))
	}
	if c.Type == "" {
		c.Type = DefaultType
	}
	if m == nil {
		m = ManifestFor(c)
	}

	metadata, err := m.Marshal()
	if err != nil {
		return "", err
	}

	installed, err := r.chain.Store(c, srcFile, metadata)
	if err != nil {
		return "", fmt.Errorf("install %s: %w", c, err)
	}
	r.logger.Info().
		Str("artifact", c.String()).
		Str("file", installed).
		Msg("Installed artifact")
	return installed, nil
}

// Deploy publishes the locally installed files of c, the artifact and its
// .pom, to the remote repoID. The remote must accept uploads.
func (r *Resolver) Deploy(ctx context.Context, repoID string, c Coordinates) error {
	remote, ok := r.chain.Remote(repoID)
	if !ok {
		return errors.NewValidationError("repository", fmt.Sprintf("no remote repository %q", repoID))
	}
	pub, ok := remote.(Publisher)
	if !ok {
		return fmt.Errorf("repository %s does not accept uploads: %w", repoID, errors.ErrInvalidOperation)
	}
	if c.Type == "" {
		c.Type = DefaultType
	}

	files := []Coordinates{c}
	if c.Type != "pom" {
		files = append(files, c.Pom())
	}
	for _, fc := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		file, ok := r.chain.Local().Find(fc)
		if !ok {
			return &errors.ArtifactNotFoundError{Artifact: fc.String(), Repositories: []string{r.chain.Local().ID()}}
		}
		if err := pub.Publish(ctx, fc, file); err != nil {
			return fmt.Errorf("deploy %s to %s: %w", fc, repoID, err)
		}
	}
	r.logger.Info().
		Str("artifact", c.String()).
		Str("repository", repoID).
		Msg("Deployed artifact")
	return nil
}

// InstallManifest installs a manifest file as a pom-type artifact.
func (r *Resolver) InstallManifest(ctx context.Context, m *Manifest) (string, error) {
	data, err := m.Marshal()
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp("", "depextract-*.pom")
	if err != nil {
		return "", errors.NewFileError(filepath.Join(os.TempDir(), "depextract-*.pom"), "create_temp", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", errors.NewFileError(tmp.Name(), "write", err)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.NewFileError(tmp.Name(), "close", err)
	}
	return r.Install(ctx, tmp.Name(), m.Coordinates().Pom(), m)
}
