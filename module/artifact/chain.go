package artifact

import (
	"context"
	"io"
	"time"

	"github.com/harness/depextract/util/common/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Chain is the ordered set of repositories consulted during resolution: the
// local cache first, then every remote in configured order.
type Chain struct {
	local   *LocalRepository
	remotes []Repository
	logger  zerolog.Logger
}

// NewChain creates a chain with local as its cache.
func NewChain(local *LocalRepository, remotes ...Repository) *Chain {
	return &Chain{
		local:   local,
		remotes: remotes,
		logger: log.With().
			Str("component", "repository_chain").
			Logger(),
	}
}

// Local returns the cache at the head of the chain.
func (c *Chain) Local() *LocalRepository { return c.local }

// Remotes returns the remotes in lookup order.
func (c *Chain) Remotes() []Repository { return c.remotes }

// Remote returns the remote with the given id.
func (c *Chain) Remote(id string) (Repository, bool) {
	for _, r := range c.remotes {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// IDs returns the ids of every repository in lookup order.
func (c *Chain) IDs() []string {
	ids := []string{c.local.ID()}
	for _, r := range c.remotes {
		ids = append(ids, r.ID())
	}
	return ids
}

// Fetch returns a local path for coords and the id of the repository that
// served it. A local hit is returned as is. Otherwise the first remote that
// has coords wins and the file is cached into the local repository.
//
// When no repository holds coords the error is an ArtifactNotFoundError,
// unless some remote failed with a transport error, in which case that
// failure is reported as an ArtifactResolutionError instead.
func (c *Chain) Fetch(ctx context.Context, coords Coordinates) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if p, ok := c.local.Find(coords); ok {
		c.logger.Debug().Str("artifact", coords.String()).Msg("Local cache hit")
		return p, c.local.ID(), nil
	}

	var transportErr *errors.ArtifactResolutionError
	for _, remote := range c.remotes {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		logger := c.logger.With().
			Str("artifact", coords.String()).
			Str("repository", remote.ID()).
			Logger()
		start := time.Now()

		p, err := c.local.receive(coords, func(w io.Writer) error {
			return remote.Fetch(ctx, coords, w)
		})
		if err == nil {
			logger.Info().Dur("duration", time.Since(start)).Msg("Fetched artifact")
			return p, remote.ID(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", "", ctxErr
		}
		if errors.Is(err, errors.ErrNotFound) {
			logger.Debug().Msg("Artifact not found in repository")
			continue
		}

		logger.Warn().Err(err).Msg("Repository failed")
		if transportErr == nil {
			transportErr = &errors.ArtifactResolutionError{
				Artifact:   coords.String(),
				Repository: remote.ID(),
				Err:        err,
			}
		}
	}

	if transportErr != nil {
		return "", "", transportErr
	}
	return "", "", &errors.ArtifactNotFoundError{Artifact: coords.String(), Repositories: c.IDs()}
}

// Versions returns the union of the versions every repository lists for
// groupId:artifactId, sorted ascending. Transport failures are only fatal
// when no repository could list anything.
func (c *Chain) Versions(ctx context.Context, coords Coordinates) ([]string, error) {
	seen := make(map[string]struct{})
	var versions []string
	add := func(vs []string) {
		for _, v := range vs {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				versions = append(versions, v)
			}
		}
	}

	local, err := c.local.Versions(ctx, coords)
	if err != nil {
		return nil, err
	}
	add(local)

	var transportErr error
	for _, remote := range c.remotes {
		lister, ok := remote.(VersionLister)
		if !ok {
			continue
		}
		vs, err := lister.Versions(ctx, coords)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn().Err(err).Str("repository", remote.ID()).Msg("Failed to list versions")
			if transportErr == nil {
				transportErr = &errors.ArtifactResolutionError{
					Artifact:   coords.GroupID + ":" + coords.ArtifactID,
					Repository: remote.ID(),
					Err:        err,
				}
			}
			continue
		}
		add(vs)
	}

	if len(versions) == 0 && transportErr != nil {
		return nil, transportErr
	}
	SortVersions(versions)
	return versions, nil
}

// Store installs src as coords into the local repository.
func (c *Chain) Store(coords Coordinates, src string, metadata []byte) (string, error) {
	return c.local.Store(coords, src, metadata)
}
