package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/static"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/harness/depextract/util/common/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TitleAnnotation names the file a layer carries.
const TitleAnnotation = "org.opencontainers.image.title"

const layerMediaType types.MediaType = "application/vnd.maven.artifact.layer.v1"

var invalidTagChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// OCIRepository stores every version of an artifact as an OCI image at
// <registry>/<groupId>/<artifactId>:<version>. Each file of the version (the
// archive, classified variants, the pom) is one layer annotated with its
// file name.
type OCIRepository struct {
	id       string
	registry string
	insecure bool
	creds    Credentials
	logger   zerolog.Logger
}

// OCIOption configures an OCIRepository.
type OCIOption func(*OCIRepository)

// WithInsecure allows plain HTTP registries.
func WithInsecure(insecure bool) OCIOption {
	return func(r *OCIRepository) { r.insecure = insecure }
}

// WithOCICredentials sets basic or token credentials for the registry.
func WithOCICredentials(c Credentials) OCIOption {
	return func(r *OCIRepository) { r.creds = c }
}

// NewOCIRepository creates a remote for registry, e.g. "registry.example.com/maven".
func NewOCIRepository(id, registry string, opts ...OCIOption) *OCIRepository {
	r := &OCIRepository{
		id:       id,
		registry: strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(registry, "oci://"), "https://"), "/"),
		logger: log.With().
			Str("component", "oci_repository").
			Str("repository", id).
			Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *OCIRepository) ID() string { return r.id }

// Repository returns the image repository holding groupId:artifactId.
func (r *OCIRepository) Repository(c Coordinates) string {
	return r.registry + "/" + strings.ToLower(c.GroupID) + "/" + strings.ToLower(c.ArtifactID)
}

// Reference returns the tagged image reference of c's version.
func (r *OCIRepository) Reference(c Coordinates) string {
	return r.Repository(c) + ":" + invalidTagChars.ReplaceAllString(c.Version, "_")
}

func (r *OCIRepository) options(ctx context.Context) []crane.Option {
	opts := []crane.Option{
		crane.WithContext(ctx),
		crane.WithUserAgent("depextract"),
	}
	if r.insecure {
		opts = append(opts, crane.Insecure)
	}
	switch {
	case r.creds.Token != "":
		opts = append(opts, crane.WithAuth(&authn.Bearer{Token: r.creds.Token}))
	case r.creds.Username != "":
		opts = append(opts, crane.WithAuth(&authn.Basic{Username: r.creds.Username, Password: r.creds.Password}))
	default:
		opts = append(opts, crane.WithAuthFromKeychain(authn.DefaultKeychain))
	}
	return opts
}

func (r *OCIRepository) Fetch(ctx context.Context, c Coordinates, w io.Writer) error {
	ref := r.Reference(c)
	img, err := crane.Pull(ref, r.options(ctx)...)
	if err != nil {
		return r.classify(ref, err)
	}

	manifest, err := img.Manifest()
	if err != nil {
		return r.classify(ref, err)
	}

	want := c.FileName()
	for _, desc := range manifest.Layers {
		if desc.Annotations[TitleAnnotation] != want {
			continue
		}
		layer, err := img.LayerByDigest(desc.Digest)
		if err != nil {
			return r.classify(ref, err)
		}
		rc, err := layer.Compressed()
		if err != nil {
			return r.classify(ref, err)
		}
		defer rc.Close()

		if _, err := io.Copy(w, rc); err != nil {
			return fmt.Errorf("download %s from %s: %w", want, ref, err)
		}
		r.logger.Debug().
			Str("artifact", c.String()).
			Str("digest", desc.Digest.String()).
			Msg("Pulled artifact layer")
		return nil
	}
	return fmt.Errorf("%s has no layer %s: %w", ref, want, errors.ErrNotFound)
}

// Versions lists the tags of the artifact's image repository.
func (r *OCIRepository) Versions(ctx context.Context, c Coordinates) ([]string, error) {
	repo := r.Repository(c)
	tags, err := crane.ListTags(repo, r.options(ctx)...)
	if err != nil {
		err = r.classify(repo, err)
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tags, nil
}

// Publish adds file as a layer to c's version image, creating the image when
// it does not exist yet. An existing layer with the same file name is
// replaced.
func (r *OCIRepository) Publish(ctx context.Context, c Coordinates, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return errors.NewFileError(file, "read", err)
	}

	ref := r.Reference(c)
	opts := r.options(ctx)

	base := empty.Image
	var keep []mutate.Addendum
	if existing, err := crane.Pull(ref, opts...); err == nil {
		manifest, err := existing.Manifest()
		if err != nil {
			return r.classify(ref, err)
		}
		for _, desc := range manifest.Layers {
			if desc.Annotations[TitleAnnotation] == c.FileName() {
				continue
			}
			layer, err := existing.LayerByDigest(desc.Digest)
			if err != nil {
				return r.classify(ref, err)
			}
			keep = append(keep, mutate.Addendum{Layer: layer, Annotations: desc.Annotations})
		}
	} else if !errors.Is(r.classify(ref, err), errors.ErrNotFound) {
		return r.classify(ref, err)
	}

	keep = append(keep, mutate.Addendum{
		Layer:       static.NewLayer(data, layerMediaType),
		Annotations: map[string]string{TitleAnnotation: c.FileName()},
	})
	img, err := mutate.Append(base, keep...)
	if err != nil {
		return fmt.Errorf("failed to assemble image for %s: %w", ref, err)
	}
	if err := crane.Push(img, ref, opts...); err != nil {
		return r.classify(ref, err)
	}

	r.logger.Info().Str("artifact", c.String()).Str("reference", ref).Msg("Published artifact")
	return nil
}

// classify maps registry answers that mean "no such thing" to ErrNotFound.
func (r *OCIRepository) classify(ref string, err error) error {
	var terr *transport.Error
	if errors.As(err, &terr) {
		if terr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", ref, errors.ErrNotFound)
		}
		for _, d := range terr.Errors {
			switch d.Code {
			case transport.ManifestUnknownErrorCode, transport.NameUnknownErrorCode, transport.BlobUnknownErrorCode:
				return fmt.Errorf("%s: %w", ref, errors.ErrNotFound)
			}
		}
	}
	return fmt.Errorf("%s: %w", ref, err)
}
