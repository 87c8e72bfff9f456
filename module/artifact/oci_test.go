package artifact

import (
	"bytes"
	"context"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/harness/depextract/internal/testutil"
	"github.com/harness/depextract/util/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(registry.New())
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return u.Host
}

func TestOCIRepositoryPublishAndFetch(t *testing.T) {
	host := newTestRegistry(t)
	repo := NewOCIRepository("oci", host+"/maven", WithInsecure(true))
	ctx := context.Background()

	dir := t.TempDir()
	zip := testutil.WriteZip(t, filepath.Join(dir, "lib-a.zip"), map[string]string{"a.txt": "a"})
	pom := testutil.WriteFile(t, filepath.Join(dir, "lib-a.pom"), testutil.Pom("com.example", "lib-a", "1.0"))

	require.NoError(t, repo.Publish(ctx, libA, zip))
	require.NoError(t, repo.Publish(ctx, libA.Pom(), pom))

	var got bytes.Buffer
	require.NoError(t, repo.Fetch(ctx, libA, &got))
	want := testutil.ReadTree(t, dir)["lib-a.zip"]
	assert.Equal(t, want, got.String())

	var gotPom bytes.Buffer
	require.NoError(t, repo.Fetch(ctx, libA.Pom(), &gotPom), "publishing the pom keeps the archive layer")
	assert.Contains(t, gotPom.String(), "<artifactId>lib-a</artifactId>")

	vs, err := repo.Versions(ctx, libA)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0"}, vs)
}

func TestOCIRepositoryNotFound(t *testing.T) {
	host := newTestRegistry(t)
	repo := NewOCIRepository("oci", host, WithInsecure(true))
	ctx := context.Background()

	err := repo.Fetch(ctx, libA, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	vs, err := repo.Versions(ctx, libA)
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestOCIRepositoryInChain(t *testing.T) {
	host := newTestRegistry(t)
	oci := NewOCIRepository("oci", host, WithInsecure(true))
	ctx := context.Background()

	zip := testutil.WriteZip(t, filepath.Join(t.TempDir(), "lib-a.zip"), map[string]string{"a.txt": "a"})
	require.NoError(t, oci.Publish(ctx, libA, zip))

	r, _ := newTestResolver(t, oci)
	a, err := r.Resolve(ctx, Descriptor{GroupID: "com.example", ArtifactID: "lib-a", Version: "1.0", Type: "zip"})
	require.NoError(t, err)
	assert.Equal(t, "oci", a.Repository())
	assert.FileExists(t, a.File())
}

func TestOCIReference(t *testing.T) {
	repo := NewOCIRepository("oci", "oci://registry.example.com/maven/")
	c := Coordinates{GroupID: "Org.Acme", ArtifactID: "Widget", Version: "1.0+build.5", Type: "zip"}
	assert.Equal(t, "registry.example.com/maven/org.acme/widget:1.0_build.5", repo.Reference(c))
}
