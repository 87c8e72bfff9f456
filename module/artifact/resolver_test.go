package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harness/depextract/internal/testutil"
	"github.com/harness/depextract/util/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, remotes ...Repository) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	return NewResolver(NewChain(NewLocalRepository(root), remotes...)), root
}

func TestResolveExactVersion(t *testing.T) {
	remote := &memRepository{id: "central", files: map[string]string{libA.Path(): "zip-bytes"}}
	r, _ := newTestResolver(t, remote)

	d := Descriptor{GroupID: "com.example", ArtifactID: "lib-a", Version: "1.0", Type: "zip"}
	a, err := r.Resolve(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, "lib-a", a.ArtifactID())
	assert.Equal(t, "1.0", a.Version())
	assert.Equal(t, "central", a.Repository())
	assert.FileExists(t, a.File())
	assert.Equal(t, d, a.Descriptor())
}

func TestResolveRangeSelectsHighestMatch(t *testing.T) {
	c := func(v string) Coordinates {
		return Coordinates{GroupID: "com.example", ArtifactID: "lib-a", Version: v, Type: "zip"}
	}
	remote := &memRepository{
		id:       "central",
		versions: []string{"1.0", "1.4", "1.9", "2.0"},
		files: map[string]string{
			c("1.0").Path(): "1.0", c("1.4").Path(): "1.4", c("1.9").Path(): "1.9", c("2.0").Path(): "2.0",
		},
	}
	r, _ := newTestResolver(t, remote)

	a, err := r.Resolve(context.Background(), Descriptor{
		GroupID: "com.example", ArtifactID: "lib-a", Version: "[1.0,2.0)", Type: "zip",
	})
	require.NoError(t, err)
	assert.Equal(t, "1.9", a.Version())

	data, err := os.ReadFile(a.File())
	require.NoError(t, err)
	assert.Equal(t, "1.9", string(data))
}

func TestResolveRangeWithoutMatch(t *testing.T) {
	remote := &memRepository{id: "central", versions: []string{"3.0"}}
	r, _ := newTestResolver(t, remote)

	_, err := r.Resolve(context.Background(), Descriptor{
		GroupID: "com.example", ArtifactID: "lib-a", Version: "[1.0,2.0)", Type: "zip",
	})
	assert.True(t, errors.Is(err, errors.ErrArtifactNotFound))
}

func TestResolveMissingArtifact(t *testing.T) {
	r, _ := newTestResolver(t, &memRepository{id: "central", files: map[string]string{}})

	_, err := r.Resolve(context.Background(), Descriptor{GroupID: "com.example", ArtifactID: "ghost", Version: "1.0"})
	assert.True(t, errors.Is(err, errors.ErrArtifactNotFound))
}

func TestResolveInvalidDescriptor(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.Resolve(context.Background(), Descriptor{GroupID: "g", Version: "1.0"})
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestInstallThenResolve(t *testing.T) {
	r, root := newTestResolver(t)

	src := testutil.WriteZip(t, filepath.Join(t.TempDir(), "build", "widget.zip"), map[string]string{"a.txt": "a"})
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, stamp, stamp))

	c := Coordinates{GroupID: "org.acme", ArtifactID: "widget", Version: "1.0", Type: "zip"}
	m := &Manifest{
		GroupID: "org.acme", ArtifactID: "widget", Version: "1.0", Packaging: "zip",
		Dependencies: []Descriptor{{GroupID: "org.acme", ArtifactID: "gear", Version: "2.0"}},
	}

	installed, err := r.Install(context.Background(), src, c, m)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "org", "acme", "widget", "1.0", "widget-1.0.zip"), installed)

	info, err := os.Stat(installed)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(stamp), "installed file keeps the source mtime")

	a, err := r.Resolve(context.Background(), Descriptor{GroupID: "org.acme", ArtifactID: "widget", Version: "1.0", Type: "zip"})
	require.NoError(t, err)
	assert.Equal(t, LocalID, a.Repository())
	assert.Equal(t, installed, a.File())

	pom, err := r.Manifest(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, pom.Dependencies, 1)
	assert.Equal(t, "gear", pom.Dependencies[0].ArtifactID)

	vs, err := r.Chain().Versions(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0"}, vs)
	assert.FileExists(t, filepath.Join(root, "org", "acme", "widget", "maven-metadata-local.xml"))
}

func TestInstallManifest(t *testing.T) {
	r, root := newTestResolver(t)

	m := &Manifest{GroupID: "org.acme", ArtifactID: "bom", Version: "1.0", Packaging: "pom"}
	installed, err := r.InstallManifest(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "org", "acme", "bom", "1.0", "bom-1.0.pom"), installed)

	loaded, err := LoadManifest(installed)
	require.NoError(t, err)
	assert.Equal(t, "bom", loaded.ArtifactID)
}

func TestResolvedArtifactJSON(t *testing.T) {
	a := NewResolvedArtifact(Descriptor{GroupID: "g", ArtifactID: "a", Version: "[1,2)", Type: "zip"}, "1.5", "/repo/a.zip", "central")

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "1.5", out["version"])
	assert.Equal(t, "[1,2)", out["requested"])
	assert.Equal(t, "compile", out["scope"])
	assert.Equal(t, "/repo/a.zip", out["file"])
}

func TestEffectiveWalksParentChain(t *testing.T) {
	parent := Coordinates{GroupID: "org.acme", ArtifactID: "acme-parent", Version: "3", Type: "pom"}
	grand := Coordinates{GroupID: "org.acme", ArtifactID: "acme-root", Version: "1", Type: "pom"}
	remote := &memRepository{id: "central", files: map[string]string{
		parent.Path(): `<project><parent><groupId>org.acme</groupId><artifactId>acme-root</artifactId><version>1</version></parent>
<artifactId>acme-parent</artifactId><version>3</version><packaging>pom</packaging></project>`,
		grand.Path(): `<project><groupId>org.acme</groupId><artifactId>acme-root</artifactId><version>1</version>
<properties><core.version>1.7</core.version></properties>
<dependencyManagement><dependencies><dependency><groupId>org.acme</groupId><artifactId>tools</artifactId>
<version>4.2</version></dependency></dependencies></dependencyManagement></project>`,
	}}
	r, _ := newTestResolver(t, remote)

	m, err := ParseManifest(strings.NewReader(childPom))
	require.NoError(t, err)
	m, err = r.Effective(context.Background(), m)
	require.NoError(t, err)

	require.Len(t, m.Dependencies, 2)
	assert.Equal(t, "1.7", m.Dependencies[0].Version)
	assert.Equal(t, "4.2", m.Dependencies[1].Version)
}

func TestEffectiveSkipsParentsWhenComplete(t *testing.T) {
	remote := &memRepository{id: "central", files: map[string]string{}}
	r, _ := newTestResolver(t, remote)

	m, err := ParseManifest(strings.NewReader(inheritedPom))
	require.NoError(t, err)
	_, err = r.Effective(context.Background(), m)
	require.NoError(t, err)
	assert.Zero(t, remote.calls, "no parent is fetched when every version is known")
}

func TestEffectiveErrors(t *testing.T) {
	parent := Coordinates{GroupID: "org.acme", ArtifactID: "acme-parent", Version: "3", Type: "pom"}
	tests := []struct {
		name  string
		files map[string]string
		fail  error
		want  error
	}{
		{name: "parent not found", files: map[string]string{}, want: errors.ErrUnresolvedVersion},
		{name: "parent without the versions", files: map[string]string{
			parent.Path(): `<project><groupId>org.acme</groupId><artifactId>acme-parent</artifactId><version>3</version></project>`,
		}, want: errors.ErrUnresolvedVersion},
		{name: "parent chain loops", files: map[string]string{
			parent.Path(): `<project><parent><groupId>org.acme</groupId><artifactId>acme-parent</artifactId><version>3</version></parent>
<artifactId>acme-parent</artifactId></project>`,
		}, want: errors.ErrCycle},
		{name: "transport failure", fail: fmt.Errorf("connection refused"), want: errors.ErrArtifactResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(t, &memRepository{id: "central", files: tt.files, fail: tt.fail})
			m, err := ParseManifest(strings.NewReader(childPom))
			require.NoError(t, err)

			_, err = r.Effective(context.Background(), m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

// publishingRepository records every upload it receives.
type publishingRepository struct {
	memRepository
	published map[string]string
}

func (p *publishingRepository) Publish(ctx context.Context, c Coordinates, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if p.published == nil {
		p.published = map[string]string{}
	}
	p.published[c.Path()] = string(data)
	return nil
}

func TestDeploy(t *testing.T) {
	remote := &publishingRepository{memRepository: memRepository{id: "releases"}}
	r, _ := newTestResolver(t, remote)

	src := testutil.WriteFile(t, filepath.Join(t.TempDir(), "lib-a.zip"), "zip-bytes")
	_, err := r.Install(context.Background(), src, libA, nil)
	require.NoError(t, err)

	require.NoError(t, r.Deploy(context.Background(), "releases", libA))
	require.Len(t, remote.published, 2)
	assert.Equal(t, "zip-bytes", remote.published[libA.Path()])
	assert.Contains(t, remote.published[libA.Pom().Path()], "<artifactId>lib-a</artifactId>")
}

func TestDeployErrors(t *testing.T) {
	src := testutil.WriteFile(t, filepath.Join(t.TempDir(), "lib-a.zip"), "zip-bytes")

	tests := []struct {
		name    string
		repoID  string
		install bool
		want    error
	}{
		{name: "unknown repository", repoID: "nowhere", install: true, want: errors.ErrInvalidArgument},
		{name: "read-only repository", repoID: "central", install: true, want: errors.ErrInvalidOperation},
		{name: "not installed", repoID: "releases", want: errors.ErrArtifactNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &publishingRepository{memRepository: memRepository{id: "releases"}}
			r, _ := newTestResolver(t, &memRepository{id: "central"}, remote)
			if tt.install {
				_, err := r.Install(context.Background(), src, libA, nil)
				require.NoError(t, err)
			}

			err := r.Deploy(context.Background(), tt.repoID, libA)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, remote.published)
		})
	}
}
