package artifact

import (
	"bytes"
	"strings"
	"testing"

	"github.com/harness/depextract/util/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inheritedPom = `<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <parent>
    <groupId>org.acme</groupId>
    <artifactId>acme-parent</artifactId>
    <version>3.1</version>
  </parent>
  <artifactId>widget</artifactId>
  <packaging>zip</packaging>
  <name>Widget</name>
  <properties>
    <gizmo.version>2.4</gizmo.version>
  </properties>
  <dependencies>
    <dependency>
      <groupId>${project.groupId}</groupId>
      <artifactId>widget-core</artifactId>
      <version>${project.version}</version>
    </dependency>
    <dependency>
      <groupId>org.gizmo</groupId>
      <artifactId>gizmo</artifactId>
      <version>${gizmo.version}</version>
      <type>tar.gz</type>
      <classifier>linux</classifier>
      <scope>runtime</scope>
      <optional>true</optional>
    </dependency>
  </dependencies>
</project>
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(inheritedPom))
	require.NoError(t, err)

	assert.Equal(t, "org.acme", m.GroupID, "groupId is inherited from the parent")
	assert.Equal(t, "3.1", m.Version, "version is inherited from the parent")
	assert.Equal(t, "widget", m.ArtifactID)
	assert.Equal(t, "zip", m.Packaging)
	assert.Equal(t, "Widget", m.Name)
	require.NotNil(t, m.Parent)
	assert.Equal(t, "acme-parent", m.Parent.ArtifactID)

	require.Len(t, m.Dependencies, 2)
	assert.Equal(t, Descriptor{
		GroupID: "org.acme", ArtifactID: "widget-core", Version: "3.1", Scope: ScopeCompile,
	}, m.Dependencies[0])
	assert.Equal(t, Descriptor{
		GroupID: "org.gizmo", ArtifactID: "gizmo", Version: "2.4", Type: "tar.gz", Classifier: "linux",
		Scope: ScopeRuntime, Optional: true,
	}, m.Dependencies[1])

	assert.Equal(t, Coordinates{GroupID: "org.acme", ArtifactID: "widget", Version: "3.1", Type: "zip"}, m.Coordinates())
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		pom  string
	}{
		{name: "not xml", pom: "this is not xml"},
		{name: "no artifactId", pom: `<project><groupId>g</groupId><version>1</version></project>`},
		{
			name: "dependency without version",
			pom: `<project><groupId>g</groupId><artifactId>a</artifactId><version>1</version>
<dependencies><dependency><groupId>x</groupId><artifactId>y</artifactId></dependency></dependencies></project>`,
		},
		{
			name: "unknown scope",
			pom: `<project><groupId>g</groupId><artifactId>a</artifactId><version>1</version>
<dependencies><dependency><groupId>x</groupId><artifactId>y</artifactId><version>1</version>
<scope>sideways</scope></dependency></dependencies></project>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest(strings.NewReader(tt.pom))
			assert.Error(t, err)
		})
	}
}

func TestManifestMarshalRoundTrip(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(inheritedPom))
	require.NoError(t, err)

	data, err := m.Marshal()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("<?xml")))
	assert.Contains(t, string(data), "<modelVersion>4.0.0</modelVersion>")

	again, err := ParseManifest(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, m.Coordinates(), again.Coordinates())
	assert.Equal(t, m.Dependencies, again.Dependencies)
	assert.Equal(t, m.Properties, again.Properties)
}

const managedPom = `<project>
  <groupId>g</groupId>
  <artifactId>app</artifactId>
  <version>1.0</version>
  <properties>
    <lib.version>2.1</lib.version>
  </properties>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>g</groupId>
        <artifactId>lib</artifactId>
        <version>${lib.version}</version>
        <type>zip</type>
        <scope>runtime</scope>
      </dependency>
      <dependency>
        <groupId>g</groupId>
        <artifactId>pinned</artifactId>
        <version>5.0</version>
      </dependency>
      <dependency>
        <groupId>g</groupId>
        <artifactId>unused</artifactId>
        <version>9.9</version>
      </dependency>
    </dependencies>
  </dependencyManagement>
  <dependencies>
    <dependency>
      <groupId>g</groupId>
      <artifactId>lib</artifactId>
      <type>zip</type>
    </dependency>
    <dependency>
      <groupId>g</groupId>
      <artifactId>pinned</artifactId>
      <version>4.0</version>
    </dependency>
  </dependencies>
</project>
`

func TestParseManifestDependencyManagement(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(managedPom))
	require.NoError(t, err)

	require.Len(t, m.Dependencies, 2)
	assert.Equal(t, Descriptor{GroupID: "g", ArtifactID: "lib", Version: "2.1", Type: "zip", Scope: ScopeRuntime}, m.Dependencies[0])
	assert.Equal(t, "4.0", m.Dependencies[1].Version, "a declared version wins over the managed one")
	assert.Equal(t, ScopeCompile, m.Dependencies[1].Scope)

	require.Len(t, m.Managed, 3)
	assert.Equal(t, "unused", m.Managed[2].ArtifactID)
	assert.False(t, m.Unresolved())
}

func TestParseManifestUnresolvedVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "missing", version: "", want: ""},
		{name: "undefined property", version: "<version>${nowhere}</version>", want: "${nowhere}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pom := `<project><groupId>g</groupId><artifactId>a</artifactId><version>1</version>
<dependencies><dependency><groupId>x</groupId><artifactId>y</artifactId>` + tt.version + `</dependency></dependencies></project>`
			_, err := ParseManifest(strings.NewReader(pom))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrUnresolvedVersion))

			var uve *errors.UnresolvedVersionError
			require.True(t, errors.As(err, &uve))
			assert.Equal(t, "x:y", uve.Dependency)
			assert.Equal(t, "g:a:jar:1", uve.Manifest)
			assert.Equal(t, tt.want, uve.Version)
		})
	}
}

const childPom = `<project>
  <parent>
    <groupId>org.acme</groupId>
    <artifactId>acme-parent</artifactId>
    <version>3</version>
  </parent>
  <artifactId>child</artifactId>
  <properties>
    <shared>child</shared>
  </properties>
  <dependencies>
    <dependency>
      <groupId>org.acme</groupId>
      <artifactId>core</artifactId>
      <version>${core.version}</version>
    </dependency>
    <dependency>
      <groupId>org.acme</groupId>
      <artifactId>tools</artifactId>
    </dependency>
  </dependencies>
</project>
`

const parentPom = `<project>
  <groupId>org.acme</groupId>
  <artifactId>acme-parent</artifactId>
  <version>3</version>
  <packaging>pom</packaging>
  <properties>
    <core.version>1.7</core.version>
    <shared>parent</shared>
  </properties>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>org.acme</groupId>
        <artifactId>tools</artifactId>
        <version>${shared}-2</version>
      </dependency>
    </dependencies>
  </dependencyManagement>
</project>
`

func TestManifestInherit(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(childPom))
	require.NoError(t, err, "open versions are allowed while a parent may supply them")
	assert.True(t, m.Unresolved())

	parent, err := ParseManifest(strings.NewReader(parentPom))
	require.NoError(t, err)
	require.NoError(t, m.Inherit(parent))

	require.NoError(t, m.CheckVersions())
	assert.Equal(t, "1.7", m.Dependencies[0].Version)
	assert.Equal(t, "child-2", m.Dependencies[1].Version, "managed entries expand with the child's properties")
	assert.Equal(t, "child", m.Properties["shared"])
	assert.Equal(t, "1.7", m.Properties["core.version"])
}
