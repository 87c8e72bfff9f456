package artifact

import (
	"testing"

	"github.com/harness/depextract/util/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Descriptor
		wantErr bool
	}{
		{
			name:  "group artifact version",
			input: "com.example:lib-a:1.0",
			want:  Descriptor{GroupID: "com.example", ArtifactID: "lib-a", Version: "1.0"},
		},
		{
			name:  "with type",
			input: "com.example:lib-a:zip:1.0",
			want:  Descriptor{GroupID: "com.example", ArtifactID: "lib-a", Type: "zip", Version: "1.0"},
		},
		{
			name:  "with type and classifier",
			input: "com.example:lib-a:zip:linux:[1.0,2.0)",
			want: Descriptor{GroupID: "com.example", ArtifactID: "lib-a", Type: "zip", Classifier: "linux",
				Version: "[1.0,2.0)"},
		},
		{name: "too few parts", input: "com.example:lib-a", wantErr: true},
		{name: "empty version", input: "com.example:lib-a:", wantErr: true},
		{name: "separator in artifactId", input: "com.example:../evil:1.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDescriptor(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescriptorKeyIgnoresVersion(t *testing.T) {
	a := Descriptor{GroupID: "g", ArtifactID: "a", Version: "1.0"}
	b := Descriptor{GroupID: "g", ArtifactID: "a", Version: "2.0", Type: "jar"}
	c := Descriptor{GroupID: "g", ArtifactID: "a", Version: "1.0", Classifier: "sources"}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "g:a:jar", a.Key())
	assert.Equal(t, "g:a:jar:sources", c.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, "g:a:jar:1.0", a.String())
}

func TestCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		coords   Coordinates
		fileName string
		path     string
	}{
		{
			name:     "jar",
			coords:   Coordinates{GroupID: "org.acme.tools", ArtifactID: "core", Version: "1.2", Type: "jar"},
			fileName: "core-1.2.jar",
			path:     "org/acme/tools/core/1.2/core-1.2.jar",
		},
		{
			name:     "zip with classifier",
			coords:   Coordinates{GroupID: "org.acme", ArtifactID: "dist", Version: "3.0", Type: "zip", Classifier: "bin"},
			fileName: "dist-3.0-bin.zip",
			path:     "org/acme/dist/3.0/dist-3.0-bin.zip",
		},
		{
			name:     "test-jar implies classifier",
			coords:   Coordinates{GroupID: "org.acme", ArtifactID: "core", Version: "1.0", Type: "test-jar"},
			fileName: "core-1.0-tests.jar",
			path:     "org/acme/core/1.0/core-1.0-tests.jar",
		},
		{
			name:     "compound extension",
			coords:   Coordinates{GroupID: "org.acme", ArtifactID: "assets", Version: "1.0", Type: "tar.gz"},
			fileName: "assets-1.0.tar.gz",
			path:     "org/acme/assets/1.0/assets-1.0.tar.gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fileName, tt.coords.FileName())
			assert.Equal(t, tt.path, tt.coords.Path())
		})
	}
}

func TestCoordinatesPom(t *testing.T) {
	c := Coordinates{GroupID: "g", ArtifactID: "a", Version: "1.0", Type: "zip", Classifier: "bin"}
	assert.Equal(t, "g/a/1.0/a-1.0.pom", c.Pom().Path())
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeCompile, s)

	s, err = ParseScope(" Runtime ")
	require.NoError(t, err)
	assert.Equal(t, ScopeRuntime, s)

	_, err = ParseScope("import-ish")
	assert.Error(t, err)
}
