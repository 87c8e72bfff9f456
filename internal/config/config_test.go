package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/harness/depextract/internal/testutil"
	"github.com/harness/depextract/module/artifact"
	"github.com/harness/depextract/util/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlConfig = `
version: "1"
localRepository: ${TEST_LOCAL_REPO}
repositories:
  - id: central
    url: https://repo.example.com/maven2
    retries: 5
    timeout: 30s
  - id: images
    url: oci://registry.example.com/maven
    insecure: true
    credentials:
      token: ${TEST_TOKEN}
project:
  groupId: com.example
  artifactId: app
  version: "1.0"
  baseDir: app
  dependencies:
    - groupId: com.example
      artifactId: lib-a
      version: "[1.0,2.0)"
      type: zip
extract:
  concurrency: 4
  scopes: [compile, runtime]
  skipOptional: true
  excludes: ["docs/**"]
`

func TestLoadConfigYAML(t *testing.T) {
	t.Setenv("TEST_LOCAL_REPO", "/cache/repo")
	t.Setenv("TEST_TOKEN", "s3cret")
	dir := t.TempDir()
	path := testutil.WriteFile(t, filepath.Join(dir, "depextract.yaml"), yamlConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/cache/repo", cfg.LocalRepository)
	require.Len(t, cfg.Repositories, 2)

	central := cfg.Repositories[0]
	assert.Equal(t, RepositoryHTTP, central.EffectiveType())
	require.NotNil(t, central.Retries)
	assert.Equal(t, 5, *central.Retries)
	assert.Equal(t, 30*time.Second, central.TimeoutDuration())

	images := cfg.Repositories[1]
	assert.Equal(t, RepositoryOCI, images.EffectiveType())
	assert.True(t, images.Insecure)
	assert.Equal(t, "s3cret", images.Credentials.Token)

	require.NotNil(t, cfg.Project)
	assert.Equal(t, filepath.Join(dir, "app"), cfg.Project.BaseDir)
	require.Len(t, cfg.Project.Dependencies, 1)
	assert.Equal(t, "[1.0,2.0)", cfg.Project.Dependencies[0].Version)

	assert.Equal(t, 4, cfg.Extract.Concurrency)
	assert.True(t, cfg.Extract.SkipOptional)
	assert.Equal(t, []string{"docs/**"}, cfg.Extract.Excludes)

	scopes, err := ParseScopes(cfg.Extract.Scopes)
	require.NoError(t, err)
	assert.Equal(t, []artifact.Scope{artifact.ScopeCompile, artifact.ScopeRuntime}, scopes)
}

func TestLoadConfigTOML(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, filepath.Join(dir, "depextract.toml"), `
localRepository = "/cache/repo"

[[repositories]]
id = "central"
url = "https://repo.example.com/maven2"

[project]
groupId = "com.example"
artifactId = "app"
version = "1.0"

[[project.dependencies]]
groupId = "com.example"
artifactId = "lib-a"
version = "1.0"
type = "zip"
scope = "runtime"

[extract]
digest = true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/cache/repo", cfg.LocalRepository)
	require.Len(t, cfg.Repositories, 1)
	assert.Equal(t, "central", cfg.Repositories[0].ID)
	require.NotNil(t, cfg.Project)
	require.Len(t, cfg.Project.Dependencies, 1)
	assert.Equal(t, artifact.ScopeRuntime, cfg.Project.Dependencies[0].Scope)
	assert.True(t, cfg.Extract.Digest)
	assert.Equal(t, 1, cfg.Extract.Concurrency, "unset values keep their defaults")
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "yaml", file: "c.yaml", content: "repositorys: []\n"},
		{name: "toml", file: "c.toml", content: "repositorys = []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, filepath.Join(t.TempDir(), tt.file), tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "repositorys")
		})
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing id",
			content: "repositories:\n  - url: https://repo\n",
			want:    "repositories[0].id",
		},
		{
			name:    "duplicate id",
			content: "repositories:\n  - id: a\n    url: https://one\n  - id: a\n    url: https://two\n",
			want:    "duplicate repository id",
		},
		{
			name:    "missing url",
			content: "repositories:\n  - id: a\n",
			want:    "has no url",
		},
		{
			name:    "bad type",
			content: "repositories:\n  - id: a\n    url: https://one\n    type: ftp\n",
			want:    "invalid repository type",
		},
		{
			name:    "bad timeout",
			content: "repositories:\n  - id: a\n    url: https://one\n    timeout: soon\n",
			want:    "invalid timeout",
		},
		{
			name:    "negative concurrency",
			content: "extract:\n  concurrency: -1\n",
			want:    "concurrency",
		},
		{
			name:    "bad scope",
			content: "extract:\n  scopes: [everything]\n",
			want:    "unknown scope",
		},
		{
			name:    "bad dependency",
			content: "project:\n  artifactId: app\n  dependencies:\n    - groupId: g\n      version: \"1\"\n",
			want:    "project.dependencies[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "c.yaml"), tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigEmptyFile(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "c.yml"), "")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.Is(err, errors.ErrFileNotFound))

	path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "c.json"), "{}")
	_, err = LoadConfig(path)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedFormat))
}

func TestCredentialsFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "credentials"), `
[central]
username = deploy
password = pw

[images]
token = abc
`)
	path := testutil.WriteFile(t, filepath.Join(dir, "c.yaml"), `
credentialsFile: credentials
repositories:
  - id: central
    url: https://repo.example.com
  - id: images
    url: oci://registry.example.com
    credentials:
      username: explicit
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, CredentialsConfig{Username: "deploy", Password: "pw"}, cfg.Repositories[0].Credentials)
	assert.Equal(t, CredentialsConfig{Username: "explicit"}, cfg.Repositories[1].Credentials, "inline credentials win")
}

func TestCredentialsFileMissing(t *testing.T) {
	path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "c.yaml"), "credentialsFile: nope\n")
	_, err := LoadConfig(path)
	assert.True(t, errors.Is(err, errors.ErrFileNotFound))
}
