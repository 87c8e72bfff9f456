package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/harness/depextract/module/artifact"
	"github.com/harness/depextract/module/project"
	"github.com/harness/depextract/util/common/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Repository types accepted in the config file.
const (
	RepositoryHTTP = "http"
	RepositoryOCI  = "oci"
)

// Config represents the top-level configuration structure
type Config struct {
	Version         string             `yaml:"version" toml:"version"`
	LocalRepository string             `yaml:"localRepository" toml:"localRepository"`
	CredentialsFile string             `yaml:"credentialsFile" toml:"credentialsFile"`
	Repositories    []RepositoryConfig `yaml:"repositories" toml:"repositories"`
	Project         *project.Config    `yaml:"project" toml:"project"`
	Extract         ExtractConfig      `yaml:"extract" toml:"extract"`
}

// RepositoryConfig defines one remote repository. Remotes are consulted in
// the order they are listed.
type RepositoryConfig struct {
	ID          string            `yaml:"id" toml:"id"`
	URL         string            `yaml:"url" toml:"url"`
	Type        string            `yaml:"type" toml:"type"`
	Credentials CredentialsConfig `yaml:"credentials" toml:"credentials"`
	Insecure    bool              `yaml:"insecure" toml:"insecure"`
	Retries     *int              `yaml:"retries" toml:"retries"`
	Timeout     string            `yaml:"timeout" toml:"timeout"`
}

// CredentialsConfig defines the credentials configuration
type CredentialsConfig struct {
	Username string `yaml:"username" toml:"username" ini:"username"`
	Password string `yaml:"password,omitempty" toml:"password" ini:"password"`
	Token    string `yaml:"token,omitempty" toml:"token" ini:"token"`
}

// IsZero reports whether no credential is set.
func (c CredentialsConfig) IsZero() bool {
	return c.Username == "" && c.Password == "" && c.Token == ""
}

// ExtractConfig holds the defaults of an extraction pass.
type ExtractConfig struct {
	Concurrency  int      `yaml:"concurrency" toml:"concurrency"`
	Scopes       []string `yaml:"scopes" toml:"scopes"`
	SkipOptional bool     `yaml:"skipOptional" toml:"skipOptional"`
	Digest       bool     `yaml:"digest" toml:"digest"`
	Includes     []string `yaml:"includes" toml:"includes"`
	Excludes     []string `yaml:"excludes" toml:"excludes"`
}

// TimeoutDuration parses Timeout. Zero means the repository default.
func (r RepositoryConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(r.Timeout)
	return d
}

// EffectiveType infers the repository type from the URL scheme when none
// is given.
func (r RepositoryConfig) EffectiveType() string {
	if r.Type != "" {
		return strings.ToLower(r.Type)
	}
	if strings.HasPrefix(r.URL, "oci://") {
		return RepositoryOCI
	}
	return RepositoryHTTP
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Extract: ExtractConfig{Concurrency: 1}}
}

// DefaultLocalRepository is ~/.m2/repository, or a directory below the
// working directory when the home directory is unknown.
func DefaultLocalRepository() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".m2", "repository")
	}
	return filepath.Join(home, ".m2", "repository")
}

// LoadConfig loads the configuration from a file. The format follows the
// extension: .yaml, .yml or .toml. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.FileNotFoundError{Path: path, Searched: []string{path}}
		}
		return nil, errors.NewFileError(path, "read", err)
	}

	// Expand environment variables in the file
	expanded := expandEnv(string(data))

	config := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewBufferString(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(expanded, config)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errors.NewValidationError("config", fmt.Sprintf("unknown keys in %s: %s", path, strings.Join(keys, ", ")))
		}
	default:
		return nil, &errors.UnsupportedFormatError{Op: "load config", Extension: strings.TrimPrefix(ext, "."), Path: path}
	}

	dir := filepath.Dir(path)
	if config.CredentialsFile != "" {
		if !filepath.IsAbs(config.CredentialsFile) {
			config.CredentialsFile = filepath.Join(dir, config.CredentialsFile)
		}
		creds, err := LoadCredentials(config.CredentialsFile)
		if err != nil {
			return nil, err
		}
		config.ApplyCredentials(creds)
	}
	if config.Project != nil && config.Project.BaseDir != "" && !filepath.IsAbs(config.Project.BaseDir) {
		config.Project.BaseDir = filepath.Join(dir, config.Project.BaseDir)
	}

	// Validate the configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// expandEnv expands ${VAR} references using the process environment.
func expandEnv(content string) string {
	return os.Expand(content, func(key string) string {
		return os.Getenv(key)
	})
}

// LoadCredentials reads an INI file with one section per repository id.
func LoadCredentials(path string) (map[string]CredentialsConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.FileNotFoundError{Path: path, Searched: []string{path}}
		}
		return nil, errors.NewFileError(path, "stat", err)
	}
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("error parsing credentials file %s: %w", path, err)
	}

	creds := make(map[string]CredentialsConfig)
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		var c CredentialsConfig
		if err := section.MapTo(&c); err != nil {
			return nil, fmt.Errorf("credentials for %s: %w", section.Name(), err)
		}
		creds[section.Name()] = c
	}
	return creds, nil
}

// ApplyCredentials fills in credentials for repositories that set none.
func (c *Config) ApplyCredentials(creds map[string]CredentialsConfig) {
	for i := range c.Repositories {
		r := &c.Repositories[i]
		if !r.Credentials.IsZero() {
			continue
		}
		if found, ok := creds[r.ID]; ok {
			r.Credentials = found
		}
	}
}

// validateConfig performs basic validation on the configuration
func validateConfig(config *Config) error {
	seen := make(map[string]bool, len(config.Repositories))
	for i, r := range config.Repositories {
		field := fmt.Sprintf("repositories[%d]", i)
		if r.ID == "" {
			return errors.NewValidationError(field+".id", "repository id must be specified")
		}
		if seen[r.ID] {
			return errors.NewValidationError(field+".id", fmt.Sprintf("duplicate repository id %q", r.ID))
		}
		seen[r.ID] = true
		if r.URL == "" {
			return errors.NewValidationError(field+".url", fmt.Sprintf("repository %s has no url", r.ID))
		}
		switch r.EffectiveType() {
		case RepositoryHTTP, RepositoryOCI:
		default:
			return errors.NewValidationError(field+".type", fmt.Sprintf("invalid repository type %q, must be 'http' or 'oci'", r.Type))
		}
		if r.Retries != nil && *r.Retries < 0 {
			return errors.NewValidationError(field+".retries", "retries cannot be negative")
		}
		if r.Timeout != "" {
			if d, err := time.ParseDuration(r.Timeout); err != nil || d < 0 {
				return errors.NewValidationError(field+".timeout", fmt.Sprintf("invalid timeout %q", r.Timeout))
			}
		}
	}

	if config.Extract.Concurrency < 0 {
		return errors.NewValidationError("extract.concurrency", "concurrency cannot be negative")
	}
	if _, err := ParseScopes(config.Extract.Scopes); err != nil {
		return err
	}

	if config.Project != nil {
		for i, d := range config.Project.Dependencies {
			if err := d.Validate(); err != nil {
				return fmt.Errorf("project.dependencies[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// ParseScopes converts scope names into artifact scopes.
func ParseScopes(names []string) ([]artifact.Scope, error) {
	scopes := make([]artifact.Scope, 0, len(names))
	for _, n := range names {
		s, err := artifact.ParseScope(n)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}
