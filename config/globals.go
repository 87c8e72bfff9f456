package config

// GlobalFlags contains common flags used across commands
type GlobalFlags struct {
	// ConfigPath points at a YAML or TOML config file.
	ConfigPath string
	// LocalRepository overrides the local artifact cache root.
	LocalRepository string
	// Repositories are extra remote repository URLs given on the command
	// line. They are consulted after the configured ones.
	Repositories []string
	Format       string
	Offline      bool

	// Command-specific configurations
	Extract ExtractConfig
}

// ExtractConfig holds extract, resolve and copy command flags.
type ExtractConfig struct {
	Concurrency  int
	Scopes       []string
	SkipOptional bool
	Digest       bool
	DryRun       bool
	Includes     []string
	Excludes     []string
}

// Global is the shared instance of GlobalFlags
var Global = GlobalFlags{}

// Environment variables read at startup. Flags take precedence.
const (
	EnvConfig          = "DEPEXTRACT_CONFIG"
	EnvLocalRepository = "DEPEXTRACT_LOCAL_REPO"
)
