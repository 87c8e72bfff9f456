package cmdutils

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/harness/depextract/config"
	internalconfig "github.com/harness/depextract/internal/config"
	"github.com/harness/depextract/internal/terminal"
	"github.com/harness/depextract/module/archive"
	"github.com/harness/depextract/module/artifact"
	"github.com/harness/depextract/module/extract"
	"github.com/harness/depextract/util/common/errors"
	"github.com/harness/depextract/util/common/progress"

	"github.com/rs/zerolog/log"
)

// Factory builds the collaborators commands share. Everything is derived
// from config.Global and the optional config file, and built at most once
// per process.
type Factory struct {
	Terminal terminal.Info

	loadConfig func() (*internalconfig.Config, error)
	archives   *archive.Registry
}

func NewFactory() *Factory {
	return &Factory{
		loadConfig: sync.OnceValues(func() (*internalconfig.Config, error) {
			path := config.Global.ConfigPath
			if path == "" {
				path = os.Getenv(config.EnvConfig)
			}
			if path == "" {
				return internalconfig.Default(), nil
			}
			log.Debug().Str("path", path).Msg("Loading config file")
			return internalconfig.LoadConfig(path)
		}),
		archives: archive.NewRegistry(),
	}
}

// Config returns the loaded config file, or the defaults when none is set.
func (f *Factory) Config() (*internalconfig.Config, error) {
	return f.loadConfig()
}

// Archives returns the archive format registry.
func (f *Factory) Archives() *archive.Registry {
	return f.archives
}

// LocalRepository returns the root of the local artifact cache. The flag
// wins over the environment, which wins over the config file.
func (f *Factory) LocalRepository() (string, error) {
	if config.Global.LocalRepository != "" {
		return config.Global.LocalRepository, nil
	}
	if env := os.Getenv(config.EnvLocalRepository); env != "" {
		return env, nil
	}
	cfg, err := f.Config()
	if err != nil {
		return "", err
	}
	if cfg.LocalRepository != "" {
		return cfg.LocalRepository, nil
	}
	return internalconfig.DefaultLocalRepository(), nil
}

// Resolver builds the repository chain: the local cache, then the
// configured remotes, then the --repository URLs. Offline mode keeps only
// the local cache.
func (f *Factory) Resolver() (*artifact.Resolver, error) {
	local, err := f.LocalRepository()
	if err != nil {
		return nil, err
	}
	cfg, err := f.Config()
	if err != nil {
		return nil, err
	}

	var remotes []artifact.Repository
	if !config.Global.Offline {
		for _, rc := range cfg.Repositories {
			remotes = append(remotes, f.remote(rc))
		}
		for i, url := range config.Global.Repositories {
			rc := internalconfig.RepositoryConfig{ID: "cli-" + strconv.Itoa(i), URL: url}
			remotes = append(remotes, f.remote(rc))
		}
	}
	return artifact.NewResolver(artifact.NewChain(artifact.NewLocalRepository(local), remotes...)), nil
}

func (f *Factory) remote(rc internalconfig.RepositoryConfig) artifact.Repository {
	creds := artifact.Credentials{
		Username: rc.Credentials.Username,
		Password: rc.Credentials.Password,
		Token:    rc.Credentials.Token,
	}
	if rc.EffectiveType() == internalconfig.RepositoryOCI {
		return artifact.NewOCIRepository(rc.ID, rc.URL,
			artifact.WithInsecure(rc.Insecure),
			artifact.WithOCICredentials(creds))
	}

	opts := []artifact.HTTPOption{
		artifact.WithCredentials(creds),
		artifact.WithProgress(f.Terminal.ProgressEnabled),
	}
	if rc.Retries != nil {
		opts = append(opts, artifact.WithRetries(*rc.Retries, 200*time.Millisecond, 5*time.Second))
	}
	if d := rc.TimeoutDuration(); d > 0 {
		opts = append(opts, artifact.WithTimeout(d))
	}
	return artifact.NewHTTPRepository(rc.ID, rc.URL, opts...)
}

// Reporter returns the step reporter for human output. Machine readable
// output gets a silent one.
func (f *Factory) Reporter() progress.Reporter {
	if config.Global.Format == "json" {
		return progress.NewNopReporter()
	}
	return progress.NewAutoReporter()
}

// ExtractOptions merges the config file defaults with the command flags.
// Flags that were set win.
func (f *Factory) ExtractOptions() (extract.Options, error) {
	cfg, err := f.Config()
	if err != nil {
		return extract.Options{}, err
	}
	flags := config.Global.Extract

	names := cfg.Extract.Scopes
	if len(flags.Scopes) > 0 {
		names = flags.Scopes
	}
	scopes, err := internalconfig.ParseScopes(names)
	if err != nil {
		return extract.Options{}, err
	}

	opts := extract.Options{
		Concurrency:  cfg.Extract.Concurrency,
		Scopes:       scopes,
		SkipOptional: cfg.Extract.SkipOptional || flags.SkipOptional,
		Digest:       cfg.Extract.Digest || flags.Digest,
		Includes:     append(append([]string(nil), cfg.Extract.Includes...), flags.Includes...),
		Excludes:     append(append([]string(nil), cfg.Extract.Excludes...), flags.Excludes...),
		DryRun:       flags.DryRun,
		Reporter:     f.Reporter(),
	}
	if flags.Concurrency > 0 {
		opts.Concurrency = flags.Concurrency
	}
	if opts.Concurrency < 0 {
		return extract.Options{}, errors.NewValidationError("concurrency", "concurrency cannot be negative")
	}
	return opts, nil
}

// Engine wires an extraction engine from the resolver and options.
func (f *Factory) Engine() (*extract.Engine, error) {
	resolver, err := f.Resolver()
	if err != nil {
		return nil, err
	}
	opts, err := f.ExtractOptions()
	if err != nil {
		return nil, err
	}
	return extract.NewEngine(resolver, f.archives, nil, opts), nil
}
