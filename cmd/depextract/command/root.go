package command

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/harness/depextract/cmd/cmdutils"
	"github.com/harness/depextract/config"
	"github.com/harness/depextract/internal/style"
	"github.com/harness/depextract/internal/terminal"
	"github.com/harness/depextract/util/common/errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version is set via ldflags during build
var Version = "dev"

// NewRootCmd builds the depextract command tree.
func NewRootCmd(f *cmdutils.Factory) *cobra.Command {
	var (
		verbose  bool
		noColor  bool
		jsonFlag bool
	)

	rootCmd := &cobra.Command{
		Use:           "depextract",
		Short:         "Materialize dependency trees on disk",
		SilenceUsage:  true,
		SilenceErrors: true, //prevent duplicate printing of errors
		Long: heredoc.Doc(`
			depextract resolves the dependencies of a project from a local
			repository and a chain of remotes, unpacks every archive into its
			own directory and recurses into the dependencies each one declares.
		`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if jsonFlag {
				config.Global.Format = "json"
			}
			switch config.Global.Format {
			case "text", "json":
			default:
				return errors.NewValidationError("format", fmt.Sprintf("unknown format %q, must be 'text' or 'json'", config.Global.Format))
			}

			termInfo := terminal.Detect(noColor, config.Global.Format == "json")
			style.Init(termInfo.ColorEnabled)
			f.Terminal = termInfo

			// Set up logging based on verbose flag
			if verbose {
				logWriter := zerolog.ConsoleWriter{
					Out:        os.Stderr,
					TimeFormat: time.RFC3339,
					NoColor:    !termInfo.ColorEnabled,
				}
				log.Logger = log.Output(logWriter).Level(zerolog.DebugLevel)
			} else {
				// Disable logging when verbose is not enabled
				log.Logger = zerolog.Nop()
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&config.Global.ConfigPath, "config", "c", "",
		"config file (.yaml, .yml or .toml), defaults to $"+config.EnvConfig)
	flags.StringVar(&config.Global.LocalRepository, "local-repo", "",
		"local repository root, defaults to $"+config.EnvLocalRepository+" then ~/.m2/repository")
	flags.StringArrayVarP(&config.Global.Repositories, "repository", "r", nil,
		"additional remote repository URL, consulted after the configured ones (repeatable)")
	flags.BoolVar(&config.Global.Offline, "offline", false, "only use the local repository")
	flags.StringVar(&config.Global.Format, "format", "text", "output format: text or json")
	flags.BoolVar(&jsonFlag, "json", false, "Output results as JSON (equivalent to --format=json)")
	flags.BoolVar(&noColor, "no-color", false, "Disable colour output (also respects NO_COLOR env)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to console")

	rootCmd.AddCommand(NewExtractCmd(f))
	rootCmd.AddCommand(NewCopyCmd(f))
	rootCmd.AddCommand(NewResolveCmd(f))
	rootCmd.AddCommand(NewInstallCmd(f))
	rootCmd.AddCommand(NewArchiveCmd(f))
	rootCmd.AddCommand(NewUnarchiveCmd(f))
	rootCmd.AddCommand(NewFormatsCmd(f))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// versionCmd returns the version command
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of depextract",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "depextract version %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Built with %s\n", runtime.Version())
		},
	}
}
