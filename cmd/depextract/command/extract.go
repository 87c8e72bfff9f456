package command

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/harness/depextract/cmd/cmdutils"
	"github.com/harness/depextract/config"
	"github.com/harness/depextract/module/extract"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewExtractCmd creates the command that materializes the dependency tree
// of a project.
// command example: depextract extract target/deps --dependency com.example:lib:zip:1.0
func NewExtractCmd(f *cmdutils.Factory) *cobra.Command {
	var projectDir string
	var deps []string
	cmd := &cobra.Command{
		Use:   "extract <dest>",
		Short: "Extract the dependency tree of a project",
		Long: heredoc.Doc(`
			Resolve every dependency of the project, unpack it into
			<dest>/<artifactId> and recurse into the dependencies it declares,
			nesting each level inside its parent's directory.

			The project is read from pom.xml in --project-dir, or from the
			project section of the config file. --dependency adds more.
		`),
		Example: heredoc.Doc(`
			depextract extract target/deps
			depextract extract out --dependency com.example:runtime:zip:2.1 --concurrency 4
			depextract extract out --dry-run --format json
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd.Context(), f, projectDir, deps)
			if err != nil {
				return err
			}
			engine, err := f.Engine()
			if err != nil {
				return err
			}

			var root *extract.Node
			if config.Global.Extract.DryRun {
				root, err = engine.Plan(cmd.Context(), p, args[0])
			} else {
				root, err = engine.ExtractProject(cmd.Context(), p, args[0])
			}
			if err != nil {
				return err
			}
			return printTree(cmd.OutOrStdout(), root)
		},
	}

	cmd.Flags().StringVarP(&projectDir, "project-dir", "p", ".", "directory holding the project's pom.xml")
	cmd.Flags().StringArrayVarP(&deps, "dependency", "d", nil,
		"additional dependency as groupId:artifactId[:type[:classifier]]:version (repeatable)")
	addExtractFlags(cmd.Flags())
	cmd.Flags().BoolVar(&config.Global.Extract.DryRun, "dry-run", false,
		"resolve the whole tree and print it without extracting")
	cmd.Flags().BoolVar(&config.Global.Extract.Digest, "digest", false, "record a content digest for every extracted directory")
	cmd.Flags().StringSliceVar(&config.Global.Extract.Includes, "include", nil, "only extract archive entries matching these globs")
	cmd.Flags().StringSliceVar(&config.Global.Extract.Excludes, "exclude", nil, "skip archive entries matching these globs")

	return cmd
}

// addExtractFlags binds the dependency selection flags shared by extract
// and copy.
func addExtractFlags(flags *pflag.FlagSet) {
	flags.IntVar(&config.Global.Extract.Concurrency, "concurrency", 0,
		"number of sibling dependencies resolved in parallel (defaults to the config file, then 1)")
	flags.StringSliceVar(&config.Global.Extract.Scopes, "scope", nil,
		"only follow dependencies in these scopes (compile, runtime, test, provided, system)")
	flags.BoolVar(&config.Global.Extract.SkipOptional, "skip-optional", false, "skip optional dependencies")
}
