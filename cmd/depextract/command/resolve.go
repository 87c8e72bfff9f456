package command

import (
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/harness/depextract/cmd/cmdutils"
	"github.com/harness/depextract/config"
	"github.com/harness/depextract/internal/style"
	"github.com/harness/depextract/module/artifact"
	"github.com/harness/depextract/util/common"
	"github.com/harness/depextract/util/common/printer"

	"github.com/spf13/cobra"
)

// NewResolveCmd creates the command that resolves descriptors to local
// files without extracting them.
func NewResolveCmd(f *cmdutils.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <descriptor>...",
		Short: "Resolve dependencies into the local repository",
		Long: heredoc.Doc(`
			Resolve each descriptor to a concrete version, fetch its file into
			the local repository if needed and print where it came from.
			Version ranges such as [1.0,2.0) select the highest match.
		`),
		Example: heredoc.Doc(`
			depextract resolve com.example:lib:1.0
			depextract resolve 'com.example:lib:zip:[1.0,2.0)' --format json
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors := make([]artifact.Descriptor, 0, len(args))
			for _, a := range args {
				d, err := artifact.ParseDescriptor(a)
				if err != nil {
					return err
				}
				descriptors = append(descriptors, d)
			}

			resolver, err := f.Resolver()
			if err != nil {
				return err
			}
			resolved := make([]*artifact.ResolvedArtifact, 0, len(descriptors))
			for _, d := range descriptors {
				a, err := resolver.Resolve(cmd.Context(), d)
				if err != nil {
					return err
				}
				resolved = append(resolved, a)
			}

			if config.Global.Format == "json" {
				options := printer.DefaultJsonOptions()
				options.Writer = cmd.OutOrStdout()
				return printer.PrintJsonWithOptions(resolved, options)
			}
			table := &printer.Table{Headers: []string{"Artifact", "Version", "Repository", "Size", "File"}}
			for _, a := range resolved {
				size := ""
				if info, err := os.Stat(a.File()); err == nil {
					size = common.GetSize(info.Size())
				}
				table.AddRow(style.Artifact.Render(a.Descriptor().Key()), a.Version(), a.Repository(), size, a.File())
			}
			return printer.PrintTable(cmd.OutOrStdout(), table)
		},
	}
	return cmd
}
