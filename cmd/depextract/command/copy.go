package command

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/harness/depextract/cmd/cmdutils"
	"github.com/harness/depextract/config"
	"github.com/harness/depextract/internal/style"
	"github.com/harness/depextract/util/common"
	"github.com/harness/depextract/util/common/printer"

	"github.com/spf13/cobra"
)

// NewCopyCmd creates the command that copies the direct dependencies of a
// project into a directory without extracting them.
func NewCopyCmd(f *cmdutils.Factory) *cobra.Command {
	var projectDir string
	var deps []string
	cmd := &cobra.Command{
		Use:   "copy <dest>",
		Short: "Copy the direct dependency files of a project",
		Long: heredoc.Doc(`
			Resolve the direct dependencies of the project and copy their files
			into <dest>, keeping each file's modification time. When the same
			dependency is declared twice the last declaration wins.
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

			files, err := engine.CopyDependencies(cmd.Context(), p.Dependencies, args[0])
			if err != nil {
				return err
			}

			if config.Global.Format == "json" {
				options := printer.DefaultJsonOptions()
				options.Writer = cmd.OutOrStdout()
				return printer.PrintJsonWithOptions(files, options)
			}
			table := &printer.Table{Headers: []string{"File", "Size"}}
			for _, file := range files {
				size := ""
				if info, err := os.Stat(file); err == nil {
					size = common.GetSize(info.Size())
				}
				table.AddRow(filepath.Base(file), size)
			}
			if err := printer.PrintTable(cmd.OutOrStdout(), table); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Copied %d files into %s\n", style.SuccessIcon(), len(files), args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectDir, "project-dir", "p", ".", "directory holding the project's pom.xml")
	cmd.Flags().StringArrayVarP(&deps, "dependency", "d", nil,
		"additional dependency as groupId:artifactId[:type[:classifier]]:version (repeatable)")
	addExtractFlags(cmd.Flags())

	return cmd
}
