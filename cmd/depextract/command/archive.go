package command

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/harness/depextract/cmd/cmdutils"
	"github.com/harness/depextract/config"
	"github.com/harness/depextract/internal/style"
	"github.com/harness/depextract/module/archive"
	"github.com/harness/depextract/util/common/printer"

	"github.com/spf13/cobra"
)

// NewArchiveCmd creates the command that packs a directory.
func NewArchiveCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <dir> <dest>",
		Short: "Pack a directory into an archive",
		Long: heredoc.Doc(`
			Write the contents of <dir> into <dest>. The format follows the
			extension of <dest>. An existing <dest> is replaced.
		`),
		Example: heredoc.Doc(`
			depextract archive build/classes build/lib.jar
			depextract archive dist release.tar.zst
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.Archives().Archive(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Archived %s into %s\n", style.SuccessIcon(), args[0], args[1])
			return nil
		},
	}
}

// NewUnarchiveCmd creates the command that unpacks an archive.
func NewUnarchiveCmd(f *cmdutils.Factory) *cobra.Command {
	var includes, excludes []string
	cmd := &cobra.Command{
		Use:   "unarchive <file> <dir>",
		Short: "Unpack an archive into a directory",
		Long: heredoc.Doc(`
			Extract <file> into <dir>, creating it when needed. Existing files
			are overwritten. Entries that would land outside <dir> are rejected.
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []archive.Option
			if len(includes) > 0 {
				opts = append(opts, archive.WithIncludes(includes...))
			}
			if len(excludes) > 0 {
				opts = append(opts, archive.WithExcludes(excludes...))
			}
			if err := f.Archives().Unarchive(cmd.Context(), args[0], args[1], opts...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Extracted %s into %s\n", style.SuccessIcon(), args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&includes, "include", nil, "only extract entries matching these globs")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "skip entries matching these globs")
	return cmd
}

// NewFormatsCmd lists the registered archive formats.
func NewFormatsCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported archive formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := f.Archives()
			extensions := registry.Extensions()
			if config.Global.Format == "json" {
				options := printer.DefaultJsonOptions()
				options.Writer = cmd.OutOrStdout()
				return printer.PrintJsonWithOptions(extensions, options)
			}
			table := &printer.Table{Headers: []string{"Extension", "Modes"}}
			for _, ext := range extensions {
				modes := []string{"extract"}
				if h, ok := registry.Lookup(ext); ok {
					if eo, ok := h.(archive.ExtractOnly); !ok || !eo.ExtractOnly() {
						modes = append(modes, "archive")
					}
				}
				table.AddRow(ext, strings.Join(modes, ", "))
			}
			return printer.PrintTable(cmd.OutOrStdout(), table)
		},
	}
}
