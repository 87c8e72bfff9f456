package command

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/harness/depextract/cmd/cmdutils"
	"github.com/harness/depextract/internal/style"
	"github.com/harness/depextract/module/artifact"
	"github.com/harness/depextract/util/common/errors"

	"github.com/spf13/cobra"
)

// NewInstallCmd creates the command that stores a file in the local
// repository.
// command example: depextract install build/lib.zip com.example:lib:zip:1.0 --pom pom.xml
func NewInstallCmd(f *cmdutils.Factory) *cobra.Command {
	var pomFile, deployTo string
	cmd := &cobra.Command{
		Use:   "install <file> <descriptor> [--deploy <repo-id>]",
		Short: "Install a file into the local repository",
		Long: heredoc.Doc(`
			Copy <file> into the local repository under the coordinates of
			<descriptor>, together with a POM. The POM is taken from --pom, or
			generated from the coordinates when not given. The descriptor must
			name an exact version. With --deploy the installed files are then
			uploaded to the configured remote repository of that id.
		`),
		Example: heredoc.Doc(`
			$ depextract install build/lib.zip com.example:lib:zip:1.0 --pom pom.xml
			$ depextract install build/lib.zip com.example:lib:zip:1.0 --deploy releases
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			info, err := os.Stat(file)
			if err != nil {
				return errors.NewFileError(file, "stat", err)
			}
			if info.IsDir() {
				return errors.NewValidationError("file", fmt.Sprintf("%s is a directory, expected a file", file))
			}

			d, err := artifact.ParseDescriptor(args[1])
			if err != nil {
				return err
			}
			vr, err := artifact.ParseVersionRange(d.Version)
			if err != nil {
				return err
			}
			version, ok := vr.Pinned()
			if !ok {
				return errors.NewValidationError("version", fmt.Sprintf("cannot install into range %s", d.Version))
			}

			var m *artifact.Manifest
			if pomFile != "" {
				if m, err = artifact.LoadManifest(pomFile); err != nil {
					return err
				}
			}

			resolver, err := f.Resolver()
			if err != nil {
				return err
			}
			c := d.Coordinates(version)
			installed, err := resolver.Install(cmd.Context(), file, c, m)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Installed %s\n", style.SuccessIcon(), installed)

			if deployTo == "" {
				return nil
			}
			if err := resolver.Deploy(cmd.Context(), deployTo, c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deployed %s to %s\n", style.SuccessIcon(), c, deployTo)
			return nil
		},
	}
	cmd.Flags().StringVar(&pomFile, "pom", "", "POM file to install alongside the artifact")
	cmd.Flags().StringVar(&deployTo, "deploy", "", "Remote repository id to upload the installed files to")
	return cmd
}
