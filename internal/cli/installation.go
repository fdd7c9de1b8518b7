package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"blog-sync/internal/app"
)

// NewInstallationCommand prints the installation id for the configured
// repository. Useful to check App credentials.
func NewInstallationCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "installation",
		Short: "Resolve the GitHub App installation for GITHUB_REPO",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			inst, err := app.NewGitHubApp(cfg).Installation(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", inst.Repo, inst.InstallationID)
			return nil
		},
	}
}
