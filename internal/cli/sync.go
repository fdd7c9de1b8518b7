package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"blog-sync/internal/app"
)

type syncOptions struct {
	DiscussionID string
	Title        string
}

// NewSyncCommand re-runs the discussion update by hand, e.g. after a failed
// webhook delivery.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Rewrite a discussion title and body into canonical form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.DiscussionID == "" || opts.Title == "" {
				return errors.New("--id and --title are required")
			}
			cfg, logger, err := rootOpts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			rec, err := app.NewGitHubApp(cfg).SyncDiscussion(cmd.Context(), opts.DiscussionID, opts.Title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rec.ID, rec.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.DiscussionID, "id", "", "discussion node id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "current discussion title")
	return cmd
}
