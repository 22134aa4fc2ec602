package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

var embeddingsCmd = &cobra.Command{
	Use:   "embeddings",
	Short: "Compute missing CLIP embeddings and rebuild the similarity index",
	RunE:  runEmbeddings,
}

func init() {
	rootCmd.AddCommand(embeddingsCmd)
}

func runEmbeddings(cmd *cobra.Command, args []string) error {
	return runJob(jobs.TypeCalculateClipEmbeddings, func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error {
		if err := a.pipe.BackfillEmbeddings(ctx, user, run); err != nil {
			return err
		}
		return a.index.Build(ctx, a.store, user.ID)
	})
}
