package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "Handle files that disappeared from disk",
}

var missingDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Mark vanished files and delete photos with no files left",
	RunE:  runMissingDelete,
}

func init() {
	rootCmd.AddCommand(missingCmd)
	missingCmd.AddCommand(missingDeleteCmd)
}

func runMissingDelete(cmd *cobra.Command, args []string) error {
	return runJob(jobs.TypeDeleteMissingPhotos, func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error {
		return a.scan.DeleteMissing(ctx, user, run)
	})
}
