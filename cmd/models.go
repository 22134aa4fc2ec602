package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Model management",
}

var modelsDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Record a model download request",
	Long: `Model weights live with the inference services, not with this binary.
The command exists so frontends can trigger and observe the job uniformly;
it records the request and finishes immediately.`,
	RunE: runModelsDownload,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsDownloadCmd)
}

func runModelsDownload(cmd *cobra.Command, args []string) error {
	return runJob(jobs.TypeDownloadModels, func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error {
		run.SetDetail("note", "models are managed by the inference services")
		return nil
	})
}
