package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

var downloadCmd = &cobra.Command{
	Use:   "download [photo-id...]",
	Short: "Export the selected photos as a zip archive",
	RunE:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("pass at least one photo id")
	}
	return runJob(jobs.TypeDownloadPhotos, func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error {
		path, err := a.scan.ExportZip(ctx, user, a.cfg.Data.Root, args, run)
		if err != nil {
			return err
		}
		fmt.Printf("Archive written to %s\n", path)
		return nil
	})
}
