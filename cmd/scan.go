package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the library directory and enrich every photo",
	Long: `Walks the user's scan directory, ingests new files, re-runs enrichment
on known ones and rebuilds the similarity index. Failures on individual
photos are logged and skipped; the scan continues.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	return runJob(jobs.TypeScanPhotos, func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error {
		return a.scan.Scan(ctx, user, run)
	})
}
