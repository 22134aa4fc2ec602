package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagUser  string
	flagJobID string
)

var rootCmd = &cobra.Command{
	Use:   "photo-library",
	Short: "Self-hosted photo library: enrichment pipeline and face identity",
	Long: `Photo Library scans a directory of photos and videos, enriches every item
(thumbnails, exif, timestamps, geocoding, captions, faces, CLIP embeddings)
and maintains automatic albums plus a face identity model. All long-running
work runs as addressable jobs that can be inspected over HTTP.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "Username owning the library (defaults to the only user)")
	rootCmd.PersistentFlags().StringVar(&flagJobID, "job-id", "", "Job UUID; retried invocations with the same id resume the same job row")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
