package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/albums"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

var albumsCmd = &cobra.Command{
	Use:   "albums",
	Short: "Automatic event album generation",
}

var albumsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Group temporally dense photo runs into event albums",
	RunE:  runAlbumsGenerate,
}

var albumsTitlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "Regenerate titles of existing event albums",
	RunE:  runAlbumsTitles,
}

func init() {
	rootCmd.AddCommand(albumsCmd)
	albumsCmd.AddCommand(albumsGenerateCmd)
	albumsCmd.AddCommand(albumsTitlesCmd)
}

func runAlbumsGenerate(cmd *cobra.Command, args []string) error {
	return runJob(jobs.TypeGenerateAutoAlbums, func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error {
		return albums.NewGenerator(a.store, a.logger).GenerateEventAlbums(ctx, user, run)
	})
}

func runAlbumsTitles(cmd *cobra.Command, args []string) error {
	return runJob(jobs.TypeGenerateAutoAlbumTitles, func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error {
		return albums.NewGenerator(a.store, a.logger).RegenerateTitles(ctx, user, run)
	})
}
