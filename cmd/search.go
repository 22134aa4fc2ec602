package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search photos by caption text and semantic similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.resolveUser(ctx)
	if err != nil {
		return err
	}

	// semantic hits need the index; a failed build degrades to text search
	if err := a.index.Build(ctx, a.store, user.ID); err != nil {
		a.logger.Warn("similarity index unavailable", "error", err)
	}

	engine := search.NewEngine(a.store, a.embed, a.index, a.logger)
	photos, err := engine.Search(ctx, user, query)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(photos) == 0 {
		fmt.Println("No photos found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tFAV\tCAPTIONS")
	for i := range photos {
		date := ""
		if photos[i].ExifTimestamp != nil {
			date = photos[i].ExifTimestamp.Format("2006-01-02")
		}
		fav := ""
		if photos[i].Favorite(user.FavoriteMinRating) {
			fav = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", photos[i].ID, date, fav, photos[i].SearchCaptions)
	}
	return w.Flush()
}
