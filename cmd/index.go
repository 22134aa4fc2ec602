package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Similarity index maintenance",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the per-user similarity index from stored embeddings",
	RunE:  runIndexBuild,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
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
	if err := a.index.Build(ctx, a.store, user.ID); err != nil {
		return fmt.Errorf("build similarity index: %w", err)
	}
	fmt.Printf("Similarity index built with %d photos\n", a.index.Count(user.ID))
	return nil
}
