package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/jobs"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Face detection and identity management",
}

var facesScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Re-extract faces for visible photos that have none",
	RunE:  runFacesScan,
}

var facesClusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster all faces, then train the identity classifier",
	Long: `Rebuilds the face clusters from scratch (every cluster except the unknown
one is dropped first), then trains the identity classifier on the result.
The two phases run as separate jobs.`,
	RunE: runFacesCluster,
}

var facesTrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the identity classifier on labelled faces",
	RunE:  runFacesTrain,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesScanCmd)
	facesCmd.AddCommand(facesClusterCmd)
	facesCmd.AddCommand(facesTrainCmd)
}

func runFacesScan(cmd *cobra.Command, args []string) error {
	return runJob(jobs.TypeScanFaces, func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error {
		return a.pipe.RescanFaces(ctx, user, run)
	})
}

func runFacesCluster(cmd *cobra.Command, args []string) error {
	err := runJob(jobs.TypeClusterAllFaces, func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error {
		return a.identity.ClusterAllFaces(ctx, user, run)
	})
	if err != nil {
		return err
	}
	// clustering succeeded, chain the training phase as its own job
	flagJobID = ""
	return runFacesTrain(cmd, args)
}

func runFacesTrain(cmd *cobra.Command, args []string) error {
	return runJob(jobs.TypeTrainFaces, func(ctx context.Context, a *app, user *database.User, run *jobs.Run) error {
		return a.identity.TrainFaces(ctx, user, run)
	})
}
