package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/database"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage library owners",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a library owner",
	RunE:  runUserCreate,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List library owners",
	RunE:  runUserList,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)

	userCreateCmd.Flags().String("username", "", "Username (required)")
	userCreateCmd.Flags().String("scan-directory", "", "Directory holding the user's photos (required)")
	userCreateCmd.Flags().String("timezone", "UTC", "Default IANA timezone for timestamp rules")
	userCreateCmd.Flags().Float64("confidence", 0.1, "Minimum probability for inferred face labels")
	userCreateCmd.Flags().Float64("favorite-min-rating", 4, "Rating threshold for favourites")
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	username := mustGetString(cmd, "username")
	scanDir := mustGetString(cmd, "scan-directory")
	if username == "" || scanDir == "" {
		return errors.New("--username and --scan-directory are required")
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	user := &database.User{
		Username:          username,
		ScanDirectory:     scanDir,
		Confidence:        mustGetFloat64(cmd, "confidence"),
		FavoriteMinRating: mustGetFloat64(cmd, "favorite-min-rating"),
		DefaultTimezone:   mustGetString(cmd, "timezone"),
	}
	if err := a.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Printf("Created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tSCAN DIRECTORY\tTIMEZONE")
	for i := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", users[i].ID, users[i].Username, users[i].ScanDirectory, users[i].DefaultTimezone)
	}
	return w.Flush()
}
