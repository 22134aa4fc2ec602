package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the queue inspection HTTP server",
	Long: `Serves the job queue API: health, queue availability, current job
detail, job listing and cancellation. Jobs themselves are started from the
CLI; frontends poll this server for progress.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (overrides LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	addr := mustGetString(cmd, "listen")
	if addr == "" {
		addr = a.cfg.Web.ListenAddr
	}

	server := web.NewServer(addr, a.jobs, a.logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	return server.Start()
}
