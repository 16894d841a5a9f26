package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/arbor"
	"github.com/spf13/cobra"
)

var (
	monitorIgnores     []string
	monitorRefreshURL  string
	monitorRefreshPort int
	monitorToken       string
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the store and push edits live",
	Long: `Watch the local store and push every settled content edit to the note
store, until interrupted. After each push an optional refresh endpoint is
poked so connected clients reload.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Monitoring. Press Ctrl+C to stop.")
		err := arbor.Monitor(ctx, workingDir(),
			arbor.WithLogger(slog.Default()),
			arbor.WithIgnores(monitorIgnores),
			arbor.WithRefreshURL(monitorRefreshURL),
			arbor.WithRefreshPort(monitorRefreshPort),
			arbor.WithToken(monitorToken),
		)
		if err != nil {
			fatal("Monitor failed", err)
		}

		fmt.Println("Monitor stopped.")
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringArrayVar(&monitorIgnores, "ignore", nil, "Glob pattern to leave alone (repeatable)")
	monitorCmd.Flags().StringVar(&monitorRefreshURL, "refresh-url", "", "Endpoint poked after each push")
	monitorCmd.Flags().IntVar(&monitorRefreshPort, "refresh-port", 0, "Local port whose /dev/refresh/ endpoint is poked")
	monitorCmd.Flags().StringVar(&monitorToken, "token", "", "API token (overrides the stored one)")
}
