package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor"
	"github.com/spf13/cobra"
)

var (
	pushWorkers int
	pushToken   string
)

// pushCmd represents the push command
var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload local edits to the remote",
	Long: `Compare the local store against the remote and upload every supported
change. Differences the remote cannot absorb (structural edits, new notes)
are reported together; they do not stop the supported uploads.`,
	Run: func(cmd *cobra.Command, args []string) {
		report, err := arbor.Push(cmd.Context(), workingDir(),
			arbor.WithLogger(slog.Default()),
			arbor.WithWorkers(pushWorkers),
			arbor.WithToken(pushToken),
		)
		if err != nil {
			if report != nil && len(report.Attempted) > 0 {
				fmt.Printf("Attempted %d uploads.\n", len(report.Attempted))
			}
			fmt.Fprintf(os.Stderr, "Error: Push failed: %v\n", err)
			fmt.Println("Tip: Structural changes (new, moved, or relinked notes) must be made on the server; only content edits can be pushed.")
			os.Exit(1)
		}

		if len(report.Attempted) == 0 {
			fmt.Println("Nothing to push.")
			return
		}
		fmt.Printf("Pushed %d notes.\n", len(report.Attempted))
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().IntVar(&pushWorkers, "workers", 0, "Concurrent uploads (0 = one per CPU)")
	pushCmd.Flags().StringVar(&pushToken, "token", "", "API token (overrides the stored one)")
}
