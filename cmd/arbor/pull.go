package main

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor"
	"github.com/spf13/cobra"
)

var (
	pullOverwrite bool
	pullWorkers   int
	pullToken     string
)

// pullCmd represents the pull command
var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Mirror the remote subtree into the local store",
	Long: `Fetch the configured subtree from the note store and project it onto
the filesystem. An existing projection is only replaced with --overwrite,
since local changes are discarded with it.`,
	Run: func(cmd *cobra.Command, args []string) {
		report, err := arbor.Pull(cmd.Context(), workingDir(),
			arbor.WithLogger(slog.Default()),
			arbor.WithOverwrite(pullOverwrite),
			arbor.WithWorkers(pullWorkers),
			arbor.WithToken(pullToken),
		)
		if err != nil {
			fatal("Pull failed", err)
		}

		fmt.Printf("Pulled %d notes under '%s'.\n", report.Notes, report.RootID)
		for _, skipped := range report.Skipped {
			fmt.Printf("Skipped (no-sync): %s\n", skipped)
		}
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
	pullCmd.Flags().BoolVar(&pullOverwrite, "overwrite", false, "Replace an existing projection")
	pullCmd.Flags().IntVar(&pullWorkers, "workers", 0, "Concurrent downloads (0 = one per CPU)")
	pullCmd.Flags().StringVar(&pullToken, "token", "", "API token (overrides the stored one)")
}
