package main

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor"
	"github.com/spf13/cobra"
)

var (
	diffContent bool
	diffWorkers int
	diffToken   string
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare the local store against the remote",
	Long: `Load the remote subtree, scan the local store, and report every
difference between them. With --content, changed notes additionally get a
unified diff of their content.`,
	Run: func(cmd *cobra.Command, args []string) {
		report, err := arbor.Diff(cmd.Context(), workingDir(),
			arbor.WithLogger(slog.Default()),
			arbor.WithContentDiff(diffContent),
			arbor.WithWorkers(diffWorkers),
			arbor.WithToken(diffToken),
		)
		if err != nil {
			fatal("Diff failed", err)
		}

		if len(report.Entries) == 0 {
			fmt.Println("Local store matches the remote.")
			return
		}

		for _, entry := range report.Entries {
			fmt.Println(entry.Diff)
			if entry.Patch != "" {
				fmt.Print(entry.Patch)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().BoolVar(&diffContent, "content", false, "Render unified diffs for changed content")
	diffCmd.Flags().IntVar(&diffWorkers, "workers", 0, "Concurrent downloads (0 = one per CPU)")
	diffCmd.Flags().StringVar(&diffToken, "token", "", "API token (overrides the stored one)")
}
