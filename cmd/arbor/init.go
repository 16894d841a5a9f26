package main

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor"
	"github.com/spf13/cobra"
)

var (
	initRootID    string
	initPull      bool
	initOverwrite bool
	initToken     string
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init <server-url>",
	Short: "Configure an arbor workspace",
	Long: `Configure the current directory as an arbor workspace bound to a note
store server. With --pull the configured subtree is mirrored right away.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		wd := workingDir()

		err := arbor.Init(cmd.Context(), wd, args[0],
			arbor.WithLogger(slog.Default()),
			arbor.WithRootNoteID(initRootID),
			arbor.WithPull(initPull),
			arbor.WithOverwrite(initOverwrite),
			arbor.WithToken(initToken),
		)
		if err != nil {
			fatal("Failed to initialize workspace", err)
		}

		fmt.Println("Initialized arbor workspace in", wd)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initRootID, "root", "", "Remote note id to mirror (default \"root\")")
	initCmd.Flags().BoolVar(&initPull, "pull", false, "Pull the subtree right after configuring")
	initCmd.Flags().BoolVar(&initOverwrite, "overwrite", false, "Replace an existing configuration")
	initCmd.Flags().StringVar(&initToken, "token", "", "API token (only needed with --pull)")
}
