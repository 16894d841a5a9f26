package main

import (
	"fmt"

	"github.com/aretw0/arbor"
	"github.com/spf13/cobra"
)

// setTokenCmd represents the set-token command
var setTokenCmd = &cobra.Command{
	Use:   "set-token <token>",
	Short: "Store the API token for this workspace",
	Long: `Store the note store's API token in the workspace system directory.
The file is readable by the owner only. The token may also be supplied
per invocation through the ARBOR_ETAPI_TOKEN environment variable.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := arbor.SetToken(workingDir(), args[0]); err != nil {
			fatal("Failed to store token", err)
		}

		fmt.Println("Token stored.")
	},
}

func init() {
	rootCmd.AddCommand(setTokenCmd)
}
