package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/storeflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of storeflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "storeflow version %s\n", strings.TrimSpace(storeflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
