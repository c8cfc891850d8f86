package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clubcard %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
