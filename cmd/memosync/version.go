package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/memosync"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of memosync",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("memosync version %s\n", strings.TrimSpace(memosync.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
