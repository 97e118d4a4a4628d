package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/memosync"
)

// digestCmd represents the digest command
var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Compose the weekly digest of recent memos",
	Long: `Fetch the latest memos, group them by ISO week and ask the configured AI
provider for a digest of each week. The result is written under digests/.
Requires ai.enabled and an AI provider.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, closer := setup(func(c *memosync.Config) {
			c.AI.WeeklyDigest = true
		})
		defer closer.Close()

		if !app.Config.AI.Enabled || app.Config.AI.Provider == "none" {
			closer.Close()
			fatal("Digest unavailable", fmt.Errorf("enable ai.enabled and set ai.provider"))
		}

		ctx, stop := signalContext()
		defer stop()

		path, err := app.Service.Digest(ctx)
		if err != nil {
			closer.Close()
			fatal("Digest failed", err)
		}
		if path != "" {
			fmt.Printf("%s %s\n", labelStyle.Render("digest:"), path)
		}
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
}
