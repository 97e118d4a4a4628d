package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/memosync"
	"github.com/aretw0/memosync/internal/platform"
	"github.com/aretw0/memosync/pkg/core"
)

var updateChanged bool

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronization pass",
	Long: `Fetch the latest memos and write every memo that is not yet present locally.
Failures of individual memos are reported and the pass continues. With
sync.mode set to periodic, passes repeat every sync.interval as in watch.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, closer := setup(func(c *memosync.Config) {
			if cmd.Flags().Changed("update-changed") {
				c.Sync.UpdateChanged = updateChanged
			}
		})
		defer closer.Close()

		ctx, stop := signalContext()
		defer stop()

		if app.Config.Sync.Mode == platform.ModePeriodic {
			if err := runPeriodic(ctx, app); err != nil {
				closer.Close()
				fatal("Sync failed", err)
			}
			return
		}

		report, err := app.Service.Sync(ctx)
		if report.DigestPath != "" {
			fmt.Printf("%s %s\n", labelStyle.Render("digest:"), report.DigestPath)
		}
		if err == nil {
			return
		}
		closer.Close()
		if errors.Is(err, core.ErrPersist) {
			fmt.Fprintf(os.Stderr, "%s %d of %d memos could not be written\n",
				errorStyle.Render("Error:"), report.Failed, report.Fetched)
			os.Exit(1)
		}
		fatal("Sync failed", err)
	},
}

func init() {
	syncCmd.Flags().BoolVar(&updateChanged, "update-changed", false, "Rewrite documents whose memo changed remotely")
	rootCmd.AddCommand(syncCmd)
}
