package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/spf13/cobra"

	"github.com/aretw0/memosync"
	"github.com/aretw0/memosync/internal/platform"
	"github.com/aretw0/memosync/pkg/core"
)

var (
	watchInterval time.Duration
	metricsAddr   string
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Synchronize periodically until interrupted",
	Long: `Run a pass immediately and then every sync.interval. Local edits to the
document tree are picked up between passes. With metrics.addr set, Prometheus
metrics are served on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, closer := setup(func(c *memosync.Config) {
			c.Sync.Mode = platform.ModePeriodic
			if cmd.Flags().Changed("interval") {
				c.Sync.Interval = watchInterval
			}
			if cmd.Flags().Changed("metrics-addr") {
				c.Metrics.Addr = metricsAddr
			}
		})
		defer closer.Close()

		ctx, stop := signalContext()
		defer stop()

		if err := runPeriodic(ctx, app); err != nil {
			closer.Close()
			fatal("Watch failed", err)
		}
	},
}

// runPeriodic watches the document tree, serves metrics when configured and
// runs scheduled passes until ctx is done.
func runPeriodic(ctx context.Context, app *memosync.App) error {
	logger := app.Logger

	events := make(chan core.Event, 64)
	stopWatch, err := app.Watch(ctx, events)
	if err != nil {
		return fmt.Errorf("failed to watch document tree: %w", err)
	}
	monitor, err := app.Monitor(events)
	if err != nil {
		return err
	}
	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start change monitor: %w", err)
	}

	if addr := app.Config.Metrics.Addr; addr != "" && app.Metrics != nil {
		serveMetrics(ctx, logger, addr, app.Metrics.Handler())
	}

	_, err = app.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stopWatch(shutdownCtx); err != nil {
		logger.Warn("watcher did not stop cleanly", "error", err)
	}
	if err := monitor.Stop(shutdownCtx); err != nil {
		logger.Warn("change monitor did not stop cleanly", "error", err)
	}
	return err
}

func serveMetrics(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		logger.Error("metrics server failed", "error", err)
	}))
	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Minute, "Time between passes (overrides sync.interval)")
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics.addr)")
	rootCmd.AddCommand(watchCmd)
}
