package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/memosync"
	"github.com/aretw0/memosync/internal/platform"
)

var (
	verbose    bool
	configFile string
	envFile    string
	syncDir    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "memosync",
	Short: "Mirror memos from a Memos server into Markdown documents",
	Long: `memosync fetches the memos of a self-hosted Memos server and writes each one
as a Markdown document under YEAR/MONTH, with its attachments and a properties
block. Memos already present locally are left untouched.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: memosync.yaml in the project root)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with MEMOSYNC_* variables")
	rootCmd.PersistentFlags().StringVarP(&syncDir, "dir", "d", "", "Output directory (overrides sync.dir)")
}

// loadConfig reads and validates the configuration, applying flag overrides.
func loadConfig(adjust ...func(*memosync.Config)) (memosync.Config, string) {
	cfg, used, err := memosync.LoadConfig(memosync.LoadOptions{File: configFile, EnvFile: envFile})
	if err != nil {
		fatal("Invalid configuration", err)
	}
	if syncDir != "" {
		cfg.Sync.Dir = syncDir
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	for _, fn := range adjust {
		fn(&cfg)
	}
	return cfg, used
}

// setup loads the configuration and wires the application.
// The returned closer flushes the log file and must be deferred.
func setup(adjust ...func(*memosync.Config)) (*memosync.App, io.Closer) {
	cfg, used := loadConfig(adjust...)

	logger, closer := platform.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	if used != "" {
		logger.Debug("configuration loaded", "file", used)
	}

	app, err := memosync.New(cfg,
		memosync.WithLogger(logger),
		memosync.WithNotifier(terminalNotifier{out: os.Stdout}),
	)
	if err != nil {
		closer.Close()
		fatal("Failed to initialize", err)
	}
	return app, closer
}
