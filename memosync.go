package memosync

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/memosync/internal/platform"
	"github.com/aretw0/memosync/pkg/ai"
	"github.com/aretw0/memosync/pkg/core"
)

// --- Types ---

// Config is the complete settings of the synchronizer.
type Config = platform.Config

// LoadOptions controls where configuration is read from.
type LoadOptions = platform.LoadOptions

// App is the wired synchronizer.
type App = platform.App

// Report summarizes one sync pass.
type Report = core.Report

// --- Configuration ---

// Option defines a functional option for New.
type Option = platform.Option

// LoadConfig reads defaults, memosync.yaml, .env and MEMOSYNC_* variables.
// It returns the config file that was used, if any.
func LoadConfig(opts LoadOptions) (Config, string, error) {
	return platform.Load(opts)
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return platform.Defaults()
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithNotifier receives the user-facing status messages of each pass.
func WithNotifier(n core.Notifier) Option {
	return platform.WithNotifier(n)
}

// WithRecorder replaces the Prometheus recorder.
func WithRecorder(r core.Recorder) Option {
	return platform.WithRecorder(r)
}

// WithSource replaces the Memos client.
func WithSource(src core.Source) Option {
	return platform.WithSource(src)
}

// WithResources sets the attachment downloader.
func WithResources(r core.ResourceFetcher) Option {
	return platform.WithResources(r)
}

// WithStore injects a custom document store.
func WithStore(s core.Store) Option {
	return platform.WithStore(s)
}

// WithProvider replaces the configured AI provider.
func WithProvider(p ai.Provider) Option {
	return platform.WithProvider(p)
}

// WithHTTPClient sets the client used to reach the Memos server.
func WithHTTPClient(c *http.Client) Option {
	return platform.WithHTTPClient(c)
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return platform.WithNow(now)
}

// --- Factory ---

// New wires the synchronizer described by cfg.
func New(cfg Config, opts ...Option) (*App, error) {
	return platform.New(cfg, opts...)
}

// Open loads the configuration described by lo and wires the synchronizer.
func Open(lo LoadOptions, opts ...Option) (*App, error) {
	cfg, _, err := platform.Load(lo)
	if err != nil {
		return nil, err
	}
	return platform.New(cfg, opts...)
}
