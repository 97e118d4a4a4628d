package platform

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/memosync/pkg/ai"
	"github.com/aretw0/memosync/pkg/core"
)

// options holds the collaborators that may replace the defaults built from Config.
type options struct {
	logger     *slog.Logger
	notifier   core.Notifier
	recorder   core.Recorder
	source     core.Source
	resources  core.ResourceFetcher
	store      core.Store
	provider   ai.Provider
	httpClient *http.Client
	now        func() time.Time
}

// Option defines a functional option for configuring the application.
type Option func(*options)

func defaultOptions() *options {
	return &options{now: time.Now}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNotifier receives the user-facing status messages of each pass.
func WithNotifier(n core.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithRecorder replaces the Prometheus recorder.
func WithRecorder(r core.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithSource replaces the Memos client, e.g. with a fixture.
// If the source also implements core.ResourceFetcher it downloads attachments too.
func WithSource(src core.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithResources sets the attachment downloader independently of the source.
func WithResources(r core.ResourceFetcher) Option {
	return func(o *options) {
		o.resources = r
	}
}

// WithStore injects a custom document store.
// If provided, the default filesystem store is skipped and Watch is unavailable.
func WithStore(s core.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithProvider replaces the AI provider selected by Config.AI.
func WithProvider(p ai.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithHTTPClient sets the client used to reach the Memos server.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithNow overrides the clock (tests).
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
