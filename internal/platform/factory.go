package platform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/memosync/pkg/adapters/fs"
	"github.com/aretw0/memosync/pkg/adapters/lifecycle"
	"github.com/aretw0/memosync/pkg/adapters/memos"
	"github.com/aretw0/memosync/pkg/ai"
	"github.com/aretw0/memosync/pkg/content"
	"github.com/aretw0/memosync/pkg/core"
	"github.com/aretw0/memosync/pkg/metrics"
)

// App is the wired synchronizer.
type App struct {
	Config  Config
	Service *core.Service
	Logger  *slog.Logger

	// FS is the filesystem store, nil when a custom store was injected.
	FS *fs.Store
	// Metrics is the Prometheus recorder, nil when a custom recorder was injected.
	Metrics *metrics.Recorder
}

// New wires Memos client -> AI provider -> transformer -> store -> service.
// Configuration errors surface here, before any request is made.
//
//	cfg, _, err := platform.Load(platform.LoadOptions{})
//	app, err := platform.New(cfg, platform.WithLogger(logger))
//	report, err := app.Service.Sync(ctx)
func New(cfg Config, opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	loc, err := cfg.Sync.Location()
	if err != nil {
		return nil, core.ConfigError("invalid sync.timezone %q: %v", cfg.Sync.Timezone, err)
	}

	source := o.source
	resources := o.resources
	if source == nil {
		client, err := memos.New(memos.Config{
			BaseURL:    cfg.Memos.URL,
			Token:      cfg.Memos.Token,
			PageSize:   cfg.Memos.PageSize,
			Timeout:    cfg.Memos.Timeout,
			HTTPClient: o.httpClient,
			Logger:     logger.With("component", "memos"),
		})
		if err != nil {
			return nil, err
		}
		source = client
	}
	if resources == nil {
		if f, ok := source.(core.ResourceFetcher); ok {
			resources = f
		}
	}

	provider := o.provider
	if provider == nil {
		provider, err = ai.New(ai.Config{
			Enabled:    cfg.AI.Enabled,
			Backend:    cfg.AI.Provider,
			APIKey:     cfg.AI.APIKey,
			Model:      cfg.AI.Model,
			BaseURL:    cfg.AI.BaseURL,
			RetryDelay: cfg.AI.RetryDelay,
			Timeout:    cfg.AI.Timeout,
			Logger:     logger.With("component", "ai"),
		})
		if err != nil {
			return nil, err
		}
	}

	transformer := content.New(provider, content.Config{
		Enabled:     cfg.AI.Enabled,
		Summary:     cfg.AI.Summary,
		Tags:        cfg.AI.Tags,
		Language:    cfg.AI.Language,
		Location:    loc,
		DigestWeeks: cfg.AI.DigestWeeks,
		Logger:      logger.With("component", "content"),
		Now:         o.now,
	})

	app := &App{Config: cfg, Logger: logger}

	store := o.store
	if store == nil {
		app.FS = fs.NewStore(fs.Config{
			Path:        cfg.Sync.Dir,
			Resources:   resources,
			Location:    loc,
			Frontmatter: cfg.Sync.Frontmatter,
			Logger:      logger.With("component", "store"),
			ErrorHandler: func(err error) {
				logger.Error("watcher error", "error", err)
			},
		})
		store = app.FS
	}

	recorder := o.recorder
	if recorder == nil {
		app.Metrics = metrics.New()
		recorder = app.Metrics
	}

	app.Service, err = core.NewService(core.ServiceConfig{
		Source:        source,
		Store:         store,
		Transformer:   transformer,
		Limit:         cfg.Sync.Limit,
		UpdateChanged: cfg.Sync.UpdateChanged,
		WeeklyDigest:  cfg.AI.Enabled && cfg.AI.WeeklyDigest,
		Logger:        logger.With("component", "sync"),
		Notifier:      o.notifier,
		Recorder:      recorder,
		Now:           o.now,
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Scheduler returns a worker that runs a pass now and then every sync.interval.
func (a *App) Scheduler() (*lifecycle.Scheduler, error) {
	return lifecycle.NewScheduler(a.Service, a.Config.Sync.Interval, a.Logger.With("component", "scheduler"))
}

// Run honors sync.mode. In manual mode it runs a single pass. In periodic mode
// it runs the scheduler until ctx is done and returns the zero Report.
func (a *App) Run(ctx context.Context) (core.Report, error) {
	if a.Config.Sync.Mode != ModePeriodic {
		return a.Service.Sync(ctx)
	}

	scheduler, err := a.Scheduler()
	if err != nil {
		return core.Report{}, err
	}
	if err := scheduler.Start(ctx); err != nil {
		return core.Report{}, err
	}
	a.Logger.Info("syncing periodically", "interval", a.Config.Sync.Interval, "dir", a.Config.Sync.Dir)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		a.Logger.Warn("scheduler did not stop cleanly", "error", err)
	}
	return core.Report{}, nil
}

// Monitor returns a worker that records the watcher's events as local change metrics.
func (a *App) Monitor(events <-chan core.Event) (*lifecycle.ChangeMonitor, error) {
	var recorder lifecycle.ChangeRecorder
	if a.Metrics != nil {
		recorder = a.Metrics
	}
	return lifecycle.NewChangeMonitor(events, recorder, a.Logger.With("component", "monitor"))
}

// Watch starts the document tree watcher. Changed paths are sent on events.
func (a *App) Watch(ctx context.Context, events chan<- core.Event) (stop func(context.Context) error, err error) {
	if a.FS == nil {
		return nil, fmt.Errorf("%w: watch requires the filesystem store", core.ErrConfiguration)
	}
	if err := a.FS.Initialize(ctx); err != nil {
		return nil, err
	}
	w, err := a.FS.Watch(ctx, events)
	if err != nil {
		return nil, err
	}
	return w.Stop, nil
}
