package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"

	"github.com/aretw0/memosync/pkg/core"
)

// Syncer runs one sync pass.
type Syncer interface {
	Sync(ctx context.Context) (core.Report, error)
}

// Scheduler is a worker that runs a pass immediately and then on every tick.
// Ticks that arrive while a pass is still running are dropped.
type Scheduler struct {
	*worker.BaseWorker
	syncer   Syncer
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc

	mu      sync.Mutex
	passes  int
	dropped int
	lastErr error
}

// NewScheduler creates a periodic sync worker.
func NewScheduler(syncer Syncer, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if syncer == nil {
		return nil, core.ConfigError("scheduler requires a syncer")
	}
	if interval <= 0 {
		return nil, core.ConfigError("sync interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		BaseWorker: worker.NewBaseWorker("sync-scheduler"),
		syncer:     syncer,
		interval:   interval,
		logger:     logger,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := s.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("scheduler already started (status: %s)", status)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.SetStatus(worker.StatusRunning)
	return s.StartFunc(runCtx, s.run)
}

func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.StopRequested = true
		s.cancel()
	}
	return s.BaseWorker.Stop(ctx)
}

func (s *Scheduler) State() worker.State {
	return s.ExportState(func(st *worker.State) {
		s.mu.Lock()
		defer s.mu.Unlock()
		st.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"interval":          s.interval.String(),
			"passes":            fmt.Sprint(s.passes),
			"dropped":           fmt.Sprint(s.dropped),
		}
		if s.lastErr != nil {
			st.Metadata["last_error"] = s.lastErr.Error()
		}
	})
}

func (s *Scheduler) run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.syncer.Sync(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case errors.Is(err, core.ErrSyncInProgress):
		s.dropped++
		s.logger.Debug("tick dropped, pass in progress")
		return
	case ctx.Err() != nil:
		return
	}
	s.passes++
	s.lastErr = err
	if err != nil {
		// The service already reported the failure; the next tick retries.
		s.logger.Warn("scheduled sync finished with errors", "run", report.RunID, "error", err)
	}
}
