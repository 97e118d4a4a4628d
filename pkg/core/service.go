package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ServiceConfig holds the collaborators and policies of a sync pass.
type ServiceConfig struct {
	Source      Source
	Store       Store
	Transformer Transformer

	// Limit caps the number of memos fetched per pass.
	Limit int
	// UpdateChanged rewrites documents whose remote UpdateTime is newer than the indexed one.
	// When false, an existing marker is terminal.
	UpdateChanged bool
	// WeeklyDigest composes and stores a digest after each pass.
	WeeklyDigest bool

	Logger   *slog.Logger
	Notifier Notifier
	Recorder Recorder
	Now      func() time.Time
}

// Service orchestrates fetch -> transform -> persist.
type Service struct {
	cfg     ServiceConfig
	running atomic.Bool

	mu       sync.RWMutex
	passes   int
	last     *Report
	lastErr  error
	lastTime time.Time
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, ConfigError("memo source is required")
	}
	if cfg.Store == nil {
		return nil, ConfigError("document store is required")
	}
	if cfg.Transformer == nil {
		return nil, ConfigError("content transformer is required")
	}
	if cfg.Limit <= 0 {
		return nil, ConfigError("sync limit must be positive, got %d", cfg.Limit)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{cfg: cfg}, nil
}

// Running reports whether a pass is in flight.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Sync runs one pass. Only one pass may run at a time; overlapping calls
// return ErrSyncInProgress without touching the store.
//
// Workflow:
//  1. Fetch up to Limit memos. A fetch failure aborts the pass before anything is written.
//  2. For each memo, sequentially: skip if already materialized, otherwise transform and write.
//     A failed write is recorded and the pass continues with the next memo.
//  3. Optionally compose and store the weekly digest, when the pass wrote at least one memo.
func (s *Service) Sync(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Report{}, ErrSyncInProgress
	}
	defer s.running.Store(false)

	start := s.cfg.Now()
	report := Report{RunID: uuid.NewString()}
	logger := s.cfg.Logger.With("run", report.RunID)

	err := s.run(ctx, logger, &report)
	report.Duration = s.cfg.Now().Sub(start)

	if s.cfg.Recorder != nil {
		s.cfg.Recorder.ObservePass(report, err)
	}
	s.remember(report, err)

	if err != nil {
		logger.Error("sync failed", "error", err)
		s.notify(LevelError, fmt.Sprintf("Sync failed: %v", err))
		return report, err
	}

	logger.Info("sync completed",
		"fetched", report.Fetched,
		"persisted", report.Persisted,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	s.notify(LevelSuccess, completionMessage(report))
	return report, errors.Join(report.Errors...)
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, report *Report) error {
	if err := s.cfg.Store.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	s.notify(LevelInfo, "Sync started")
	logger.Info("sync started", "limit", s.cfg.Limit)

	memos, err := s.cfg.Source.FetchAll(ctx, s.cfg.Limit)
	if err != nil {
		return err
	}
	report.Fetched = len(memos)
	s.notify(LevelInfo, fmt.Sprintf("Found %d memos", len(memos)))

	for _, m := range memos {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := s.syncMemo(ctx, logger, m)
		report.Record(outcome)
		if s.cfg.Recorder != nil {
			s.cfg.Recorder.ObserveOutcome(outcome)
		}
		if err != nil {
			logger.Warn("memo not persisted", "memo", m.Name, "error", err)
			report.Errors = append(report.Errors, err)
		}
	}

	if s.cfg.WeeklyDigest && report.Persisted+report.Updated == 0 {
		logger.Debug("weekly digest skipped, no memo changed")
	} else if s.cfg.WeeklyDigest {
		path, err := s.digest(ctx, memos)
		if err != nil {
			report.Errors = append(report.Errors, err)
			logger.Warn("weekly digest not written", "error", err)
		}
		report.DigestPath = path
	}

	return nil
}

// syncMemo drives one memo through Fetched -> {Skipped | Augment -> Render -> Persist}.
func (s *Service) syncMemo(ctx context.Context, logger *slog.Logger, m Memo) (Outcome, error) {
	outcome := OutcomePersisted

	entry, found, err := s.cfg.Store.Lookup(ctx, m.Name)
	if err != nil {
		return OutcomeFailedPersist, fmt.Errorf("%w: memo %s: %w", ErrPersist, m.Name, err)
	}
	if found {
		if !s.cfg.UpdateChanged || !newer(m.UpdateTime, entry.UpdatedAt) {
			logger.Debug("memo already exists, skipping", "memo", m.Name, "path", entry.Path)
			return OutcomeSkipped, nil
		}
		outcome = OutcomeUpdated
	}

	body := s.cfg.Transformer.Process(ctx, m)

	path, err := s.cfg.Store.Write(ctx, m, body)
	if err != nil {
		return OutcomeFailedPersist, fmt.Errorf("%w: memo %s: %w", ErrPersist, m.Name, err)
	}

	logger.Debug("memo written", "memo", m.Name, "path", path, "outcome", outcome)
	return outcome, nil
}

// Digest fetches the latest memos and writes the weekly digest without
// materializing individual memos. It shares the pass guard with Sync.
// An empty path with a nil error means no week could be rendered.
func (s *Service) Digest(ctx context.Context) (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		return "", ErrSyncInProgress
	}
	defer s.running.Store(false)

	if err := s.cfg.Store.Initialize(ctx); err != nil {
		return "", fmt.Errorf("failed to initialize store: %w", err)
	}
	memos, err := s.cfg.Source.FetchAll(ctx, s.cfg.Limit)
	if err != nil {
		s.notify(LevelError, fmt.Sprintf("Digest failed: %v", err))
		return "", err
	}
	path, err := s.digest(ctx, memos)
	if err != nil {
		s.notify(LevelError, fmt.Sprintf("Digest failed: %v", err))
		return "", err
	}
	if path == "" {
		s.notify(LevelWarning, "No memos eligible for a weekly digest")
	} else {
		s.notify(LevelSuccess, "Weekly digest written to "+path)
	}
	return path, nil
}

func (s *Service) digest(ctx context.Context, memos []Memo) (string, error) {
	d := s.cfg.Transformer.WeeklyDigest(ctx, memos)
	if d.Weeks == 0 {
		s.cfg.Logger.Info("weekly digest skipped", "reason", d.Body)
		return "", nil
	}
	path, err := s.cfg.Store.WriteDigest(ctx, d.Body, s.cfg.Now())
	if err != nil {
		return "", fmt.Errorf("%w: weekly digest: %w", ErrPersist, err)
	}
	return path, nil
}

func (s *Service) notify(level Level, msg string) {
	if s.cfg.Notifier != nil {
		s.cfg.Notifier.Notify(level, msg)
	}
}

func (s *Service) remember(r Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passes++
	s.last = &r
	s.lastErr = err
	s.lastTime = s.cfg.Now()
}

// newer compares at second precision, the resolution of the properties callout.
func newer(remote, local time.Time) bool {
	return remote.Truncate(time.Second).After(local.Truncate(time.Second))
}

func completionMessage(r Report) string {
	msg := fmt.Sprintf("Successfully synced %d memos (%d new, %d updated, %d skipped)",
		r.Persisted+r.Updated, r.Persisted, r.Updated, r.Skipped)
	if r.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", r.Failed)
	}
	return msg
}
