package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/lifecycle/pkg/core/worker"

	"github.com/aretw0/memosync/pkg/core"
)

// ChangeRecorder counts local edits to the document tree.
type ChangeRecorder interface {
	ObserveLocalChange(e core.Event)
}

// ChangeMonitor is a worker that drains the store watcher's events, logs
// them and hands them to a ChangeRecorder.
type ChangeMonitor struct {
	*worker.BaseWorker
	events   <-chan core.Event
	recorder ChangeRecorder
	logger   *slog.Logger
	cancel   context.CancelFunc

	mu     sync.Mutex
	counts map[core.EventType]int
	last   string
}

// NewChangeMonitor creates a worker consuming events. recorder may be nil.
func NewChangeMonitor(events <-chan core.Event, recorder ChangeRecorder, logger *slog.Logger) (*ChangeMonitor, error) {
	if events == nil {
		return nil, core.ConfigError("change monitor requires an event channel")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ChangeMonitor{
		BaseWorker: worker.NewBaseWorker("change-monitor"),
		events:     events,
		recorder:   recorder,
		logger:     logger,
		counts:     make(map[core.EventType]int),
	}, nil
}

func (m *ChangeMonitor) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	status := m.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("change monitor already started (status: %s)", status)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.SetStatus(worker.StatusRunning)
	return m.StartFunc(runCtx, m.run)
}

func (m *ChangeMonitor) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.StopRequested = true
		m.cancel()
	}
	return m.BaseWorker.Stop(ctx)
}

func (m *ChangeMonitor) State() worker.State {
	return m.ExportState(func(st *worker.State) {
		m.mu.Lock()
		defer m.mu.Unlock()
		st.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"created":           fmt.Sprint(m.counts[core.EventCreate]),
			"modified":          fmt.Sprint(m.counts[core.EventModify]),
			"deleted":           fmt.Sprint(m.counts[core.EventDelete]),
		}
		if m.last != "" {
			st.Metadata["last_change"] = m.last
		}
	})
}

// Count returns how many events of type t were observed.
func (m *ChangeMonitor) Count(t core.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[t]
}

func (m *ChangeMonitor) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-m.events:
			if !ok {
				return nil
			}
			m.observe(e)
		}
	}
}

func (m *ChangeMonitor) observe(e core.Event) {
	m.mu.Lock()
	m.counts[e.Type]++
	m.last = e.Path
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.ObserveLocalChange(e)
	}
	m.logger.Info("document changed locally", "type", string(e.Type), "path", e.Path)
}
