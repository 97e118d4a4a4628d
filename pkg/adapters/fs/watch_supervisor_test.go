package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"

	"github.com/aretw0/memosync/pkg/core"
)

func TestWatcherSupervisorRestarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore(Config{Path: t.TempDir()})
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}

	created := make(chan *watchWorker, 2)

	spec := supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			w := newWatchWorker(store, nil)
			created <- w
			return w, nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      1,
			ResetDuration:   50 * time.Millisecond,
			MaxRestarts:     2,
			MaxDuration:     200 * time.Millisecond,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("test-watcher", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("failed to start supervisor: %v", err)
	}

	first := waitForWorker(t, created, "first")
	waitForWatcher(t, store, true)

	waitForWatcherInit(t, first)
	_ = first.watcher.Close()

	second := waitForWorker(t, created, "second")
	if first == second {
		t.Fatalf("expected supervisor to restart watcher with a new instance")
	}
	waitForWatcher(t, store, true)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := sup.Stop(stopCtx); err != nil {
		t.Fatalf("failed to stop supervisor: %v", err)
	}
}

func TestWatchInvalidatesIndex(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore(Config{Path: t.TempDir()})
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if err := store.Refresh(ctx); err != nil {
		t.Fatalf("failed to refresh: %v", err)
	}

	events := make(chan core.Event, 16)
	w, err := store.Watch(ctx, events)
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer func() { _ = w.Stop(context.Background()) }()
	waitForWatcher(t, store, true)

	if err := os.WriteFile(filepath.Join(store.Path, "hand-written.md"), []byte("> - ID: memos/5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-events:
		if e.Path != "hand-written.md" {
			t.Errorf("unexpected event path %q", e.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change event")
	}

	found, err := store.Exists(ctx, "memos/5")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("expected memos/5 to be found after invalidation")
	}
}

func waitForWorker(t *testing.T, ch <-chan *watchWorker, label string) *watchWorker {
	t.Helper()

	select {
	case w := <-ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s worker", label)
		return nil
	}
}

func waitForWatcherInit(t *testing.T, w *watchWorker) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		if w.watcher != nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher initialization")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func waitForWatcher(t *testing.T, store *Store, expected bool) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		state, ok := store.State().(StoreState)
		if ok && state.WatcherActive == expected {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher state = %v", expected)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
