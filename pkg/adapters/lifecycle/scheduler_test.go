package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/memosync/pkg/core"
)

type countingSyncer struct {
	calls atomic.Int32
	err   error
}

func (c *countingSyncer) Sync(ctx context.Context) (core.Report, error) {
	c.calls.Add(1)
	return core.Report{RunID: "run"}, c.err
}

func TestNewScheduler_Validation(t *testing.T) {
	_, err := NewScheduler(nil, time.Second, nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewScheduler(&countingSyncer{}, 0, nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	syncer := &countingSyncer{}
	s, err := NewScheduler(syncer, 20*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))

	after := syncer.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, syncer.calls.Load(), "no passes after Stop")
}

func TestScheduler_DropsOverlappingTicks(t *testing.T) {
	syncer := &countingSyncer{err: core.ErrSyncInProgress}
	s, err := NewScheduler(syncer, 10*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	assert.Eventually(t, func() bool {
		return s.State().Metadata["dropped"] != "0"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "0", s.State().Metadata["passes"])

	require.NoError(t, s.Stop(context.Background()))
}

type changeCounter struct {
	mu     sync.Mutex
	events []core.Event
}

func (c *changeCounter) ObserveLocalChange(e core.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *changeCounter) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestNewChangeMonitor_Validation(t *testing.T) {
	_, err := NewChangeMonitor(nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestChangeMonitor_RecordsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan core.Event, 4)
	rec := &changeCounter{}
	m, err := NewChangeMonitor(in, rec, nil)
	require.NoError(t, err)
	require.NoError(t, m.Start(ctx))

	in <- core.Event{Type: core.EventModify, Path: "2024/03/a.md"}
	in <- core.Event{Type: core.EventModify, Path: "2024/03/a.md"}
	in <- core.Event{Type: core.EventDelete, Path: "2024/03/b.md"}

	assert.Eventually(t, func() bool { return rec.len() == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, m.Count(core.EventModify))
	assert.Equal(t, 1, m.Count(core.EventDelete))

	st := m.State()
	assert.Equal(t, "2", st.Metadata["modified"])
	assert.Equal(t, "2024/03/b.md", st.Metadata["last_change"])

	require.NoError(t, m.Stop(context.Background()))
}

func TestChangeMonitor_StopsWhenChannelCloses(t *testing.T) {
	in := make(chan core.Event)
	m, err := NewChangeMonitor(in, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))

	close(in)
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, m.Stop(stopCtx))
}
