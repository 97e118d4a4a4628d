package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/memosync/pkg/core"
)

func testConfig(t *testing.T, url string) Config {
	cfg := Defaults()
	cfg.Memos.URL = url + "/api/v1"
	cfg.Memos.Token = "secret"
	cfg.Sync.Dir = t.TempDir()
	cfg.Sync.Timezone = "UTC"
	return cfg
}

func TestNew_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/memos", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"memos": []map[string]any{{
				"name":       "memos/7",
				"content":    "#work# planning the quarterly review",
				"visibility": "PRIVATE",
				"createTime": "2024-03-14T10:30:00Z",
				"updateTime": "2024-03-14T10:30:00Z",
			}},
		})
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	var msgs []string
	app, err := New(cfg, WithNotifier(core.NotifierFunc(func(_ core.Level, msg string) {
		msgs = append(msgs, msg)
	})))
	require.NoError(t, err)
	require.NotNil(t, app.FS)
	require.NotNil(t, app.Metrics)

	report, err := app.Service.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Persisted)

	matches, err := filepath.Glob(filepath.Join(cfg.Sync.Dir, "2024", "03", "*.md"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "#work planning")
	assert.Contains(t, string(data), "> - ID: memos/7")

	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics.MemosTotal.WithLabelValues("persisted")))
	assert.Contains(t, msgs, "Found 1 memos")

	report, err = app.Service.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
}

func TestNew_ConfigurationErrors(t *testing.T) {
	cfg := testConfig(t, "https://memos.example.com")
	cfg.Sync.Timezone = "Nowhere/Land"
	_, err := New(cfg)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	cfg = testConfig(t, "https://memos.example.com")
	cfg.AI.Enabled = true
	cfg.AI.Provider = "claude"
	_, err = New(cfg)
	assert.ErrorIs(t, err, core.ErrConfiguration, "missing AI key fails before the first call")

	cfg = testConfig(t, "https://memos.example.com")
	cfg.Memos.Token = ""
	_, err = New(cfg)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

type stubStore struct{ core.Store }

func TestNew_InjectedStoreDisablesWatch(t *testing.T) {
	cfg := testConfig(t, "https://memos.example.com")
	app, err := New(cfg, WithStore(stubStore{}))
	require.NoError(t, err)
	assert.Nil(t, app.FS)

	_, err = app.Watch(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestApp_Scheduler(t *testing.T) {
	cfg := testConfig(t, "https://memos.example.com")
	app, err := New(cfg)
	require.NoError(t, err)

	s, err := app.Scheduler()
	require.NoError(t, err)
	assert.Equal(t, cfg.Sync.Interval.String(), s.State().Metadata["interval"])
}

type countingSource struct{ calls atomic.Int32 }

func (c *countingSource) FetchAll(ctx context.Context, limit int) ([]core.Memo, error) {
	c.calls.Add(1)
	return nil, nil
}

func TestApp_RunManual(t *testing.T) {
	cfg := testConfig(t, "https://memos.example.com")
	src := &countingSource{}
	app, err := New(cfg, WithSource(src))
	require.NoError(t, err)

	_, err = app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestApp_RunPeriodic(t *testing.T) {
	cfg := testConfig(t, "https://memos.example.com")
	cfg.Sync.Mode = ModePeriodic
	src := &countingSource{}
	app, err := New(cfg, WithSource(src))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := app.Run(ctx)
		done <- err
	}()

	assert.Eventually(t, func() bool { return src.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	select {
	case <-done:
		t.Fatal("periodic run returned before cancellation")
	default:
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("periodic run did not return after cancellation")
	}
}

func TestApp_MonitorRecordsLocalChanges(t *testing.T) {
	cfg := testConfig(t, "https://memos.example.com")
	app, err := New(cfg)
	require.NoError(t, err)

	events := make(chan core.Event, 2)
	m, err := app.Monitor(events)
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	events <- core.Event{Type: core.EventModify, Path: "2024/03/a.md"}
	events <- core.Event{Type: core.EventCreate, Path: "2024/03/b.md"}

	counter := app.Metrics.LocalChanges
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(counter.WithLabelValues("modify")) == 1 &&
			testutil.ToFloat64(counter.WithLabelValues("create")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
