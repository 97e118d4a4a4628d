package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/memosync/pkg/core"
)

func TestRecorder_Outcomes(t *testing.T) {
	r := New()
	r.ObserveOutcome(core.OutcomePersisted)
	r.ObserveOutcome(core.OutcomePersisted)
	r.ObserveOutcome(core.OutcomeSkipped)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.MemosTotal.WithLabelValues("persisted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.MemosTotal.WithLabelValues("skipped")))
}

func TestRecorder_Passes(t *testing.T) {
	r := New()
	r.ObservePass(core.Report{Fetched: 4, Duration: time.Second, DigestPath: "digests/x.md"}, nil)
	r.ObservePass(core.Report{Fetched: 2, Failed: 1}, nil)
	r.ObservePass(core.Report{}, core.ErrTransport)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.PassesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PassesTotal.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PassesTotal.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.FetchedMemos))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.DigestWritten))
}

func TestRecorder_LocalChanges(t *testing.T) {
	r := New()
	r.ObserveLocalChange(core.Event{Type: core.EventModify, Path: "2024/03/a.md"})
	r.ObserveLocalChange(core.Event{Type: core.EventModify, Path: "2024/03/b.md"})
	r.ObserveLocalChange(core.Event{Type: core.EventDelete, Path: "2024/03/a.md"})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.LocalChanges.WithLabelValues("modify")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.LocalChanges.WithLabelValues("delete")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveOutcome(core.OutcomeUpdated)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `memosync_memos_total{outcome="updated"} 1`)
}
