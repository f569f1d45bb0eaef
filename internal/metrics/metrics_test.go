package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Transition("pending", "adviser-review")
	m.AAStatusChanged("paid")
	m.HonorariaCreated(3)
	m.UnresolvedPanelist()
	m.OrphanPanelist()
	m.SyncRun("ok", time.Second)
	m.Notification("defense.completed", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

func TestCounters(t *testing.T) {
	m := New(false)

	m.Transition("pending", "adviser-review")
	m.Transition("pending", "adviser-review")
	m.HonorariaCreated(4)
	m.HonorariaCreated(0)
	m.SyncRun("error", 10*time.Millisecond)
	m.Notification("defense.scheduled", errors.New("smtp down"))

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("pending", "adviser-review")); got != 2 {
		t.Errorf("transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.honorariaCreated); got != 4 {
		t.Errorf("honoraria created = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.syncRuns.WithLabelValues("error")); got != 1 {
		t.Errorf("sync errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("defense.scheduled", "error")); got != 1 {
		t.Errorf("notification errors = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(false)
	m.OrphanPanelist()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gradschool_sync_orphan_panelists_total 1") {
		t.Errorf("Orphan counter missing from output:\n%s", rec.Body.String())
	}
}
