package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSeatOperation_CountsByLabel(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveSeatOperation("assign", "assigned")
	m.ObserveSeatOperation("assign", "assigned")
	m.ObserveSeatOperation("assign", "seat_taken")

	if got := testutil.ToFloat64(m.SeatOperations.WithLabelValues("assign", "assigned")); got != 2 {
		t.Errorf("expected 2 assigned, got %v", got)
	}
	if got := testutil.ToFloat64(m.SeatOperations.WithLabelValues("assign", "seat_taken")); got != 1 {
		t.Errorf("expected 1 seat_taken, got %v", got)
	}
}

func TestObserveNotification_RecordsLatency(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveNotification("assignment", "queued", 5*time.Millisecond)
	m.ObserveNotification("assignment", "failed", time.Millisecond)

	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("assignment", "failed")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
	if n := testutil.CollectAndCount(m.EnqueueLatency); n != 1 {
		t.Errorf("expected one histogram series, got %d", n)
	}
}

func TestNilMetrics_IsNoop(t *testing.T) {
	var m *Metrics

	m.ObserveSeatOperation("assign", "assigned")
	m.IncWriteRetry("assign")
	m.ObserveNotification("custom", "queued", time.Second)

	if m.Registry() != nil {
		t.Error("expected nil registry")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := New()
	m.IncWriteRetry("unassign")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `munreg_conditional_write_retries_total{operation="unassign"} 1`) {
		t.Errorf("expected retry counter in output, got:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected Go runtime collector output")
	}
}
