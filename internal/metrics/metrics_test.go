package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	m := New()

	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.registry == nil {
		t.Error("registry is nil")
	}
	if m.TicketsProcessedTotal == nil {
		t.Error("TicketsProcessedTotal is nil")
	}
	if m.SweepDuration == nil {
		t.Error("SweepDuration is nil")
	}
	if m.ModelCallsTotal == nil {
		t.Error("ModelCallsTotal is nil")
	}
	if m.NotificationsSentTotal == nil {
		t.Error("NotificationsSentTotal is nil")
	}
}

func TestHandler(t *testing.T) {
	m := New()

	// Record some sample metrics so they appear in output
	m.RecordOutcome("without_document", true)
	m.RecordModelCall("openai", nil)
	m.RecordModelCall("openai", errors.New("timeout"))
	m.RecordNotification()
	m.ObserveSweep(2 * time.Second)

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	expectedMetrics := []string{
		"querydesk_tickets_processed_total",
		"querydesk_sweep_duration_seconds",
		"querydesk_model_calls_total",
		"querydesk_notifications_sent_total",
	}
	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestRecordOutcome(t *testing.T) {
	m := New()

	m.RecordOutcome("needs_approval", false)
	m.RecordOutcome("", false)

	metricFamilies, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if *mf.Name == "querydesk_tickets_processed_total" {
			found = true
			if len(mf.Metric) != 2 {
				t.Errorf("Expected 2 label combinations, got %d", len(mf.Metric))
			}
			// The empty closure maps to the "none" label
			for _, metric := range mf.Metric {
				for _, label := range metric.Label {
					if *label.Value == "" {
						t.Error("Empty closure label recorded")
					}
				}
			}
		}
	}
	if !found {
		t.Error("querydesk_tickets_processed_total metric not found")
	}
}

func TestRecordModelCallStatus(t *testing.T) {
	m := New()

	m.RecordModelCall("anthropic", nil)
	m.RecordModelCall("anthropic", nil)
	m.RecordModelCall("anthropic", errors.New("boom"))

	metricFamilies, _ := m.registry.Gather()
	for _, mf := range metricFamilies {
		if *mf.Name != "querydesk_model_calls_total" {
			continue
		}
		for _, metric := range mf.Metric {
			status := ""
			for _, label := range metric.Label {
				if *label.Name == "status" {
					status = *label.Value
				}
			}
			switch status {
			case "ok":
				if *metric.Counter.Value != 2 {
					t.Errorf("Expected 2 ok calls, got %f", *metric.Counter.Value)
				}
			case "error":
				if *metric.Counter.Value != 1 {
					t.Errorf("Expected 1 error call, got %f", *metric.Counter.Value)
				}
			default:
				t.Errorf("Unexpected status label %q", status)
			}
		}
	}
}

func TestNilReceiver(t *testing.T) {
	var m *Metrics

	// All record methods must be safe without a collector
	m.RecordOutcome("with_document", true)
	m.RecordModelCall("openai", nil)
	m.RecordNotification()
	m.ObserveSweep(time.Second)
}

func TestMetricsIsolation(t *testing.T) {
	m1 := New()
	m2 := New()

	m1.RecordNotification()
	m1.RecordNotification()
	m2.RecordNotification()

	check := func(m *Metrics, want float64) {
		metricFamilies, _ := m.registry.Gather()
		for _, mf := range metricFamilies {
			if *mf.Name == "querydesk_notifications_sent_total" {
				if len(mf.Metric) > 0 && *mf.Metric[0].Counter.Value != want {
					t.Errorf("Expected value %f, got %f", want, *mf.Metric[0].Counter.Value)
				}
			}
		}
	}
	check(m1, 2)
	check(m2, 1)
}
