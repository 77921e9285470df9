package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIdempotent(t *testing.T) {
	r := prometheus.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(r); err != nil {
		t.Fatalf("second register must be a no-op: %v", err)
	}
}

func TestHandlerExposesProbeCounters(t *testing.T) {
	_ = RegisterDefault()
	ObserveProbe("connectivity", true, 10*time.Millisecond)
	SetServiceReady("search-engine", true)
	IncLaunch("search-engine")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)
	body := w.Body.String()
	if !strings.Contains(body, "veristack_probe_results_total") {
		t.Fatalf("probe counter missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, "veristack_bootstrap_service_ready") {
		t.Fatalf("readiness gauge missing from exposition")
	}
}
