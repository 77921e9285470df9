package report

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/docstack/veristack/internal/bootstrap"
	"github.com/docstack/veristack/internal/probe"
)

func sampleOutcome() ([]bootstrap.ServiceOutcome, []probe.Result) {
	services := []bootstrap.ServiceOutcome{
		{Name: "search-engine", Started: true, Ready: true},
		{Name: "doc-api", Ready: true, AlreadyRunning: true},
	}
	results := []probe.Result{
		{Name: "api_connection", Success: true, Duration: 3 * time.Millisecond},
		{Name: "store_document", Success: false, Message: "backend down", Duration: time.Millisecond},
	}
	return services, results
}

func TestBuildCounters(t *testing.T) {
	services, results := sampleOutcome()
	r := Build(services, results)
	if r.Total != 2 || r.Passed != 1 || r.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", r)
	}
	if r.SuccessRate != 50 {
		t.Fatalf("success rate %v, want 50", r.SuccessRate)
	}
}

func TestBuildEmptyResultsNoDivideByZero(t *testing.T) {
	r := Build(nil, nil)
	if r.Total != 0 || r.SuccessRate != 0 {
		t.Fatalf("unexpected empty report: %+v", r)
	}
}

func TestAggregatorRendersOnceByteIdentical(t *testing.T) {
	var agg Aggregator
	services, results := sampleOutcome()
	agg.SetOutcome(services, results)
	first, err := agg.HTML()
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	second, err := agg.HTML()
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("renders differ")
	}
	// Outcomes are frozen after the first render.
	agg.SetOutcome(nil, nil)
	third, _ := agg.HTML()
	if !bytes.Equal(first, third) {
		t.Fatalf("render changed after late SetOutcome")
	}
}

func TestRenderShowsEveryStep(t *testing.T) {
	services, results := sampleOutcome()
	b, err := Render(Build(services, results))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(b)
	for _, want := range []string{"search-engine", "doc-api", "already running", "api_connection", "store_document", "backend down", "50.0%"} {
		if !strings.Contains(html, want) {
			t.Fatalf("report missing %q", want)
		}
	}
}

func TestServerServesReportAndSummary(t *testing.T) {
	var agg Aggregator
	services, results := sampleOutcome()
	agg.SetOutcome(services, results)
	srv := NewServer(&agg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Verification Report") {
		t.Fatalf("unexpected report response %d", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/summary")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	var r Report
	if err := json.NewDecoder(resp2.Body).Decode(&r); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if r.Total != 2 || r.Passed != 1 {
		t.Fatalf("unexpected summary %+v", r)
	}
}
