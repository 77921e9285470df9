package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/docstack/veristack/internal/bootstrap"
	"github.com/docstack/veristack/internal/probe"
)

// Report is the immutable summary of one verification run.
type Report struct {
	Services    []bootstrap.ServiceOutcome `json:"services"`
	Results     []probe.Result             `json:"results"`
	Total       int                        `json:"total"`
	Passed      int                        `json:"passed"`
	Failed      int                        `json:"failed"`
	SuccessRate float64                    `json:"success_rate"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// Build computes the summary counters from the raw outcomes.
func Build(services []bootstrap.ServiceOutcome, results []probe.Result) Report {
	r := Report{
		Services:    services,
		Results:     results,
		Total:       len(results),
		GeneratedAt: time.Now().UTC(),
	}
	for _, res := range results {
		if res.Success {
			r.Passed++
		} else {
			r.Failed++
		}
	}
	if r.Total > 0 {
		r.SuccessRate = float64(r.Passed) / float64(r.Total) * 100
	}
	return r
}

// Aggregator holds one run's outcomes and renders the HTML report exactly
// once. Every subsequent HTML call returns the same cached bytes.
type Aggregator struct {
	mu       sync.Mutex
	services []bootstrap.ServiceOutcome
	results  []probe.Result
	built    bool
	report   Report
	html     []byte
}

// SetOutcome records the bootstrap and probe outcomes to report on. Calling
// it after the report has been rendered has no effect.
func (a *Aggregator) SetOutcome(services []bootstrap.ServiceOutcome, results []probe.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return
	}
	a.services = services
	a.results = results
}

// Report returns the built summary, generating it on first access.
func (a *Aggregator) Report() Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.build()
	return a.report
}

// HTML returns the rendered report, generating it on first access.
func (a *Aggregator) HTML() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.build()
	if a.html == nil {
		b, err := Render(a.report)
		if err != nil {
			a.built = false
			return nil, err
		}
		a.html = b
	}
	return a.html, nil
}

func (a *Aggregator) build() {
	if a.built {
		return
	}
	a.report = Build(a.services, a.results)
	a.built = true
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"rate": func(r float64) string { return fmt.Sprintf("%.1f", r) },
	"ms":   func(d time.Duration) string { return fmt.Sprintf("%.1f", float64(d.Microseconds())/1000) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<title>Verification Report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-top: 1em; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
.pass { color: #1a7f37; font-weight: bold; }
.fail { color: #cf222e; font-weight: bold; }
.summary { margin-top: 1em; }
</style>
</head>
<body>
<h1>Verification Report</h1>
<p>Generated at {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}</p>

<h2>Service Bring-up</h2>
<table>
<tr><th>Service</th><th>Status</th><th>Detail</th></tr>
{{range .Services}}<tr>
<td>{{.Name}}</td>
{{if .Ready}}<td class="pass">READY</td>{{else}}<td class="fail">FAILED</td>{{end}}
<td>{{if .AlreadyRunning}}already running{{else if .Err}}{{.Err}}{{else if .Started}}started{{end}}</td>
</tr>{{end}}
</table>

<h2>Probes</h2>
<table>
<tr><th>Probe</th><th>Outcome</th><th>Duration (ms)</th><th>Detail</th></tr>
{{range .Results}}<tr>
<td>{{.Name}}</td>
{{if .Success}}<td class="pass">PASS</td>{{else}}<td class="fail">FAIL</td>{{end}}
<td>{{ms .Duration}}</td>
<td>{{.Message}}</td>
</tr>{{end}}
</table>

<div class="summary">
<p>Total: {{.Total}} &mdash; Passed: {{.Passed}} &mdash; Failed: {{.Failed}}</p>
<p>Success rate: {{rate .SuccessRate}}%</p>
</div>
</body>
</html>
`))

// Render produces the HTML document for r. It is pure: the same report
// renders to byte-identical output.
func Render(r Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}
