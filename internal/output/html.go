package output

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Summary          metrics.RunSummary
	Info             RunInfo
	StatusRows       []metrics.CountRow
	FailureRows      []metrics.CountRow
	ThresholdResults []threshold.Result
	ThresholdsPassed int
}

// GenerateHTMLReport writes a standalone HTML report of the run.
func GenerateHTMLReport(w io.Writer, s metrics.RunSummary, results []threshold.Result, info RunInfo) error {
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}

	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Summary:          s,
		Info:             info,
		StatusRows:       metrics.StatusRows(s.StatusCodes),
		FailureRows:      metrics.FailureRows(s.FailuresByKind),
		ThresholdResults: results,
		ThresholdsPassed: passed,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.Round(time.Microsecond).String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(part, total int64) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Volley Run Report</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background: #f5f7fa; color: #2c3e50; margin: 0; padding: 20px; }
        .container { max-width: 1100px; margin: 0 auto; background: white; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); overflow: hidden; }
        header { background: #1f2937; color: white; padding: 24px 32px; }
        header h1 { margin: 0 0 8px; font-size: 1.8rem; }
        header .meta { opacity: 0.85; font-size: 0.9rem; }
        .content { padding: 32px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 16px; margin-bottom: 32px; }
        .card { background: #f8f9fa; border-radius: 8px; padding: 16px; border-left: 4px solid #3b82f6; }
        .card h3 { margin: 0 0 8px; font-size: 0.8rem; color: #6c757d; text-transform: uppercase; }
        .card .value { font-size: 1.8rem; font-weight: bold; }
        .card .subvalue { font-size: 0.85rem; color: #6c757d; }
        .card.success { border-left-color: #10b981; }
        .card.error { border-left-color: #ef4444; }
        .card.warning { border-left-color: #f59e0b; }
        .section { margin-bottom: 32px; }
        .section h2 { font-size: 1.3rem; border-bottom: 2px solid #e5e7eb; padding-bottom: 8px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 10px; border-bottom: 1px solid #e5e7eb; }
        th { background: #f8f9fa; font-size: 0.85rem; text-transform: uppercase; color: #4b5563; }
        .badge { display: inline-block; padding: 2px 10px; border-radius: 10px; font-size: 0.85rem; font-weight: 600; }
        .badge-success { background: #d1fae5; color: #065f46; }
        .badge-error { background: #fee2e2; color: #991b1b; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Volley Run Report</h1>
            {{if .Info.Target}}<div class="meta">Target: {{.Info.Method}} {{.Info.Target}}</div>{{end}}
            <div class="meta">Run {{.Summary.RunID}} | Generated: {{.GeneratedAt}} | Duration: {{formatDuration .Summary.Duration}}</div>
            <div class="meta">Concurrency {{.Info.Concurrency}} | Delay {{.Info.Delay}} | {{.Info.Pacing}} pacing</div>
        </header>
        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>Total</h3>
                    <div class="value">{{.Summary.Total}}</div>
                    <div class="subvalue">{{.Summary.Batches}} batches</div>
                </div>
                <div class="card success">
                    <h3>Successful</h3>
                    <div class="value">{{.Summary.Successes}}</div>
                    <div class="subvalue">{{formatPercent .Summary.Successes .Summary.Total}}%</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Summary.Failures}}</div>
                    <div class="subvalue">{{formatPercent .Summary.Failures .Summary.Total}}%</div>
                </div>
                <div class="card warning">
                    <h3>Cancelled</h3>
                    <div class="value">{{.Summary.Cancelled}}</div>
                </div>
                <div class="card">
                    <h3>Requests/sec</h3>
                    <div class="value">{{formatFloat .Summary.RequestsPerSec}}</div>
                </div>
            </div>

            <div class="section">
                <h2>Latency</h2>
                <table>
                    <tr><th>Min</th><th>Mean</th><th>P50</th><th>P90</th><th>P95</th><th>P99</th><th>Max</th></tr>
                    <tr>
                        <td>{{formatDuration .Summary.MinLatency}}</td>
                        <td>{{formatDuration .Summary.MeanLatency}}</td>
                        <td>{{formatDuration .Summary.P50Latency}}</td>
                        <td>{{formatDuration .Summary.P90Latency}}</td>
                        <td>{{formatDuration .Summary.P95Latency}}</td>
                        <td>{{formatDuration .Summary.P99Latency}}</td>
                        <td>{{formatDuration .Summary.MaxLatency}}</td>
                    </tr>
                </table>
                <p>Admission wait: p50 {{formatDuration .Summary.AdmissionWaitP50}}, p99 {{formatDuration .Summary.AdmissionWaitP99}}</p>
            </div>

            {{if .StatusRows}}
            <div class="section">
                <h2>Status Codes</h2>
                <table>
                    <tr><th>Status</th><th>Count</th></tr>
                    {{range .StatusRows}}<tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>{{end}}
                </table>
            </div>
            {{end}}

            {{if .FailureRows}}
            <div class="section">
                <h2>Failures</h2>
                <table>
                    <tr><th>Kind</th><th>Count</th></tr>
                    {{range .FailureRows}}<tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>{{end}}
                </table>
            </div>
            {{end}}

            {{if .ThresholdResults}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdsPassed}}/{{len .ThresholdResults}} passed)</h2>
                <table>
                    <tr><th>Threshold</th><th>Actual</th><th>Status</th></tr>
                    {{range .ThresholdResults}}
                    <tr>
                        <td>{{.Threshold.Raw}}</td>
                        <td>{{formatFloat .Actual}}</td>
                        <td>{{if .Pass}}<span class="badge badge-success">PASS</span>{{else}}<span class="badge badge-error">FAIL</span>{{end}}</td>
                    </tr>
                    {{end}}
                </table>
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`
