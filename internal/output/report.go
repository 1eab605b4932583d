package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/threshold"
)

// Supported summary formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// RunInfo describes the run configuration for banners and reports.
type RunInfo struct {
	Target      string
	Method      string
	Total       uint64
	Concurrency int
	Delay       time.Duration
	Pacing      string
	PaceFrom    string
}

// PrintBanner announces the run before the first request.
func PrintBanner(w io.Writer, info RunInfo) {
	fmt.Fprintf(w, "Starting %d requests with concurrency=%d, delay=%s (%s pacing) against %s %s\n",
		info.Total, info.Concurrency, info.Delay, info.Pacing, strings.ToUpper(info.Method), info.Target)
}

// WriteReport renders the summary in the requested format.
func WriteReport(w io.Writer, format string, s metrics.RunSummary) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		PrintReport(w, s)
		return nil
	case FormatJSON:
		return PrintJSONReport(w, s)
	case FormatYAML:
		return PrintYAMLReport(w, s)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, s metrics.RunSummary) {
	fmt.Fprintln(w, "\n--- Run Summary ---")
	fmt.Fprintf(w, "Run ID:            %s\n", s.RunID)
	fmt.Fprintf(w, "Total:             %d\n", s.Total)
	fmt.Fprintf(w, "Issued:            %d\n", s.Issued)
	fmt.Fprintf(w, "Successful:        %d\n", s.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", s.Failures)
	fmt.Fprintf(w, "Cancelled:         %d\n", s.Cancelled)
	fmt.Fprintf(w, "Batches:           %d\n", s.Batches)
	fmt.Fprintf(w, "Duration:          %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", s.RequestsPerSec)

	if s.Issued > 0 {
		fmt.Fprintln(w, "\nLatency:")
		fmt.Fprintf(w, "  Min:             %s\n", s.MinLatency)
		fmt.Fprintf(w, "  Max:             %s\n", s.MaxLatency)
		fmt.Fprintf(w, "  Mean:            %s\n", s.MeanLatency)
		fmt.Fprintf(w, "  P50:             %s\n", s.P50Latency)
		fmt.Fprintf(w, "  P90:             %s\n", s.P90Latency)
		fmt.Fprintf(w, "  P95:             %s\n", s.P95Latency)
		fmt.Fprintf(w, "  P99:             %s\n", s.P99Latency)
		fmt.Fprintln(w, "\nAdmission wait:")
		fmt.Fprintf(w, "  P50:             %s\n", s.AdmissionWaitP50)
		fmt.Fprintf(w, "  P99:             %s\n", s.AdmissionWaitP99)
	}

	if rows := metrics.StatusRows(s.StatusCodes); len(rows) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		writeRows(w, rows, "  ")
	}
	if rows := metrics.FailureRows(s.FailuresByKind); len(rows) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		writeRows(w, rows, "  ")
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, s metrics.RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, s metrics.RunSummary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// PrintThresholdResults lists every threshold outcome and a pass/fail tally.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	passed := 0
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		if r.Pass {
			passed++
		}
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
	fmt.Fprintf(w, "  %d/%d passed\n", passed, len(results))
}

func writeRows(w io.Writer, rows []metrics.CountRow, indent string) {
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s: %d\n", indent, row.Label, row.Count)
	}
}
