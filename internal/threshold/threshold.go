// Package threshold evaluates pass/fail assertions against a run summary,
// e.g. "latency:p95 < 250" or "failures:rate <= 0.01".
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/torosent/volley/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "latency", "failures"
	Aggregate string  // e.g., "p95", "avg", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // compared against the extracted value
	Raw       string  // original string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

type extractor func(s metrics.RunSummary) float64

// Latencies are compared in milliseconds, rates as fractions or per second.
var extractors = map[string]map[string]extractor{
	"latency": {
		"p50": func(s metrics.RunSummary) float64 { return metrics.Millis(s.P50Latency) },
		"p90": func(s metrics.RunSummary) float64 { return metrics.Millis(s.P90Latency) },
		"p95": func(s metrics.RunSummary) float64 { return metrics.Millis(s.P95Latency) },
		"p99": func(s metrics.RunSummary) float64 { return metrics.Millis(s.P99Latency) },
		"avg": func(s metrics.RunSummary) float64 { return metrics.Millis(s.MeanLatency) },
		"min": func(s metrics.RunSummary) float64 { return metrics.Millis(s.MinLatency) },
		"max": func(s metrics.RunSummary) float64 { return metrics.Millis(s.MaxLatency) },
	},
	"admission_wait": {
		"p50": func(s metrics.RunSummary) float64 { return metrics.Millis(s.AdmissionWaitP50) },
		"p99": func(s metrics.RunSummary) float64 { return metrics.Millis(s.AdmissionWaitP99) },
	},
	"failures": {
		"count": func(s metrics.RunSummary) float64 { return float64(s.Failures) },
		"rate": func(s metrics.RunSummary) float64 {
			if s.Issued == 0 {
				return 0
			}
			return float64(s.Failures) / float64(s.Issued)
		},
	},
	"requests": {
		"count": func(s metrics.RunSummary) float64 { return float64(s.Issued) },
		"rate":  func(s metrics.RunSummary) float64 { return s.RequestsPerSec },
	},
	"cancelled": {
		"count": func(s metrics.RunSummary) float64 { return float64(s.Cancelled) },
	},
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

var operators = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true}

// Evaluator evaluates thresholds against a run summary.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against the summary.
func (e *Evaluator) Evaluate(s metrics.RunSummary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, s))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, s metrics.RunSummary) Result {
	actual, err := extractMetricValue(t, s)
	if err != nil {
		return Result{Threshold: t, Message: fmt.Sprintf("error: %v", err)}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses "metric:aggregate operator value". Supported metrics:
//   - latency:{p50,p90,p95,p99,avg,min,max} in ms
//   - admission_wait:{p50,p99} in ms
//   - failures:{count,rate}
//   - requests:{count,rate}
//   - cancelled:count
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'latency:p95 < 500')", s)
	}
	metric, aggregate, operator, valueStr := matches[1], matches[2], matches[3], matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	aggregates, ok := extractors[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(sortedKeys(extractors), ", "))
	}
	if _, ok := aggregates[aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(sortedKeys(aggregates), ", "))
	}
	if !operators[operator] {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings, reporting every bad one.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}
	return result, nil
}

func extractMetricValue(t Threshold, s metrics.RunSummary) (float64, error) {
	aggregates, ok := extractors[t.Metric]
	if !ok {
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
	fn, ok := aggregates[t.Aggregate]
	if !ok {
		return 0, fmt.Errorf("unsupported aggregate %q for %s", t.Aggregate, t.Metric)
	}
	return fn(s), nil
}

func compareValues(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
