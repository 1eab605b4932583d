package metrics

import "time"

// RunSummary is the aggregate of a run. The time.Duration fields are
// authoritative; the Ms mirrors exist for JSON and YAML and are filled by
// Collector.Summarize.
type RunSummary struct {
	RunID string `json:"run_id" yaml:"run_id"`

	// Total counts every outcome; Issued excludes cancelled descriptors.
	Total          int64            `json:"total" yaml:"total"`
	Issued         int64            `json:"issued" yaml:"issued"`
	Successes      int64            `json:"successes" yaml:"successes"`
	Failures       int64            `json:"failures" yaml:"failures"`
	Cancelled      int64            `json:"cancelled" yaml:"cancelled"`
	FailuresByKind map[string]int64 `json:"failures_by_kind,omitempty" yaml:"failures_by_kind,omitempty"`
	StatusCodes    map[int]int64    `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
	Batches        uint64           `json:"batches" yaml:"batches"`
	RequestsPerSec float64          `json:"requests_per_sec" yaml:"requests_per_sec"`

	MinLatency       time.Duration `json:"-" yaml:"-"`
	MaxLatency       time.Duration `json:"-" yaml:"-"`
	MeanLatency      time.Duration `json:"-" yaml:"-"`
	P50Latency       time.Duration `json:"-" yaml:"-"`
	P90Latency       time.Duration `json:"-" yaml:"-"`
	P95Latency       time.Duration `json:"-" yaml:"-"`
	P99Latency       time.Duration `json:"-" yaml:"-"`
	AdmissionWaitP50 time.Duration `json:"-" yaml:"-"`
	AdmissionWaitP99 time.Duration `json:"-" yaml:"-"`
	Duration         time.Duration `json:"-" yaml:"-"`

	MinLatencyMs       float64 `json:"min_latency_ms" yaml:"min_latency_ms"`
	MaxLatencyMs       float64 `json:"max_latency_ms" yaml:"max_latency_ms"`
	MeanLatencyMs      float64 `json:"mean_latency_ms" yaml:"mean_latency_ms"`
	P50LatencyMs       float64 `json:"p50_latency_ms" yaml:"p50_latency_ms"`
	P90LatencyMs       float64 `json:"p90_latency_ms" yaml:"p90_latency_ms"`
	P95LatencyMs       float64 `json:"p95_latency_ms" yaml:"p95_latency_ms"`
	P99LatencyMs       float64 `json:"p99_latency_ms" yaml:"p99_latency_ms"`
	AdmissionWaitP50Ms float64 `json:"admission_wait_p50_ms" yaml:"admission_wait_p50_ms"`
	AdmissionWaitP99Ms float64 `json:"admission_wait_p99_ms" yaml:"admission_wait_p99_ms"`
	DurationMs         float64 `json:"duration_ms" yaml:"duration_ms"`
}

// SuccessRate is successes over issued requests, 0 when nothing was issued.
func (s RunSummary) SuccessRate() float64 {
	if s.Issued == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Issued)
}

// Millis converts d to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func (s *RunSummary) fillMillis() {
	s.MinLatencyMs = Millis(s.MinLatency)
	s.MaxLatencyMs = Millis(s.MaxLatency)
	s.MeanLatencyMs = Millis(s.MeanLatency)
	s.P50LatencyMs = Millis(s.P50Latency)
	s.P90LatencyMs = Millis(s.P90Latency)
	s.P95LatencyMs = Millis(s.P95Latency)
	s.P99LatencyMs = Millis(s.P99Latency)
	s.AdmissionWaitP50Ms = Millis(s.AdmissionWaitP50)
	s.AdmissionWaitP99Ms = Millis(s.AdmissionWaitP99)
	s.DurationMs = Millis(s.Duration)
}
