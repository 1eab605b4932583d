package metrics

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/torosent/volley/internal/request"
)

// Collector aggregates outcomes in a thread-safe manner. Record may be
// called from any number of goroutines.
type Collector struct {
	runID string
	stats *shardedStats
	now   func() time.Time

	mu      sync.Mutex
	start   time.Time
	finish  time.Time
	last    time.Time
	batches uint64
}

func NewCollector() *Collector {
	return &Collector{
		runID: uuid.NewString(),
		stats: newShardedStats(),
		now:   time.Now,
	}
}

// RunID identifies this run in summaries and exported metrics.
func (c *Collector) RunID() string { return c.runID }

// Start marks the beginning of the run. Only the first call has effect.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.start.IsZero() {
		c.start = c.now()
	}
}

// Finish freezes the run duration. Only the first call has effect.
func (c *Collector) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finish.IsZero() {
		c.finish = c.now()
		if c.start.IsZero() {
			c.start = c.finish
		}
	}
}

// SetBatches stores the number of admission epochs that were opened.
func (c *Collector) SetBatches(n uint64) {
	c.mu.Lock()
	c.batches = n
	c.mu.Unlock()
}

// Record folds one outcome into the aggregate.
func (c *Collector) Record(o request.Outcome) {
	c.stats.record(o)

	c.mu.Lock()
	if now := c.now(); now.After(c.last) {
		c.last = now
	}
	c.mu.Unlock()
}

// Summarize returns the current aggregate. It does not reset anything, and
// two calls with no Record in between return the same summary: before
// Finish, the duration runs up to the latest recorded outcome.
func (c *Collector) Summarize() RunSummary {
	c.mu.Lock()
	start, end, batches := c.start, c.finish, c.batches
	if end.IsZero() {
		end = c.last
	}
	c.mu.Unlock()

	agg := c.stats.merge()

	s := RunSummary{
		RunID:     c.runID,
		Issued:    agg.successes + agg.failures,
		Successes: agg.successes,
		Failures:  agg.failures,
		Cancelled: agg.cancelled,
		Batches:   batches,
	}
	s.Total = s.Issued + s.Cancelled

	if s.Issued > 0 {
		s.MinLatency = agg.minLatency
		s.MaxLatency = agg.maxLatency
		s.MeanLatency = time.Duration(int64(agg.sumLatency) / s.Issued)
		s.P50Latency = quantile(agg.latency.ValueAtQuantile(50))
		s.P90Latency = quantile(agg.latency.ValueAtQuantile(90))
		s.P95Latency = quantile(agg.latency.ValueAtQuantile(95))
		s.P99Latency = quantile(agg.latency.ValueAtQuantile(99))
		s.AdmissionWaitP50 = quantile(agg.admissionWait.ValueAtQuantile(50))
		s.AdmissionWaitP99 = quantile(agg.admissionWait.ValueAtQuantile(99))
	}

	if len(agg.failureKinds) > 0 {
		s.FailuresByKind = make(map[string]int64, len(agg.failureKinds))
		for k, v := range agg.failureKinds {
			s.FailuresByKind[string(k)] = v
		}
	}
	if len(agg.statusCodes) > 0 {
		s.StatusCodes = agg.statusCodes
	}

	if !start.IsZero() && end.After(start) {
		s.Duration = end.Sub(start)
	}
	if s.Duration > 0 && s.Issued > 0 {
		s.RequestsPerSec = float64(s.Issued) / s.Duration.Seconds()
	}

	s.fillMillis()
	return s
}

func quantile(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
