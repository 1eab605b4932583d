package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/request"
)

// ProgressPrinter writes one line per outcome as outcomes arrive. Lines are
// written whole, so concurrent callers never interleave.
type ProgressPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	width int
}

// NewProgressPrinter pads sequence numbers to the width of total.
func NewProgressPrinter(w io.Writer, total uint64) *ProgressPrinter {
	if w == nil {
		w = io.Discard
	}
	return &ProgressPrinter{w: w, width: len(strconv.FormatUint(total, 10))}
}

// Observe prints the outcome line.
func (p *ProgressPrinter) Observe(o request.Outcome) {
	line := FormatOutcome(o, p.width)
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, line)
}

// FormatOutcome renders "#seq symbol status_or_error latencyms detail".
func FormatOutcome(o request.Outcome, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%*d %s %s", width, o.Seq, o.Kind.Symbol(), o.StatusOrError())
	if o.Kind == request.KindCancelled {
		return b.String()
	}

	fmt.Fprintf(&b, " %dms", o.Latency.Milliseconds())
	detail := o.Snippet
	if o.Kind == request.KindFailure {
		detail = o.Err
	}
	if detail != "" {
		b.WriteString(" ")
		b.WriteString(detail)
	}
	if o.Attempts > 1 {
		fmt.Fprintf(&b, " (attempts=%d)", o.Attempts)
	}
	return b.String()
}

// ProgressReporter displays a single refreshing status line, used instead
// of per-request lines in quiet mode.
type ProgressReporter struct {
	collector *metrics.Collector
	total     uint64
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, total uint64, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		total:     total,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts progress updates and ends the status line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, statusLine(p.collector.Summarize(), p.total))
		case <-p.done:
			return
		}
	}
}

func statusLine(s metrics.RunSummary, total uint64) string {
	return fmt.Sprintf("\rCompleted: %d/%d | Successes: %d | Failures: %d | Cancelled: %d | RPS: %.1f",
		s.Total, total, s.Successes, s.Failures, s.Cancelled, s.RequestsPerSec)
}
