package output

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/request"
)

func TestFormatOutcome(t *testing.T) {
	tests := []struct {
		name    string
		outcome request.Outcome
		width   int
		want    string
	}{
		{
			name:    "success with snippet",
			outcome: request.Success(7, 200, 42*time.Millisecond, "", "ok: allowed"),
			width:   3,
			want:    "#  7 ✅ 200 42ms ok: allowed",
		},
		{
			name:    "success without snippet",
			outcome: request.Success(100, 429, 3*time.Millisecond, "", ""),
			width:   3,
			want:    "#100 ✅ 429 3ms",
		},
		{
			name:    "failure shows error",
			outcome: request.Failure(2, request.ErrorConnectionRefused, time.Millisecond, errors.New("dial tcp: refused")),
			width:   1,
			want:    "#2 ❌ connection_refused 1ms dial tcp: refused",
		},
		{
			name:    "cancelled",
			outcome: request.Cancelled(12),
			width:   2,
			want:    "#12 ⏹ cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatOutcome(tt.outcome, tt.width); got != tt.want {
				t.Errorf("FormatOutcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatOutcomeAttempts(t *testing.T) {
	o := request.Success(1, 200, time.Millisecond, "", "")
	o.Attempts = 3
	if got := FormatOutcome(o, 1); !strings.HasSuffix(got, "(attempts=3)") {
		t.Errorf("expected attempts suffix, got %q", got)
	}
}

func TestProgressPrinterConcurrentLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressPrinter(&buf, 100)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			p.Observe(request.Success(seq, 200, time.Millisecond, "", "body"))
		}(uint64(i))
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 100 {
		t.Fatalf("expected 100 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "#") || !strings.HasSuffix(line, "body") {
			t.Errorf("malformed line %q", line)
		}
	}
}

func TestProgressReporterFormatting(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Start()
	collector.Record(request.Success(1, 200, 50*time.Millisecond, "", ""))
	collector.Record(request.Failure(2, request.ErrorTimeout, 50*time.Millisecond, nil))

	var buf syncBuffer
	reporter := NewProgressReporter(collector, 10, 20*time.Millisecond, &buf)
	reporter.Start()
	reporter.Start()
	time.Sleep(60 * time.Millisecond)
	reporter.Stop()
	reporter.Stop()

	out := buf.String()
	if !strings.Contains(out, "Completed: 2/10") {
		t.Errorf("expected completion counter in %q", out)
	}
	if !strings.Contains(out, "Failures: 1") {
		t.Errorf("expected failure count in %q", out)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
