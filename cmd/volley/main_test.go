package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/torosent/volley/internal/config"
)

type summaryJSON struct {
	Total     int64 `json:"total"`
	Issued    int64 `json:"issued"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	Cancelled int64 `json:"cancelled"`
	Batches   int64 `json:"batches"`
}

func newCountingServer(t *testing.T) (*httptest.Server, *int64, *sync.Map) {
	t.Helper()
	var hits int64
	var seen sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		seen.Store(r.Header.Get("X-Request-Id"), r.Header.Get("X-App-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","remaining":3}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits, &seen
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--help"}, &stdout, &stderr); err != nil {
		t.Fatalf("run(--help) error = %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("help must not start a run, got %q", stdout.String())
	}
}

func TestRunInvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--target", "ftp://example.com", "--concurrency", "0"}, &stdout, &stderr)

	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Issues()) != 2 {
		t.Errorf("expected 2 issues, got %v", verr.Issues())
	}
}

func TestRunJSONSummary(t *testing.T) {
	srv, hits, seen := newCountingServer(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--target", srv.URL,
		"--total", "10",
		"--concurrency", "5",
		"--inter-batch-delay", "1ms",
		"--format", "json",
		"--log-level", "error",
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var s summaryJSON
	if err := json.Unmarshal(stdout.Bytes(), &s); err != nil {
		t.Fatalf("stdout is not a JSON summary: %v\n%s", err, stdout.String())
	}
	if s.Successes != 10 || s.Failures != 0 || s.Cancelled != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Batches != 2 {
		t.Errorf("expected 2 batches, got %d", s.Batches)
	}
	if atomic.LoadInt64(hits) != 10 {
		t.Errorf("expected 10 hits, got %d", atomic.LoadInt64(hits))
	}

	ids := 0
	seen.Range(func(id, app any) bool {
		ids++
		if app != "volley" {
			t.Errorf("expected X-App-Id volley, got %v", app)
		}
		return true
	})
	if ids != 10 {
		t.Errorf("expected 10 distinct request ids, got %d", ids)
	}

	// progress lines and the banner move to stderr for machine-readable formats
	if !strings.Contains(stderr.String(), "Starting 10 requests") {
		t.Errorf("expected banner on stderr, got %q", stderr.String())
	}
	if strings.Count(stderr.String(), "✅ 200") != 10 {
		t.Errorf("expected 10 progress lines on stderr")
	}
}

func TestRunTextOutput(t *testing.T) {
	srv, _, _ := newCountingServer(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--target", srv.URL,
		"-t", "5",
		"-c", "5",
		"--snippet-path", "status",
		"--log-level", "error",
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "Starting 5 requests with concurrency=5, delay=50ms (batch pacing)") {
		t.Errorf("missing banner in %q", out)
	}
	if strings.Count(out, "✅ 200") != 5 {
		t.Errorf("expected 5 progress lines in %q", out)
	}
	if !strings.Contains(out, "ms ok\n") {
		t.Errorf("expected extracted snippet on progress lines in %q", out)
	}
	if !strings.Contains(out, "--- Run Summary ---") {
		t.Errorf("missing summary in %q", out)
	}
}

func TestRunQuietSuppressesLines(t *testing.T) {
	srv, _, _ := newCountingServer(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--target", srv.URL, "-t", "3", "-q", "--log-level", "error"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if strings.Contains(stdout.String(), "✅") {
		t.Errorf("quiet mode should not print progress lines: %q", stdout.String())
	}
}

func TestRunZeroTotal(t *testing.T) {
	srv, hits, _ := newCountingServer(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--target", srv.URL, "-t", "0", "--format", "json", "--log-level", "error"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var s summaryJSON
	if err := json.Unmarshal(stdout.Bytes(), &s); err != nil {
		t.Fatalf("invalid summary: %v", err)
	}
	if s.Total != 0 || s.Issued != 0 {
		t.Errorf("expected empty summary, got %+v", s)
	}
	if atomic.LoadInt64(hits) != 0 {
		t.Errorf("expected no requests, got %d", atomic.LoadInt64(hits))
	}
}

func TestRunCancelled(t *testing.T) {
	srv, _, _ := newCountingServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	err := run(ctx, []string{"--target", srv.URL, "-t", "20", "-c", "2", "--format", "json", "--log-level", "error"}, &stdout, &stderr)
	if !errors.Is(err, ErrRunCancelled) {
		t.Fatalf("expected ErrRunCancelled, got %v", err)
	}

	var s summaryJSON
	if err := json.Unmarshal(stdout.Bytes(), &s); err != nil {
		t.Fatalf("summary must still be printed: %v", err)
	}
	if s.Total != 20 || s.Cancelled == 0 {
		t.Errorf("expected every descriptor accounted for with cancellations, got %+v", s)
	}
}

func TestRunRefusedFailsThresholds(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--target", target,
		"-t", "4",
		"-c", "4",
		"--format", "json",
		"--threshold", "failures:count < 1",
		"--log-level", "error",
	}, &stdout, &stderr)
	if !errors.Is(err, ErrThresholdsFailed) {
		t.Fatalf("expected ErrThresholdsFailed, got %v", err)
	}

	var s summaryJSON
	if err := json.Unmarshal(stdout.Bytes(), &s); err != nil {
		t.Fatalf("invalid summary: %v", err)
	}
	if s.Failures != 4 || s.Successes != 0 {
		t.Errorf("expected 4 failures, got %+v", s)
	}
	if !strings.Contains(stderr.String(), "0/1 passed") {
		t.Errorf("expected threshold results on stderr, got %q", stderr.String())
	}
}

func TestRunWritesReports(t *testing.T) {
	srv, _, _ := newCountingServer(t)
	dir := t.TempDir()
	summaryPath := filepath.Join(dir, "summary.yaml")
	htmlPath := filepath.Join(dir, "report.html")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--target", srv.URL,
		"-t", "3",
		"-q",
		"--summary-file", summaryPath,
		"--html-output", htmlPath,
		"--log-level", "error",
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	data, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("summary file: %v", err)
	}
	if !strings.Contains(string(data), "successes: 3") {
		t.Errorf("unexpected YAML summary:\n%s", data)
	}

	html, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("html report: %v", err)
	}
	if !strings.Contains(string(html), "Volley Run Report") {
		t.Error("html report missing title")
	}
}

func TestRunPushesMetrics(t *testing.T) {
	srv, _, _ := newCountingServer(t)

	var pushed atomic.Value
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--target", srv.URL,
		"-t", "2",
		"-q",
		"--push-gateway", gateway.URL,
		"--push-job", "ratelimit",
		"--log-level", "error",
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	path, _ := pushed.Load().(string)
	if !strings.HasPrefix(path, "/metrics/job/ratelimit/run_id/") {
		t.Errorf("unexpected push path %q", path)
	}
}

func TestRunSendsOAuth2Token(t *testing.T) {
	var tokenHits int64
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&tokenHits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"run-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer idp.Close()

	var mu sync.Mutex
	var authHeaders []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		mu.Unlock()
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--target", srv.URL,
		"-t", "6",
		"-c", "3",
		"-q",
		"--auth-type", "oauth2_client_credentials",
		"--auth-token-url", idp.URL,
		"--auth-client-id", "volley",
		"--auth-client-secret", "secret",
		"--log-level", "error",
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if got := atomic.LoadInt64(&tokenHits); got != 1 {
		t.Errorf("token endpoint hit %d times, want 1", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(authHeaders) != 6 {
		t.Fatalf("target saw %d requests, want 6", len(authHeaders))
	}
	for _, h := range authHeaders {
		if h != "Bearer run-token" {
			t.Errorf("Authorization = %q, want Bearer run-token", h)
		}
	}
}
