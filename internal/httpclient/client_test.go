package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/volley/internal/request"
)

func TestNewRequestWithHeadersAndBody(t *testing.T) {
	d := request.Descriptor{
		Seq:    1,
		Method: "post",
		Target: "http://example.com/api",
		Headers: map[string]string{
			"content-type": "application/json",
			"X-App-ID":     "volley",
		},
		Body: []byte(`{"hello":"world"}`),
	}

	req, err := NewRequest(context.Background(), d)
	if err != nil {
		t.Fatalf("expected request, got error: %v", err)
	}

	if req.Method != http.MethodPost {
		t.Fatalf("expected method POST, got %s", req.Method)
	}
	if req.URL.String() != d.Target {
		t.Fatalf("expected URL %s, got %s", d.Target, req.URL.String())
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected canonical Content-Type header, got %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get("X-App-Id") != "volley" {
		t.Fatalf("expected X-App-Id header, got %q", req.Header.Get("X-App-Id"))
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	if string(bodyBytes) != string(d.Body) {
		t.Fatalf("expected body %q, got %q", d.Body, bodyBytes)
	}
	if req.ContentLength != int64(len(d.Body)) {
		t.Fatalf("expected content length %d, got %d", len(d.Body), req.ContentLength)
	}

	if req.GetBody == nil {
		t.Fatalf("expected request to support body replay")
	}
	replay, err := req.GetBody()
	if err != nil {
		t.Fatalf("expected replay body, got error: %v", err)
	}
	replayBytes, _ := io.ReadAll(replay)
	if string(replayBytes) != string(d.Body) {
		t.Fatalf("expected replay body %q, got %q", d.Body, replayBytes)
	}
}

func TestNewRequestMethodFallbackAndVerbs(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"", http.MethodGet},
		{"  ", http.MethodGet},
		{"delete", http.MethodDelete},
		{"Patch", http.MethodPatch},
		{"HEAD", http.MethodHead},
	}

	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.method, func(t *testing.T) {
			req, err := NewRequest(context.Background(), request.Descriptor{Target: "http://example.com", Method: tt.method})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Method != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, req.Method)
			}
			if req.Body != http.NoBody {
				t.Fatalf("expected empty body")
			}
		})
	}
}

func TestNewRequestRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		d    request.Descriptor
	}{
		{"missing target", request.Descriptor{}},
		{"empty header key", request.Descriptor{Target: "http://example.com", Headers: map[string]string{" ": "x"}}},
		{"newline in key", request.Descriptor{Target: "http://example.com", Headers: map[string]string{"X-Bad\nKey": "x"}}},
		{"newline in value", request.Descriptor{Target: "http://example.com", Headers: map[string]string{"X-Ok": "a\r\nb"}}},
		{"bad url", request.Descriptor{Target: "http://[::1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRequest(context.Background(), tt.d); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewRequestAllowsLongAndEmptyHeaderValues(t *testing.T) {
	long := strings.Repeat("a", 8192)
	req, err := NewRequest(context.Background(), request.Descriptor{
		Target:  "http://example.com",
		Headers: map[string]string{"X-Long": long, "X-Empty": ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Header.Get("X-Long") != long {
		t.Fatal("expected long header value to be kept")
	}
	if _, ok := req.Header["X-Empty"]; !ok {
		t.Fatal("expected empty header to be present")
	}
}

func TestLoadBody(t *testing.T) {
	t.Run("both set", func(t *testing.T) {
		if _, err := LoadBody("inline", "file.txt"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("inline", func(t *testing.T) {
		got, err := LoadBody("hello", "")
		if err != nil || string(got) != "hello" {
			t.Fatalf("LoadBody() = %q, %v", got, err)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "body.txt")
		if err := os.WriteFile(path, []byte("file content"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		got, err := LoadBody("", path)
		if err != nil || string(got) != "file content" {
			t.Fatalf("LoadBody() = %q, %v", got, err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadBody("", "/nonexistent/file"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("directory", func(t *testing.T) {
		if _, err := LoadBody("", t.TempDir()); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty", func(t *testing.T) {
		got, err := LoadBody("", "  ")
		if err != nil || got != nil {
			t.Fatalf("LoadBody() = %q, %v", got, err)
		}
	})
}

func TestClientTimeoutApplied(t *testing.T) {
	timeout := 50 * time.Millisecond
	client := NewClient(timeout)
	defer client.CloseIdleConnections()

	if client.Timeout != timeout {
		t.Fatalf("expected client timeout %s, got %s", timeout, client.Timeout)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(timeout * 3)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := NewRequest(context.Background(), request.Descriptor{Target: server.URL})
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}

	elapsed := time.Since(start)
	if elapsed < timeout {
		t.Fatalf("request returned too quickly: %s < %s", elapsed, timeout)
	}
	if elapsed > timeout*5 {
		t.Fatalf("request took too long: %s", elapsed)
	}

	if !errors.Is(err, context.DeadlineExceeded) {
		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() {
			t.Fatalf("expected timeout error, got %v", err)
		}
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxIdleConns == 0 || transport.IdleConnTimeout == 0 {
		t.Fatalf("expected transport to keep idle connections")
	}
}

func TestNewClientNegativeTimeout(t *testing.T) {
	if c := NewClient(-time.Second); c.Timeout != 0 {
		t.Fatalf("expected timeout clamped to 0, got %s", c.Timeout)
	}
}
