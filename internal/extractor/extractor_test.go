package extractor

import (
	"fmt"
	"strings"
	"testing"
)

type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Warnf(format string, args ...interface{}) {
	m.warnings = append(m.warnings, fmt.Sprintf(format, args...))
}

func mustNew(t *testing.T, path, pattern string, logger Logger) *Extractor {
	t.Helper()
	e, err := New(path, pattern, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestSnippet_JSONPath(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
		want string
	}{
		{"simple", `{"id": 123, "name": "John"}`, "id", "123"},
		{"nested", `{"user": {"profile": {"name": "Alice"}}}`, "user.profile.name", "Alice"},
		{"array", `{"items": [{"id": 1}, {"id": 2}]}`, "items.0.id", "1"},
		{"dollar prefix", `{"id": 456}`, "$.id", "456"},
		{"bare dollar", `{"a":1}`, "$", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustNew(t, tt.path, "", nil)
			if got := e.Snippet([]byte(tt.body)); got != tt.want {
				t.Errorf("Snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnippet_JSONPathMissingWarns(t *testing.T) {
	logger := &mockLogger{}
	e := mustNew(t, "missing", "", logger)

	if got := e.Snippet([]byte(`{"id": 1}`)); got != "" {
		t.Errorf("expected empty snippet, got %q", got)
	}
	if len(logger.warnings) != 1 {
		t.Errorf("expected one warning, got %v", logger.warnings)
	}
}

func TestSnippet_Regex(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		pattern string
		want    string
	}{
		{"capture group", `token=abc123;`, `token=(\w+)`, "abc123"},
		{"full match", `status: ok`, `ok`, "ok"},
		{"no match", `nothing here`, `\d+`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustNew(t, "", tt.pattern, nil)
			if got := e.Snippet([]byte(tt.body)); got != tt.want {
				t.Errorf("Snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_InvalidRegex(t *testing.T) {
	if _, err := New("", "([", nil); err == nil {
		t.Fatal("expected error for invalid regex")
	}
}

func TestNew_JSONPathWinsOverRegex(t *testing.T) {
	e := mustNew(t, "id", "([", nil)
	if got := e.Snippet([]byte(`{"id":"x"}`)); got != "x" {
		t.Errorf("Snippet() = %q, want %q", got, "x")
	}
}

func TestSnippet_FirstLine(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain", "hello", "hello"},
		{"trimmed", "  \n hello world \n", "hello world"},
		{"multi line", "first\nsecond", "first"},
		{"crlf", "first\r\nsecond", "first"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e *Extractor
			if got := e.Snippet([]byte(tt.body)); got != tt.want {
				t.Errorf("Snippet() = %q, want %q", got, tt.want)
			}
			if got := mustNew(t, "", "", nil).Snippet([]byte(tt.body)); got != tt.want {
				t.Errorf("Snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnippet_Truncates(t *testing.T) {
	body := strings.Repeat("é", DefaultMaxRunes+30)
	got := mustNew(t, "", "", nil).Snippet([]byte(body))
	if n := len([]rune(got)); n != DefaultMaxRunes {
		t.Fatalf("expected %d runes, got %d", DefaultMaxRunes, n)
	}

	e := mustNew(t, "", "", nil)
	e.MaxRunes = 5
	if got := e.Snippet([]byte("abcdefgh")); got != "abcde" {
		t.Fatalf("Snippet() = %q, want %q", got, "abcde")
	}
}
