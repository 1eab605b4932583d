package metrics

import (
	"reflect"
	"testing"
)

func TestStatusRows(t *testing.T) {
	tests := []struct {
		name  string
		codes map[int]int64
		want  []CountRow
	}{
		{"nil", nil, nil},
		{"empty", map[int]int64{}, nil},
		{"single", map[int]int64{200: 10}, []CountRow{{Label: "200", Count: 10}}},
		{
			name:  "sorted by count desc then code",
			codes: map[int]int64{200: 10, 429: 5, 500: 5, 503: 1},
			want: []CountRow{
				{Label: "200", Count: 10},
				{Label: "429", Count: 5},
				{Label: "500", Count: 5},
				{Label: "503", Count: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusRows(tt.codes); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StatusRows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailureRows(t *testing.T) {
	got := FailureRows(map[string]int64{"timeout": 2, "connection_refused": 7})
	want := []CountRow{
		{Label: "Connection refused", Count: 7},
		{Label: "Timeout", Count: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FailureRows() = %v, want %v", got, want)
	}
}

func TestFailureLabel(t *testing.T) {
	tests := map[string]string{
		"timeout":            "Timeout",
		"connection_reset":   "Connection reset",
		"other":              "Other error",
		"":                   "Unknown error",
		"tls_HANDSHAKE-fail": "Tls handshake fail",
		"___":                "Unknown error",
	}
	for in, want := range tests {
		if got := FailureLabel(in); got != want {
			t.Errorf("FailureLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
