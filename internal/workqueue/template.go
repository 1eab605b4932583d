package workqueue

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/volley/internal/feeder"
	"github.com/torosent/volley/internal/request"
)

const headerColumnPrefix = "header."

// Template is the blueprint every descriptor is built from.
type Template struct {
	Target  string
	Method  string
	Headers map[string]string
	Body    []byte

	// RequestIDHeader, when set, receives a fresh ULID per descriptor.
	RequestIDHeader string

	// Dataset, when set, parameterizes descriptor seq with record (seq-1) in
	// round-robin order. Reserved columns: target/url, method, header.<Name>.
	Dataset feeder.Dataset
}

// Build renders the descriptor for a sequence number.
func (t Template) Build(seq uint64) request.Descriptor {
	builtins := feeder.Record{"seq": strconv.FormatUint(seq, 10)}
	if t.RequestIDHeader != "" {
		builtins["request_id"] = ulid.Make().String()
	}

	var record feeder.Record
	if t.Dataset != nil && t.Dataset.Len() > 0 {
		record = t.Dataset.At(seq - 1)
	}

	target := t.Target
	method := t.Method
	headers := make(map[string]string, len(t.Headers)+2)
	for k, v := range t.Headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}

	for key, value := range record {
		switch {
		case key == "target" || key == "url":
			if strings.TrimSpace(value) != "" {
				target = value
			}
		case key == "method":
			if strings.TrimSpace(value) != "" {
				method = value
			}
		case strings.HasPrefix(key, headerColumnPrefix):
			name := strings.TrimSpace(strings.TrimPrefix(key, headerColumnPrefix))
			if name != "" {
				headers[http.CanonicalHeaderKey(name)] = value
			}
		}
	}

	for k, v := range headers {
		headers[k] = feeder.SubstitutePlaceholders(v, record, builtins)
	}
	if t.RequestIDHeader != "" {
		headers[http.CanonicalHeaderKey(t.RequestIDHeader)] = builtins["request_id"]
	}

	if method == "" {
		method = http.MethodGet
	}

	var body []byte
	if len(t.Body) > 0 {
		body = []byte(feeder.SubstitutePlaceholders(string(t.Body), record, builtins))
	}

	return request.Descriptor{
		Seq:     seq,
		Target:  feeder.SubstitutePlaceholders(target, record, builtins),
		Method:  strings.ToUpper(method),
		Headers: headers,
		Body:    body,
	}
}
