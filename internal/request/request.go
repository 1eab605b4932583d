// Package request defines the values that flow through a volley run: the
// descriptors produced by the work queue and the outcomes produced by the
// executor.
package request

import (
	"fmt"
	"net/http"
	"time"
)

// Descriptor describes one request to issue. It is immutable once created.
type Descriptor struct {
	Seq     uint64
	Target  string
	Method  string
	Headers map[string]string
	Body    []byte
}

// Header returns the descriptor headers as an http.Header.
func (d Descriptor) Header() http.Header {
	h := make(http.Header, len(d.Headers))
	for k, v := range d.Headers {
		h.Set(k, v)
	}
	return h
}

// Kind is the terminal state of one descriptor.
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Symbol is the glyph used on progress lines.
func (k Kind) Symbol() string {
	switch k {
	case KindSuccess:
		return "✅"
	case KindFailure:
		return "❌"
	default:
		return "⏹"
	}
}

// ErrorKind is the coarse classification of a failed request.
type ErrorKind string

const (
	ErrorTimeout           ErrorKind = "timeout"
	ErrorConnectionRefused ErrorKind = "connection_refused"
	ErrorConnectionReset   ErrorKind = "connection_reset"
	ErrorOther             ErrorKind = "other"
)

// Outcome is the terminal result of one descriptor.
type Outcome struct {
	Seq  uint64
	Kind Kind

	// Success fields.
	StatusCode int
	BodyDigest string
	Snippet    string

	// Failure fields.
	ErrorKind ErrorKind
	Err       string

	Latency       time.Duration
	AdmissionWait time.Duration
	Attempts      int
}

// Success builds a success outcome.
func Success(seq uint64, status int, latency time.Duration, digest, snippet string) Outcome {
	return Outcome{
		Seq:        seq,
		Kind:       KindSuccess,
		StatusCode: status,
		Latency:    latency,
		BodyDigest: digest,
		Snippet:    snippet,
		Attempts:   1,
	}
}

// Failure builds a failure outcome.
func Failure(seq uint64, kind ErrorKind, latency time.Duration, err error) Outcome {
	o := Outcome{
		Seq:       seq,
		Kind:      KindFailure,
		ErrorKind: kind,
		Latency:   latency,
		Attempts:  1,
	}
	if err != nil {
		o.Err = err.Error()
	}
	return o
}

// Cancelled builds the outcome of a descriptor that was never issued.
func Cancelled(seq uint64) Outcome {
	return Outcome{Seq: seq, Kind: KindCancelled}
}

// StatusOrError renders the status code or the error kind for display.
func (o Outcome) StatusOrError() string {
	switch o.Kind {
	case KindSuccess:
		return fmt.Sprintf("%d", o.StatusCode)
	case KindFailure:
		return string(o.ErrorKind)
	default:
		return "cancelled"
	}
}

// LatencyMs returns the latency in fractional milliseconds.
func (o Outcome) LatencyMs() float64 {
	return float64(o.Latency) / float64(time.Millisecond)
}
