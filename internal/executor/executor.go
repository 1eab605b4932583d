// Package executor issues a single HTTP request for a descriptor and turns
// whatever happens into an outcome. It never returns errors: every transport
// problem becomes a Failure outcome.
package executor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/volley/internal/auth"
	"github.com/torosent/volley/internal/extractor"
	"github.com/torosent/volley/internal/httpclient"
	"github.com/torosent/volley/internal/request"
	"github.com/torosent/volley/internal/tracing"
)

const maxBodyReadSize = 1024 * 1024

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures an Executor.
type Options struct {
	// Client sends requests. When nil a client with Timeout is created.
	Client  Doer
	Timeout time.Duration

	Snippet *extractor.Extractor
	Retry   RetryPolicy

	// Auth, when set, adds an Authorization header to every attempt.
	Auth auth.Provider

	// Tracer, when set, wraps every descriptor in a client span.
	Tracer    trace.Tracer
	Propagate bool

	Logger    *zap.Logger
	LogErrors bool
}

// Executor turns descriptors into outcomes.
type Executor struct {
	client    Doer
	snippet   *extractor.Extractor
	retry     RetryPolicy
	auth      auth.Provider
	tracer    trace.Tracer
	propagate bool
	logger    *zap.Logger
	logErrors bool
}

// New builds an Executor from opts.
func New(opts Options) *Executor {
	client := opts.Client
	if client == nil {
		client = httpclient.NewClient(opts.Timeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		client:    client,
		snippet:   opts.Snippet,
		retry:     opts.Retry.normalize(),
		auth:      opts.Auth,
		tracer:    opts.Tracer,
		propagate: opts.Propagate,
		logger:    logger,
		logErrors: opts.LogErrors,
	}
}

// Execute issues d and returns its outcome. Cancelling ctx stops further
// retries but does not abort a request already on the wire; the client
// timeout bounds it instead.
func (e *Executor) Execute(ctx context.Context, d request.Descriptor) request.Outcome {
	reqCtx := context.WithoutCancel(ctx)

	var span trace.Span
	if e.tracer != nil {
		reqCtx, span = tracing.StartRequestSpan(reqCtx, e.tracer, d)
	}

	outcome := e.withRetry(ctx, func() request.Outcome {
		return e.once(reqCtx, d)
	})

	if span != nil {
		var spanErr error
		if outcome.Kind == request.KindFailure {
			spanErr = fmt.Errorf("%s: %s", outcome.ErrorKind, outcome.Err)
		}
		tracing.EndSpan(span, spanErr, tracing.OutcomeAttributes(outcome)...)
	}

	if e.logErrors && outcome.Kind == request.KindFailure {
		e.logger.Warn("request failed",
			zap.Uint64("seq", d.Seq),
			zap.String("kind", string(outcome.ErrorKind)),
			zap.String("error", outcome.Err),
			zap.Int("attempts", outcome.Attempts),
		)
	}
	return outcome
}

func (e *Executor) once(ctx context.Context, d request.Descriptor) request.Outcome {
	start := time.Now()

	req, err := httpclient.NewRequest(ctx, d)
	if err != nil {
		return request.Failure(d.Seq, request.ErrorOther, time.Since(start), err)
	}
	if e.auth != nil {
		if err := e.auth.InjectHeader(ctx, req); err != nil {
			return request.Failure(d.Seq, request.ErrorOther, time.Since(start), err)
		}
	}
	if e.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return request.Failure(d.Seq, Classify(err), time.Since(start), err)
	}
	defer resp.Body.Close()

	// Body read errors are non-fatal; the digest covers what was read.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyReadSize))
	latency := time.Since(start)

	return request.Success(d.Seq, resp.StatusCode, latency, Digest(body), e.snippet.Snippet(body))
}

// Digest is the hex xxhash64 of body.
func Digest(body []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(body))
}
