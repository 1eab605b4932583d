package executor

import (
	"context"
	"errors"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/torosent/volley/internal/request"
)

var errRetryable = errors.New("retryable outcome")

// RetryPolicy configures retries of a single descriptor. Retries is the
// number of extra attempts after the first; zero disables retrying.
type RetryPolicy struct {
	Retries         int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 100 * time.Millisecond
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 2 * time.Second
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.RandomizationFactor = 0.5
	exp.Multiplier = 1.5
	exp.MaxInterval = p.MaxInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.Retries)), ctx)
}

// ShouldRetry reports whether an outcome is worth another attempt:
// transport failures, 429 and 5xx responses.
func ShouldRetry(o request.Outcome) bool {
	switch o.Kind {
	case request.KindFailure:
		return true
	case request.KindSuccess:
		return o.StatusCode == http.StatusTooManyRequests || o.StatusCode >= 500
	default:
		return false
	}
}

// withRetry runs attempt until it yields a final outcome, retries are
// exhausted, or ctx is cancelled. Only the last attempt is reported.
func (e *Executor) withRetry(ctx context.Context, attempt func() request.Outcome) request.Outcome {
	if e.retry.Retries == 0 {
		return attempt()
	}

	var last request.Outcome
	attempts := 0
	op := func() error {
		attempts++
		last = attempt()
		if ShouldRetry(last) {
			return errRetryable
		}
		return nil
	}
	notify := func(_ error, wait time.Duration) {
		e.logger.Debug("retrying",
			zap.Uint64("seq", last.Seq),
			zap.String("result", last.StatusOrError()),
			zap.Duration("backoff_duration", wait),
		)
	}

	_ = backoff.RetryNotify(op, e.retry.backOff(ctx), notify)
	last.Attempts = attempts
	return last
}
