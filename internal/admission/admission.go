// Package admission bounds how many requests may be in flight and paces when
// new ones may start.
//
// Two gates are available. The batch gate (the default) admits up to C
// requests per epoch; the next epoch opens only once the current one has
// drained and the inter-batch delay has elapsed since the epoch anchor. The
// continuous gate is a C-slot semaphore combined with a token bucket refilling
// C admissions per delay.
package admission

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrCancelled is returned by Acquire when the controller or the caller's
// context is cancelled before admission.
var ErrCancelled = errors.New("admission cancelled")

// Mode selects the admission gate.
type Mode string

const (
	ModeBatch      Mode = "batch"
	ModeContinuous Mode = "continuous"
)

// Anchor selects the point the inter-batch delay is measured from.
type Anchor string

const (
	// AnchorStart measures the delay from the start of the previous epoch.
	AnchorStart Anchor = "start"
	// AnchorEnd measures the delay from the moment the previous epoch drained.
	AnchorEnd Anchor = "end"
)

// Options configure a Controller.
type Options struct {
	Concurrency int           // max outstanding tokens (C)
	Delay       time.Duration // inter-batch pacing delay (D)
	Mode        Mode
	Anchor      Anchor // batch mode only
	Clock       Clock  // batch mode only; defaults to RealClock

	// OnEpoch is invoked, outside any lock, each time the batch gate opens a new epoch.
	OnEpoch func(epoch uint64, start time.Time)
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.Mode == "" {
		o.Mode = ModeBatch
	}
	if o.Anchor == "" {
		o.Anchor = AnchorStart
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
}

type gate interface {
	acquire(ctx context.Context) (epoch uint64, err error)
	release()
	outstanding() int
	epochs() uint64
}

// Controller grants admission tokens. It is safe for concurrent use.
type Controller struct {
	opts   Options
	gate   gate
	ids    atomic.Uint64
	done   context.Context
	cancel context.CancelFunc
}

// New creates a Controller.
func New(opts Options) (*Controller, error) {
	opts.normalize()

	var g gate
	switch opts.Mode {
	case ModeBatch:
		switch opts.Anchor {
		case AnchorStart, AnchorEnd:
		default:
			return nil, fmt.Errorf("admission: unsupported anchor %q", opts.Anchor)
		}
		g = newBatchGate(opts)
	case ModeContinuous:
		g = newContinuousGate(opts)
	default:
		return nil, fmt.Errorf("admission: unsupported mode %q", opts.Mode)
	}

	done, cancel := context.WithCancel(context.Background())
	return &Controller{opts: opts, gate: g, done: done, cancel: cancel}, nil
}

// Acquire blocks until a request may be issued. It returns ErrCancelled when
// ctx is done or Cancel has been called.
func (c *Controller) Acquire(ctx context.Context) (*Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.done.Err() != nil || ctx.Err() != nil {
		return nil, ErrCancelled
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.done, cancel)
	defer stop()

	start := c.opts.Clock.Now()
	epoch, err := c.gate.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Token{
		id:     c.ids.Add(1),
		epoch:  epoch,
		waited: c.opts.Clock.Now().Sub(start),
		ctrl:   c,
	}, nil
}

// Release returns a token. Releasing a token twice is a no-op.
func (c *Controller) Release(t *Token) {
	t.Release()
}

// Cancel fails every blocked and future Acquire with ErrCancelled.
func (c *Controller) Cancel() {
	c.cancel()
}

// Outstanding returns the number of tokens acquired and not yet released.
func (c *Controller) Outstanding() int {
	return c.gate.outstanding()
}

// Epochs returns how many batch epochs have been opened (always 0 in continuous mode).
func (c *Controller) Epochs() uint64 {
	return c.gate.epochs()
}

// Concurrency returns the configured limit C.
func (c *Controller) Concurrency() int {
	return c.opts.Concurrency
}

// Token is permission to issue one request.
type Token struct {
	id       uint64
	epoch    uint64
	waited   time.Duration
	ctrl     *Controller
	released atomic.Bool
}

// ID identifies the token within its controller.
func (t *Token) ID() uint64 { return t.id }

// Epoch is the batch epoch the token was admitted in (0 in continuous mode).
func (t *Token) Epoch() uint64 { return t.epoch }

// Waited is how long Acquire blocked before granting the token.
func (t *Token) Waited() time.Duration { return t.waited }

// Release returns the token to its controller. It is idempotent.
func (t *Token) Release() {
	if t == nil || t.ctrl == nil {
		return
	}
	if t.released.CompareAndSwap(false, true) {
		t.ctrl.gate.release()
	}
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %v", ErrCancelled, context.Cause(ctx))
}
