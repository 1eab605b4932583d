package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/volley/internal/logging"
	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/request"
)

// ErrAlreadyStarted is returned by Run on a runner that is not Idle.
var ErrAlreadyStarted = errors.New("runner: already started")

// State is the lifecycle position of a Runner.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Result captures how a run ended. Summary is always populated.
type Result struct {
	State   State
	Summary metrics.RunSummary
}

// Runner drives descriptors from the queue through admission to the
// executor until the queue is exhausted or the run is cancelled.
type Runner struct {
	opt   Options
	state atomic.Int32
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Collector returns the collector outcomes are recorded into.
func (r *Runner) Collector() *metrics.Collector {
	return r.opt.Collector
}

// Run executes the whole queue. Cancelling ctx stops issuing new requests;
// requests already in flight finish and everything never issued is
// reported as cancelled. Run may only be called once.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.opt.Queue == nil || r.opt.Admission == nil || r.opt.Executor == nil {
		return Result{State: r.State()}, errors.New("runner: queue, admission and executor are required")
	}
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return Result{State: r.State()}, ErrAlreadyStarted
	}

	queue, gate, collector := r.opt.Queue, r.opt.Admission, r.opt.Collector
	logger := r.opt.Logger.With(zap.String("run_id", collector.RunID()))
	ctx = logging.WithContext(ctx, logger)

	logger.Debug("run started",
		zap.Uint64("total", queue.Total()),
		zap.Int("concurrency", gate.Concurrency()),
	)

	stop := context.AfterFunc(ctx, func() {
		queue.Cancel()
		gate.Cancel()
	})
	defer stop()

	collector.Start()

	var g errgroup.Group
	admissionFailed := false
	for {
		d, ok := queue.Next()
		if !ok {
			break
		}

		token, err := gate.Acquire(ctx)
		if err != nil {
			admissionFailed = true
			queue.Cancel()
			r.deliver(request.Cancelled(d.Seq))
			break
		}

		g.Go(func() error {
			outcome := r.opt.Executor.Execute(ctx, d)
			outcome.AdmissionWait = token.Waited()
			token.Release()
			r.deliver(outcome)
			return nil
		})
	}
	_ = g.Wait()

	unissued := queue.Unissued()
	for i := uint64(0); i < unissued.Len(); i++ {
		r.deliver(request.Cancelled(unissued.First + i))
	}

	final := StateCompleted
	if admissionFailed || unissued.Len() > 0 {
		final = StateCancelled
	}

	collector.SetBatches(gate.Epochs())
	collector.Finish()
	r.state.Store(int32(final))

	summary := collector.Summarize()
	logger.Debug("run finished",
		zap.Stringer("state", final),
		zap.Int64("issued", summary.Issued),
		zap.Int64("cancelled", summary.Cancelled),
		zap.Duration("duration", summary.Duration),
	)

	return Result{State: final, Summary: summary}, nil
}

func (r *Runner) deliver(o request.Outcome) {
	r.opt.Collector.Record(o)
	for _, obs := range r.opt.Observers {
		obs.Observe(o)
	}
}
