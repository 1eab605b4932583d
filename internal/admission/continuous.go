package admission

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// continuousGate is a semaphore of limit slots paced by a token bucket that
// refills limit admissions per delay. A zero delay leaves only the semaphore.
type continuousGate struct {
	slots    chan struct{}
	limiter  *rate.Limiter
	inflight atomic.Int64
}

func newContinuousGate(opts Options) *continuousGate {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.Delay > 0 {
		every := opts.Delay / time.Duration(opts.Concurrency)
		limiter = rate.NewLimiter(rate.Every(every), opts.Concurrency)
	}
	return &continuousGate{
		slots:   make(chan struct{}, opts.Concurrency),
		limiter: limiter,
	}
}

func (g *continuousGate) acquire(ctx context.Context) (uint64, error) {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return 0, cancelled(ctx)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		<-g.slots
		return 0, cancelled(ctx)
	}
	g.inflight.Add(1)
	return 0, nil
}

func (g *continuousGate) release() {
	g.inflight.Add(-1)
	<-g.slots
}

func (g *continuousGate) outstanding() int {
	return int(g.inflight.Load())
}

func (g *continuousGate) epochs() uint64 {
	return 0
}
