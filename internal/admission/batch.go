package admission

import (
	"context"
	"sync"
	"time"
)

// batchGate admits requests in discrete epochs of at most limit admissions.
//
// Invariant: every outstanding token belongs to the current epoch, so
// outstanding <= admitted <= limit at all times.
type batchGate struct {
	limit   int
	delay   time.Duration
	anchor  Anchor
	clock   Clock
	onEpoch func(uint64, time.Time)

	mu          sync.Mutex
	epoch       uint64
	admitted    int
	inflight    int
	epochStart  time.Time
	drainedAt   time.Time
	drainSignal chan struct{}
}

func newBatchGate(opts Options) *batchGate {
	return &batchGate{
		limit:       opts.Concurrency,
		delay:       opts.Delay,
		anchor:      opts.Anchor,
		clock:       opts.Clock,
		onEpoch:     opts.OnEpoch,
		drainSignal: make(chan struct{}),
	}
}

func (g *batchGate) acquire(ctx context.Context) (uint64, error) {
	for {
		g.mu.Lock()
		now := g.clock.Now()

		if g.epoch > 0 && g.admitted < g.limit {
			epoch := g.admitLocked()
			g.mu.Unlock()
			return epoch, nil
		}

		var wait time.Duration
		if g.inflight == 0 {
			ready := g.nextEpochAtLocked()
			if g.epoch == 0 || !now.Before(ready) {
				g.epoch++
				g.admitted = 0
				g.epochStart = now
				epoch := g.admitLocked()
				g.mu.Unlock()
				if g.onEpoch != nil {
					g.onEpoch(epoch, now)
				}
				return epoch, nil
			}
			wait = ready.Sub(now)
		}
		drained := g.drainSignal
		g.mu.Unlock()

		// Either the epoch is full and still draining (wait for the drain
		// signal) or it has drained and the pacing delay has not elapsed.
		var timer Timer
		var fire <-chan time.Time
		if wait > 0 {
			timer = g.clock.NewTimer(wait)
			fire = timer.C()
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return 0, cancelled(ctx)
		case <-drained:
		case <-fire:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (g *batchGate) admitLocked() uint64 {
	g.admitted++
	g.inflight++
	return g.epoch
}

func (g *batchGate) nextEpochAtLocked() time.Time {
	if g.anchor == AnchorEnd {
		return g.drainedAt.Add(g.delay)
	}
	return g.epochStart.Add(g.delay)
}

func (g *batchGate) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight == 0 {
		return
	}
	g.inflight--
	if g.inflight == 0 {
		g.drainedAt = g.clock.Now()
		close(g.drainSignal)
		g.drainSignal = make(chan struct{})
	}
}

func (g *batchGate) outstanding() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight
}

func (g *batchGate) epochs() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.epoch
}
