package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/torosent/volley/internal/admission"
	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/request"
	"github.com/torosent/volley/internal/workqueue"
)

// Executor issues one descriptor and reports its outcome. Implementations
// must not panic and must report failures as outcomes.
type Executor interface {
	Execute(ctx context.Context, d request.Descriptor) request.Outcome
}

// Observer receives every outcome of a run. Observe is called from many
// goroutines at once and in no particular order.
type Observer interface {
	Observe(o request.Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(o request.Outcome)

func (f ObserverFunc) Observe(o request.Outcome) { f(o) }

// Options configure the Runner.
type Options struct {
	Queue     *workqueue.Queue      // descriptor source (required)
	Admission *admission.Controller // concurrency and pacing gate (required)
	Executor  Executor              // request executor (required)
	Collector *metrics.Collector    // defaults to a fresh collector
	Observers []Observer            // progress printers, exporters, dashboards
	Logger    *zap.Logger
}

func (o *Options) normalize() {
	if o.Collector == nil {
		o.Collector = metrics.NewCollector()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}
