// Package runner provides the execution engine of volley.
//
// A [Runner] pulls descriptors from a work queue, waits for an admission
// token, and dispatches each descriptor to an [Executor] on its own
// goroutine. Outcomes are recorded into a metrics collector and fanned out
// to any number of [Observer] values.
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Queue:     workqueue.New(100, tmpl),
//		Admission: gate,
//		Executor:  executor.New(executor.Options{Timeout: 30 * time.Second}),
//	})
//	result, err := r.Run(ctx)
//
// # Lifecycle
//
// A runner moves from [StateIdle] to [StateRunning] and ends in either
// [StateCompleted] or [StateCancelled]. Calling Run again returns
// [ErrAlreadyStarted].
//
// # Cancellation
//
// Cancelling the context passed to Run cancels the queue and the admission
// controller. Blocked acquisitions fail immediately, requests already in
// flight are allowed to finish, and every descriptor that was never issued
// produces a cancelled outcome, so a run always yields exactly one outcome
// per descriptor.
package runner
