// Package completion blocks a caller until a dispatched command finishes.
//
// Two interchangeable strategies are offered. Signal-wait arms a named
// multiplexer signal before dispatch and suspends until the target's
// command line fires it. Idle-poll samples recent pane output on a fixed
// interval and declares the target idle once a caller-supplied busy
// predicate stops matching for two consecutive samples. Signal-wait is
// precise but needs the command line to cooperate; idle-poll works
// against any target at the cost of latency.
package completion

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/mux"
)

// SignalState tracks where a signal wait is in its lifecycle.
type SignalState int32

const (
	// Armed means the waiter is registered and the signal has not fired.
	Armed SignalState = iota
	// Signaled means the signal fired and the wait completed.
	Signaled
)

func (s SignalState) String() string {
	if s == Signaled {
		return "signaled"
	}
	return "armed"
}

// SignalWaiter arms completion signals against a multiplexer.
type SignalWaiter struct {
	mux mux.Multiplexer
}

// NewSignalWaiter creates a SignalWaiter.
func NewSignalWaiter(m mux.Multiplexer) *SignalWaiter {
	return &SignalWaiter{mux: m}
}

// Wait is one armed signal wait. It must be created with Arm before the
// command that fires the signal is dispatched; the multiplexer drops a
// signal emitted with nobody waiting, so arming after dispatch races the
// command's exit.
type Wait struct {
	signal model.CompletionSignal
	result chan error
	cancel context.CancelFunc
	state  atomic.Int32
}

// Arm registers a waiter for the signal and returns immediately. The
// returned Wait blocks on demand via Wait or is abandoned via Cancel.
func (w *SignalWaiter) Arm(ctx context.Context, sig model.CompletionSignal) *Wait {
	wctx, cancel := context.WithCancel(ctx)
	wt := &Wait{
		signal: sig,
		result: make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		wt.result <- w.mux.WaitSignal(wctx, sig.Name)
	}()
	return wt
}

// Signal returns the signal this wait is armed on.
func (wt *Wait) Signal() model.CompletionSignal {
	return wt.signal
}

// State reports the wait's current lifecycle state.
func (wt *Wait) State() SignalState {
	return SignalState(wt.state.Load())
}

// Wait suspends until the signal fires, the timeout elapses, or ctx is
// cancelled. A timeout of zero or less waits without bound. Once the
// timeout fires the wait is torn down and a late signal is reported as
// SignalTimeoutError, never as success. Duplicate emissions are
// first-wins: the arm consumes one signal and later emissions of the
// same name land with no waiter registered.
func (wt *Wait) Wait(ctx context.Context, timeout time.Duration) error {
	if wt.State() == Signaled {
		return nil
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	select {
	case err := <-wt.result:
		if err != nil {
			return err
		}
		wt.state.Store(int32(Signaled))
		return nil
	case <-deadline:
		wt.cancel()
		target := ""
		if !wt.signal.Target.IsZero() {
			target = wt.signal.Target.String()
		}
		return &SignalTimeoutError{
			Signal:  wt.signal.Name,
			Target:  target,
			Timeout: timeout,
		}
	case <-ctx.Done():
		wt.cancel()
		return ctx.Err()
	}
}

// Cancel abandons the wait. The target's foreground process is not
// interrupted; killing it is a separate, explicit operation.
func (wt *Wait) Cancel() {
	wt.cancel()
}
