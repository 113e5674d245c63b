package completion

import (
	"errors"
	"fmt"
	"time"
)

// SignalTimeoutError reports a signal wait that hit its configured bound
// before the signal arrived. Recoverable: the caller may re-poll the pane
// or fall back to a manual capture instead of failing the task.
type SignalTimeoutError struct {
	Signal  string
	Target  string
	Timeout time.Duration
}

func (e *SignalTimeoutError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("wait %s: no signal within %s", e.Signal, e.Timeout)
	}
	return fmt.Sprintf("wait %s on %s: no signal within %s", e.Signal, e.Target, e.Timeout)
}

// Recoverable marks the timeout as a condition the caller can retry.
func (e *SignalTimeoutError) Recoverable() bool { return true }

// PollExhaustedError reports an idle poll that ran out of samples or
// wall-clock budget before the target settled. Recoverable in the same
// sense as SignalTimeoutError.
type PollExhaustedError struct {
	Target  string
	Samples int
	Elapsed time.Duration
}

func (e *PollExhaustedError) Error() string {
	return fmt.Sprintf("poll %s: still busy after %d samples (%s)", e.Target, e.Samples, e.Elapsed.Round(time.Millisecond))
}

// Recoverable marks the exhaustion as a condition the caller can retry.
func (e *PollExhaustedError) Recoverable() bool { return true }

// IsRecoverable reports whether err is a wait condition the caller may
// retry, as opposed to a hard failure of the target or the transport.
func IsRecoverable(err error) bool {
	var r interface{ Recoverable() bool }
	return errors.As(err, &r) && r.Recoverable()
}
