package inject

import "fmt"

// InjectionError reports a failed dispatch, carrying the target address
// and a reason so callers can report precisely which pane failed.
type InjectionError struct {
	Target string
	Reason string
	Err    error
}

func (e *InjectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inject %s: %s: %v", e.Target, e.Reason, e.Err)
	}
	return fmt.Sprintf("inject %s: %s", e.Target, e.Reason)
}

func (e *InjectionError) Unwrap() error {
	return e.Err
}

// ConcurrentDispatchError reports overlapping dispatches to one pane. Input
// interleaving corrupts the target's input stream, so an overlap is a bug
// in the caller's task discipline: fatal to the task, not the process.
type ConcurrentDispatchError struct {
	Target string
}

func (e *ConcurrentDispatchError) Error() string {
	return fmt.Sprintf("concurrent dispatch to %s: target is busy with another task", e.Target)
}
