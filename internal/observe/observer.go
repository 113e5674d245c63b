// Package observe captures pane output as immutable snapshots.
//
// A capture is a read-only view over a pane's visible buffer and
// scrollback. The window selects how much history comes back; an optional
// post-processing step strips terminal control sequences so captured text
// is safe for programmatic parsing.
package observe

import (
	"context"
	"fmt"
	"time"

	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/mux"
)

// Window selects how much of a pane's output a capture returns.
type Window struct {
	kind windowKind
	n    int
}

type windowKind int

const (
	windowRecent windowKind = iota
	windowAll
	windowSince
)

// Recent returns at most the last n lines of the visible+scrollback buffer.
func Recent(n int) Window {
	return Window{kind: windowRecent, n: n}
}

// All returns the full scrollback, bounded only by the pane's configured
// retention. Callers needing complete history must provision retention
// large enough for the longest expected task output (see the bootstrap
// layer's scrollback default).
func All() Window {
	return Window{kind: windowAll}
}

// SinceOffset returns the full history with the first n lines dropped,
// for resuming observation where a previous capture left off.
func SinceOffset(n int) Window {
	return Window{kind: windowSince, n: n}
}

// String describes the window for logs and errors.
func (w Window) String() string {
	switch w.kind {
	case windowRecent:
		return fmt.Sprintf("recent(%d)", w.n)
	case windowAll:
		return "all"
	case windowSince:
		return fmt.Sprintf("since(%d)", w.n)
	default:
		return "window(?)"
	}
}

// TargetUnavailableError reports a capture against a pane that no longer
// exists.
type TargetUnavailableError struct {
	Target string
	Err    error
}

func (e *TargetUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture %s: target unavailable: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("capture %s: target unavailable", e.Target)
}

func (e *TargetUnavailableError) Unwrap() error {
	return e.Err
}

// Observer captures pane output through a multiplexer.
type Observer struct {
	mux mux.Multiplexer
	now func() time.Time
}

// New creates an Observer.
func New(m mux.Multiplexer) *Observer {
	return &Observer{mux: m, now: time.Now}
}

// Capture takes a fresh snapshot of the target pane restricted to the
// given window. When strip is true, terminal control sequences are removed
// from every line; stripping never changes line count or ordering. The
// returned snapshot is immutable: it is never updated by later captures.
func (o *Observer) Capture(ctx context.Context, target model.PaneAddress, w Window, strip bool) (model.OutputSnapshot, error) {
	addr := target.String()

	scrollback := mux.ScrollbackAll
	if w.kind == windowRecent {
		scrollback = w.n
	}

	if !o.mux.HasTarget(ctx, addr) {
		return model.OutputSnapshot{}, &TargetUnavailableError{Target: addr}
	}

	lines, err := o.mux.Capture(ctx, addr, scrollback)
	if err != nil {
		return model.OutputSnapshot{}, &TargetUnavailableError{Target: addr, Err: err}
	}

	switch w.kind {
	case windowRecent:
		if len(lines) > w.n {
			lines = lines[len(lines)-w.n:]
		}
	case windowSince:
		if w.n >= len(lines) {
			lines = nil
		} else {
			lines = lines[w.n:]
		}
	}

	// Copy into a fresh slice so the snapshot does not alias the capture
	// buffer, then strip in place on the copy.
	out := make([]string, len(lines))
	for i, line := range lines {
		if strip {
			out[i] = StripControl(line)
		} else {
			out[i] = line
		}
	}

	return model.OutputSnapshot{
		Target:     target,
		Lines:      out,
		CapturedAt: o.now(),
		Stripped:   strip,
	}, nil
}
