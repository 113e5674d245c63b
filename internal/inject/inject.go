package inject

import (
	"context"
	"strings"
	"time"

	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/mux"
)

// Options tunes the dispatch transport.
type Options struct {
	// Debounce is the pause between delivering payload text and pressing
	// the submit key, giving the target time to finish processing the
	// paste. 500ms has proven necessary for agent TUIs.
	Debounce time.Duration
	// SubmitRetries is how many times the submit key is retried when
	// send-keys fails transiently.
	SubmitRetries int
	// LockTimeout bounds how long a dispatch waits for the per-target
	// lock. Zero means detect-only: overlapping dispatches fail with
	// ConcurrentDispatchError instead of queueing.
	LockTimeout time.Duration
}

// DefaultOptions returns the transport tuning that works against agent
// TUIs (Claude Code, OpenCode) as well as plain shells.
func DefaultOptions() Options {
	return Options{
		Debounce:      500 * time.Millisecond,
		SubmitRetries: 3,
		LockTimeout:   10 * time.Second,
	}
}

// Injector plays encoded keystroke programs into panes. It owns a
// per-target lock so two dispatches can never interleave bytes on one
// pane's input stream.
type Injector struct {
	mux   mux.Multiplexer
	opts  Options
	locks *TargetLocks
	sleep func(time.Duration) // overridable for tests
}

// New creates an Injector on top of a multiplexer.
func New(m mux.Multiplexer, opts Options) *Injector {
	if opts.SubmitRetries < 1 {
		opts.SubmitRetries = 1
	}
	return &Injector{
		mux:   m,
		opts:  opts,
		locks: NewTargetLocks(),
		sleep: time.Sleep,
	}
}

// Dispatch encodes the payload and plays it into the target pane.
//
// Interpreted programs end with their own submit key; literal programs are
// pure data, so one explicit submit is issued as a separate call
// afterwards. The whole program runs under the per-target lock. The
// injector has no visibility into whether the target's foreground process
// is ready for input: that is the caller's synchronization discipline.
func (in *Injector) Dispatch(ctx context.Context, target model.PaneAddress, payload model.CommandPayload) error {
	addr := target.String()

	if err := target.Validate(); err != nil {
		return &InjectionError{Target: addr, Reason: "invalid target address", Err: err}
	}

	program, err := Encode(payload)
	if err != nil {
		return &InjectionError{Target: addr, Reason: "cannot encode payload", Err: err}
	}

	release, err := in.locks.Acquire(addr, in.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer release()

	if !in.mux.HasTarget(ctx, addr) {
		return &InjectionError{Target: addr, Reason: "target does not exist"}
	}

	// Copy mode intercepts input; leave it before typing anything.
	if err := in.mux.ExitCopyMode(ctx, addr); err != nil {
		return &InjectionError{Target: addr, Reason: "cannot leave copy mode", Err: err}
	}

	if err := in.play(ctx, addr, program); err != nil {
		return err
	}

	if payload.Mode == model.ModeLiteral {
		// Literal submission does not auto-advance input: one explicit
		// submit as a separate call.
		if err := in.submit(ctx, addr); err != nil {
			return err
		}
	}
	return nil
}

// play executes a keystroke program in order. Literal data holding
// newlines travels through the paste buffer so the line breaks arrive as
// data; everything else goes through literal send-keys. Submit keys get
// the full debounce + Escape + retry treatment.
func (in *Injector) play(ctx context.Context, addr string, program []Keystroke) error {
	for _, op := range program {
		switch {
		case op.Key && op.Text == SubmitKey:
			if err := in.submit(ctx, addr); err != nil {
				return err
			}
		case op.Key:
			if err := in.mux.SendKey(ctx, addr, op.Text); err != nil {
				return &InjectionError{Target: addr, Reason: "key press failed", Err: err}
			}
		case strings.Contains(op.Text, "\n"):
			if err := in.mux.Paste(ctx, addr, op.Text); err != nil {
				return &InjectionError{Target: addr, Reason: "paste failed", Err: err}
			}
		default:
			if err := in.mux.SendLiteral(ctx, addr, op.Text); err != nil {
				return &InjectionError{Target: addr, Reason: "literal send failed", Err: err}
			}
		}
	}
	return nil
}

// submit presses the submit key reliably: wait for the paste to settle,
// send Escape to leave vim INSERT mode if the target enabled it (harmless
// otherwise), then Enter with retries.
func (in *Injector) submit(ctx context.Context, addr string) error {
	if in.opts.Debounce > 0 {
		in.sleep(in.opts.Debounce)
	}

	_ = in.mux.SendKey(ctx, addr, "Escape")
	if in.opts.Debounce > 0 {
		// Exceed readline's keyseq-timeout so ESC is processed alone and
		// not fused with the Enter into a meta chord.
		in.sleep(in.opts.Debounce + 100*time.Millisecond)
	}

	var lastErr error
	for attempt := 0; attempt < in.opts.SubmitRetries; attempt++ {
		if attempt > 0 {
			in.sleep(200 * time.Millisecond)
		}
		if err := in.mux.SendKey(ctx, addr, SubmitKey); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return &InjectionError{Target: addr, Reason: "submit key failed after retries", Err: lastErr}
}
