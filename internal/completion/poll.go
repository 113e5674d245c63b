package completion

import (
	"context"
	"time"

	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/observe"
)

// BusyFunc reports whether a captured window still shows the target as
// busy, e.g. by matching a spinner or process marker in the latest lines.
type BusyFunc func(snap model.OutputSnapshot) bool

// Debounce is the pure Busy/Idle state machine behind the idle poller.
// A single non-busy sample can be a redraw caught between frames, so
// idle is confirmed only after Quiet consecutive non-busy reads.
type Debounce struct {
	// Quiet is the number of consecutive non-busy samples required to
	// confirm idle. Zero means the default of 2.
	Quiet int

	calm int
}

// Observe feeds one sample and reports whether the target has settled.
func (d *Debounce) Observe(busy bool) bool {
	if busy {
		d.calm = 0
		return false
	}
	d.calm++
	quiet := d.Quiet
	if quiet <= 0 {
		quiet = 2
	}
	return d.calm >= quiet
}

// PollOptions bound an idle poll. At least one of MaxSamples and MaxWait
// must be set; an unbounded poll is refused.
type PollOptions struct {
	// Interval is the pause between samples.
	Interval time.Duration
	// Window is how many recent lines each sample captures.
	Window int
	// Quiet is the consecutive non-busy sample count confirming idle.
	Quiet int
	// MaxSamples caps the number of samples taken. Zero means no cap.
	MaxSamples int
	// MaxWait caps the total wall-clock time. Zero means no cap.
	MaxWait time.Duration
}

// DefaultPollOptions returns the poll bounds used when the caller has no
// opinion: a sample every 2s over the last 30 lines, giving up after 5
// minutes.
func DefaultPollOptions() PollOptions {
	return PollOptions{
		Interval: 2 * time.Second,
		Window:   30,
		Quiet:    2,
		MaxWait:  5 * time.Minute,
	}
}

// Poller waits for a target to go idle by sampling its recent output.
type Poller struct {
	obs  *observe.Observer
	opts PollOptions

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// NewPoller creates a Poller over the given observer. Zero option fields
// fall back to DefaultPollOptions values, except the exhaustion bounds:
// if both MaxSamples and MaxWait are zero the default MaxWait applies.
func NewPoller(obs *observe.Observer, opts PollOptions) *Poller {
	def := DefaultPollOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.Window <= 0 {
		opts.Window = def.Window
	}
	if opts.Quiet <= 0 {
		opts.Quiet = def.Quiet
	}
	if opts.MaxSamples <= 0 && opts.MaxWait <= 0 {
		opts.MaxWait = def.MaxWait
	}
	return &Poller{
		obs:   obs,
		opts:  opts,
		sleep: sleepCtx,
		now:   time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitIdle samples the target until busy stops matching for Quiet
// consecutive samples. Snapshots are captured stripped so the predicate
// sees plain text. Returns PollExhaustedError when the bounds run out,
// or the capture error if the target disappears mid-poll. Cancelling ctx
// stops sampling immediately.
func (p *Poller) WaitIdle(ctx context.Context, target model.PaneAddress, busy BusyFunc) error {
	deb := Debounce{Quiet: p.opts.Quiet}
	start := p.now()

	for sample := 0; ; sample++ {
		if p.opts.MaxSamples > 0 && sample >= p.opts.MaxSamples {
			return &PollExhaustedError{
				Target:  target.String(),
				Samples: sample,
				Elapsed: p.now().Sub(start),
			}
		}
		if p.opts.MaxWait > 0 && p.now().Sub(start) >= p.opts.MaxWait {
			return &PollExhaustedError{
				Target:  target.String(),
				Samples: sample,
				Elapsed: p.now().Sub(start),
			}
		}

		snap, err := p.obs.Capture(ctx, target, observe.Recent(p.opts.Window), true)
		if err != nil {
			return err
		}
		if deb.Observe(busy(snap)) {
			return nil
		}

		if err := p.sleep(ctx, p.opts.Interval); err != nil {
			return err
		}
	}
}
