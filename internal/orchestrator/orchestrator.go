// Package orchestrator runs commands in role panes end to end.
//
// A task is one dispatch, one wait, one capture. The orchestrator
// resolves the role to a pane, injects the command, blocks until the
// chosen completion strategy reports the pane done, and returns a
// snapshot of the result. The per-target lock is held across the whole
// span so two tasks can never interleave input on the same pane.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/timvw/pane-conductor/internal/completion"
	"github.com/timvw/pane-conductor/internal/events"
	"github.com/timvw/pane-conductor/internal/inject"
	"github.com/timvw/pane-conductor/internal/marker"
	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/mux"
	"github.com/timvw/pane-conductor/internal/observe"
	"github.com/timvw/pane-conductor/internal/otel"
	"github.com/timvw/pane-conductor/internal/topology"
)

// Strategy selects how task completion is detected.
type Strategy string

const (
	// SignalWait chains a signal emission after the command and blocks
	// on it. Precise, but the command line must cooperate.
	SignalWait Strategy = "signal"
	// IdlePoll samples recent output until a busy predicate stops
	// matching. Works against any target at the cost of latency.
	IdlePoll Strategy = "poll"
)

// TaskRequest describes one command to run in a role's pane.
type TaskRequest struct {
	Role    model.Role
	Command string
	// Mode selects the payload encoding. Zero value is Interpreted.
	Mode     model.Mode
	Strategy Strategy
	// Busy overrides the idle-poll predicate. Nil means the default
	// agent indicators.
	Busy completion.BusyFunc
	// Timeout bounds the signal wait. Zero means the orchestrator
	// default.
	Timeout time.Duration
	// CaptureLines overrides the result window. Zero means the
	// orchestrator default.
	CaptureLines int
}

// Options tune the orchestrator.
type Options struct {
	// Inject is passed through to the injector.
	Inject inject.Options
	// SignalTimeout bounds signal waits when the request has none.
	SignalTimeout time.Duration
	// Poll bounds idle polls.
	Poll completion.PollOptions
	// CaptureLines is the default Recent(n) window for task results.
	CaptureLines int
	// LockTimeout is how long a task waits for a busy target before
	// giving up with ConcurrentDispatchError. Zero detects and fails
	// fast.
	LockTimeout time.Duration
}

// DefaultOptions returns the task tuning used by the CLI.
func DefaultOptions() Options {
	return Options{
		Inject:        inject.DefaultOptions(),
		SignalTimeout: 5 * time.Minute,
		Poll:          completion.DefaultPollOptions(),
		CaptureLines:  50,
		LockTimeout:   10 * time.Second,
	}
}

// Orchestrator wires the resolver, injector, observer and synchronizer
// into the runTask surface.
type Orchestrator struct {
	mux      mux.Multiplexer
	topo     *topology.Manager
	injector *inject.Injector
	observer *observe.Observer
	waiter   *completion.SignalWaiter
	poller   *completion.Poller
	journal  *events.Journal
	tel      *otel.Telemetry
	opts     Options

	// Task-level locks, held dispatch-through-wait. Distinct from the
	// injector's keystroke-level locks on the same targets.
	locks *inject.TargetLocks
	now   func() time.Time
}

// New creates an Orchestrator on top of a multiplexer and a topology.
// journal and tel may be nil.
func New(m mux.Multiplexer, topo *topology.Manager, journal *events.Journal, tel *otel.Telemetry, opts Options) *Orchestrator {
	if opts.SignalTimeout <= 0 {
		opts.SignalTimeout = DefaultOptions().SignalTimeout
	}
	if opts.CaptureLines <= 0 {
		opts.CaptureLines = DefaultOptions().CaptureLines
	}
	obs := observe.New(m)
	return &Orchestrator{
		mux:      m,
		topo:     topo,
		injector: inject.New(m, opts.Inject),
		observer: obs,
		waiter:   completion.NewSignalWaiter(m),
		poller:   completion.NewPoller(obs, opts.Poll),
		journal:  journal,
		tel:      tel,
		opts:     opts,
		locks:    inject.NewTargetLocks(),
		now:      time.Now,
	}
}

// Topology returns the topology manager the orchestrator dispatches
// through.
func (o *Orchestrator) Topology() *topology.Manager {
	return o.topo
}

// Observer returns the observer, for manual captures after a recoverable
// wait error.
func (o *Orchestrator) Observer() *observe.Observer {
	return o.observer
}

// Register maps a role to a pane and records the assignment in the
// journal. Reassignments are recorded with the prior address.
func (o *Orchestrator) Register(role model.Role, addr model.PaneAddress) error {
	prev, replaced, err := o.topo.Register(role, addr)
	if err != nil {
		return err
	}
	kind := events.KindRegistered
	detail := ""
	if replaced {
		kind = events.KindReassigned
		detail = "was " + prev.String()
	}
	o.record("assign-"+uuid.NewString(), kind, role, addr.String(), detail)
	return nil
}

// RunTask runs one command in the pane the role resolves to and returns
// a snapshot of the pane after completion. Recoverable wait errors
// (signal timeout, poll exhaustion) come back with a zero snapshot; the
// caller may fall back to a manual capture of the same target.
func (o *Orchestrator) RunTask(ctx context.Context, req TaskRequest) (model.OutputSnapshot, error) {
	ctx, span := o.startSpan(ctx, req)
	defer span.End()

	addr, err := o.topo.Resolve(req.Role)
	if err != nil {
		return model.OutputSnapshot{}, err
	}
	target := addr.String()
	task := "task-" + uuid.NewString()
	span.SetAttributes(attribute.String("task.id", task), attribute.String("task.target", target))

	release, err := o.locks.Acquire(target, o.opts.LockTimeout)
	if err != nil {
		o.record(task, events.KindFailed, req.Role, target, "target busy")
		return model.OutputSnapshot{}, err
	}
	defer release()

	start := o.now()
	switch req.Strategy {
	case IdlePoll:
		err = o.runPolled(ctx, task, req, addr)
	default:
		err = o.runSignaled(ctx, task, req, addr)
	}
	if err != nil {
		o.recordWaitError(ctx, task, req, target, start, err)
		return model.OutputSnapshot{}, err
	}
	if o.tel != nil {
		o.tel.Metrics.RecordWait(ctx, string(req.Strategy), o.now().Sub(start), false)
	}

	lines := req.CaptureLines
	if lines <= 0 {
		lines = o.opts.CaptureLines
	}
	snap, err := o.observer.Capture(ctx, addr, observe.Recent(lines), true)
	if err != nil {
		o.record(task, events.KindFailed, req.Role, target, "capture failed")
		return model.OutputSnapshot{}, err
	}
	o.record(task, events.KindCaptured, req.Role, target, "")
	if o.tel != nil {
		o.tel.Metrics.RecordCapture(ctx, len(snap.Lines))
	}
	return snap, nil
}

// runSignaled arms the completion signal before dispatching: the
// multiplexer drops signals emitted with nobody waiting, so arming after
// dispatch would race a fast command's exit.
func (o *Orchestrator) runSignaled(ctx context.Context, task string, req TaskRequest, addr model.PaneAddress) error {
	sig := model.CompletionSignal{Name: task, Target: addr}
	wt := o.waiter.Arm(ctx, sig)
	o.record(task, events.KindArmed, req.Role, addr.String(), sig.Name)

	command := req.Command + "; " + o.mux.EmitSignalCommand(sig.Name)
	if err := o.dispatch(ctx, task, req, addr, command); err != nil {
		wt.Cancel()
		return err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = o.opts.SignalTimeout
	}
	if err := wt.Wait(ctx, timeout); err != nil {
		return err
	}
	o.record(task, events.KindSignaled, req.Role, addr.String(), sig.Name)
	return nil
}

func (o *Orchestrator) runPolled(ctx context.Context, task string, req TaskRequest, addr model.PaneAddress) error {
	if err := o.dispatch(ctx, task, req, addr, req.Command); err != nil {
		return err
	}
	busy := req.Busy
	if busy == nil {
		busy = marker.Default()
	}
	return o.poller.WaitIdle(ctx, addr, busy)
}

func (o *Orchestrator) dispatch(ctx context.Context, task string, req TaskRequest, addr model.PaneAddress, command string) error {
	payload := model.CommandPayload{Text: command, Mode: req.Mode}
	start := o.now()
	err := o.injector.Dispatch(ctx, addr, payload)
	if o.tel != nil {
		o.tel.Metrics.RecordDispatch(ctx, string(req.Role), req.Mode.String(), o.now().Sub(start), err)
	}
	if err != nil {
		o.record(task, events.KindFailed, req.Role, addr.String(), "dispatch failed")
		return err
	}
	o.record(task, events.KindDispatched, req.Role, addr.String(), "")
	return nil
}

func (o *Orchestrator) recordWaitError(ctx context.Context, task string, req TaskRequest, target string, start time.Time, err error) {
	kind := events.KindFailed
	var st *completion.SignalTimeoutError
	var pe *completion.PollExhaustedError
	switch {
	case errors.As(err, &st):
		kind = events.KindTimeout
	case errors.As(err, &pe):
		kind = events.KindPollExhausted
	}
	o.record(task, kind, req.Role, target, err.Error())
	if o.tel != nil {
		o.tel.Metrics.RecordWait(ctx, string(req.Strategy), o.now().Sub(start), completion.IsRecoverable(err))
	}
}

func (o *Orchestrator) record(task, kind string, role model.Role, target, detail string) {
	if o.journal == nil {
		return
	}
	o.journal.Append(events.Event{
		Task:   task,
		Kind:   kind,
		Role:   string(role),
		Target: target,
		TS:     o.now().UTC(),
		Detail: detail,
	})
}

func (o *Orchestrator) startSpan(ctx context.Context, req TaskRequest) (context.Context, trace.Span) {
	if o.tel == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = SignalWait
	}
	return o.tel.Tracer.Start(ctx, "run_task", trace.WithAttributes(
		attribute.String("task.role", string(req.Role)),
		attribute.String("task.strategy", string(strategy)),
		attribute.String("payload.mode", req.Mode.String()),
	))
}
